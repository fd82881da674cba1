package validators

import (
	"context"

	"github.com/wagerdeck/questline/questline/quest"
)

// BustedRoundTwoSameCard completes when any busted game drew the same
// card rank in its first two rounds. Outcomes are card codes like "6H";
// the trailing letter is the suit, everything before it the rank, and
// only the rank has to match.
func BustedRoundTwoSameCard(_ context.Context, data any, _ map[string]any) (any, error) {
	games, ok := resolveArray(data, "player.games")
	if !ok {
		return false, nil
	}

	for _, g := range games {
		status, _ := quest.Resolve(g, "status")
		if status != "BUSTED" {
			continue
		}
		rounds, ok := resolveArray(g, "rounds")
		if !ok || len(rounds) < 2 {
			continue
		}

		first := roundOutcome(rounds, 0)
		second := roundOutcome(rounds, 1)
		if first == "" || second == "" {
			continue
		}

		if cardRank(first) == cardRank(second) {
			return true, nil
		}
	}

	return false, nil
}

// roundOutcome finds the outcome of the round with the given index;
// rounds are not guaranteed to arrive ordered.
func roundOutcome(rounds []any, index float64) string {
	for _, r := range rounds {
		idx, ok := quest.Resolve(r, "roundIndex")
		if !ok {
			continue
		}
		n, isNum := idx.(float64)
		if !isNum || n != index {
			continue
		}
		outcome, _ := quest.Resolve(r, "roundOutcome")
		s, _ := outcome.(string)
		return s
	}
	return ""
}

func cardRank(outcome string) string {
	if len(outcome) < 2 {
		return outcome
	}
	return outcome[:len(outcome)-1]
}

func resolveArray(data any, path string) ([]any, bool) {
	value, ok := quest.Resolve(data, path)
	if !ok {
		return nil, false
	}
	arr, ok := value.([]any)
	return arr, ok
}
