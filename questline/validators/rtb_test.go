package validators

import (
	"context"
	"encoding/json"
	"testing"
)

func decodeJSON(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("failed to decode fixture: %v", err)
	}
	return v
}

func bustedGame(first, second string) string {
	return `{
		"status": "BUSTED",
		"rounds": [
			{"roundIndex": 0, "roundOutcome": "` + first + `"},
			{"roundIndex": 1, "roundOutcome": "` + second + `"}
		]
	}`
}

func TestBustedRoundTwoSameCard(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{
			name: "same rank different suit",
			data: `{"player": {"games": [` + bustedGame("6H", "6D") + `]}}`,
			want: true,
		},
		{
			name: "identical cards",
			data: `{"player": {"games": [` + bustedGame("KS", "KS") + `]}}`,
			want: true,
		},
		{
			name: "ten rank compares on full rank",
			data: `{"player": {"games": [` + bustedGame("10H", "10D") + `]}}`,
			want: true,
		},
		{
			name: "different ranks",
			data: `{"player": {"games": [` + bustedGame("5H", "3S") + `]}}`,
			want: false,
		},
		{
			name: "rank prefix does not match longer rank",
			data: `{"player": {"games": [` + bustedGame("1H", "10H") + `]}}`,
			want: false,
		},
		{
			name: "non busted game ignored",
			data: `{"player": {"games": [{
				"status": "WON",
				"rounds": [
					{"roundIndex": 0, "roundOutcome": "6H"},
					{"roundIndex": 1, "roundOutcome": "6D"}
				]
			}]}}`,
			want: false,
		},
		{
			name: "single round game ignored",
			data: `{"player": {"games": [{
				"status": "BUSTED",
				"rounds": [{"roundIndex": 0, "roundOutcome": "6H"}]
			}]}}`,
			want: false,
		},
		{
			name: "rounds out of order",
			data: `{"player": {"games": [{
				"status": "BUSTED",
				"rounds": [
					{"roundIndex": 1, "roundOutcome": "AD"},
					{"roundIndex": 0, "roundOutcome": "AH"}
				]
			}]}}`,
			want: true,
		},
		{
			name: "later game qualifies",
			data: `{"player": {"games": [` +
				bustedGame("2H", "9C") + `,` +
				bustedGame("QD", "QC") + `]}}`,
			want: true,
		},
		{name: "no games", data: `{"player": {"games": []}}`, want: false},
		{name: "missing player", data: `{}`, want: false},
		{name: "games not an array", data: `{"player": {"games": {"status": "BUSTED"}}}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BustedRoundTwoSameCard(context.Background(), decodeJSON(t, tt.data), nil)
			if err != nil {
				t.Fatalf("BustedRoundTwoSameCard() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("BustedRoundTwoSameCard() = %v, want %v", got, tt.want)
			}
		})
	}
}
