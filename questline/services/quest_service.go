package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/errgroup"

	"github.com/wagerdeck/questline/questline/database/models"
	"github.com/wagerdeck/questline/questline/logger"
	"github.com/wagerdeck/questline/questline/quest"
)

// QueryExecutor runs one query against a project's endpoint and
// returns the decoded JSON payload. Failures must wrap
// quest.ErrTransport.
type QueryExecutor interface {
	Execute(ctx context.Context, query string, variables map[string]any) (any, error)
}

// QuestStatus is a quest definition merged with a player's verdict:
// what the UI layer renders.
type QuestStatus struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Reward      int      `json:"reward"`
	Type        string   `json:"type"`
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	Completed   bool     `json:"completed"`
	Progress    *float64 `json:"progress,omitempty"`
}

const defaultCheckConcurrency = 4

var (
	queryVarPattern  = regexp.MustCompile(`\$(\w+)\s*:\s*\w+!?`)
	variableFuncName = regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`)
)

// QuestService orchestrates one project's quests: query execution,
// variant evaluation and ledger recording. Checks for different
// players are fully independent; within one player the ledger's
// MarkCompleted is the only synchronization point.
type QuestService struct {
	project  quest.Project
	defs     []*quest.Definition
	byID     map[string]*quest.Definition
	variants map[string]quest.Variant

	executor    QueryExecutor
	registry    *quest.Registry
	ledger      *LedgerService
	concurrency int
}

func NewQuestService(doc *quest.ProjectDocument, executor QueryExecutor, registry *quest.Registry, ledger *LedgerService) *QuestService {
	s := &QuestService{
		project:     doc.Project,
		defs:        doc.Quests,
		byID:        make(map[string]*quest.Definition, len(doc.Quests)),
		variants:    make(map[string]quest.Variant),
		executor:    executor,
		registry:    registry,
		ledger:      ledger,
		concurrency: defaultCheckConcurrency,
	}

	for _, def := range doc.Quests {
		s.byID[def.ID] = def
		if _, ok := s.variants[def.Type]; !ok {
			if v, ok := quest.VariantFor(def.Type, registry); ok {
				s.variants[def.Type] = v
			}
		}
	}
	return s
}

func (s *QuestService) Project() quest.Project {
	return s.project
}

func (s *QuestService) Quests() []*quest.Definition {
	return s.defs
}

// ActiveQuests returns the definitions whose start/end window contains
// now.
func (s *QuestService) ActiveQuests(now time.Time) []*quest.Definition {
	var active []*quest.Definition
	for _, def := range s.defs {
		if def.Active(now) {
			active = append(active, def)
		}
	}
	return active
}

// CompletedQuests returns the definitions the ledger records as done for
// the player; IncompleteQuests returns the rest. Both read the ledger only.
func (s *QuestService) CompletedQuests(ctx context.Context, playerID string) ([]*quest.Definition, error) {
	return s.questsByCompletion(ctx, playerID, true)
}

func (s *QuestService) IncompleteQuests(ctx context.Context, playerID string) ([]*quest.Definition, error) {
	return s.questsByCompletion(ctx, playerID, false)
}

func (s *QuestService) questsByCompletion(ctx context.Context, playerID string, completed bool) ([]*quest.Definition, error) {
	rows, err := s.ledger.GetCompletions(ctx, playerID, s.project.ID)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.Completed {
			done[row.QuestID] = true
		}
	}
	out := make([]*quest.Definition, 0, len(s.defs))
	for _, def := range s.defs {
		if done[def.ID] == completed {
			out = append(out, def)
		}
	}
	return out, nil
}

type questTitles []*quest.Definition

func (q questTitles) String(i int) string { return q[i].Title }
func (q questTitles) Len() int            { return len(q) }

// SearchQuests fuzzy-matches quest titles; an empty term returns every
// definition.
func (s *QuestService) SearchQuests(term string) []*quest.Definition {
	if term == "" {
		return s.defs
	}
	matches := fuzzy.FindFrom(term, questTitles(s.defs))
	out := make([]*quest.Definition, 0, len(matches))
	for _, m := range matches {
		out = append(out, s.defs[m.Index])
	}
	return out
}

// CheckQuest validates one quest for one player. Completed quests
// short-circuit on the ledger's cached verdict without touching the
// transport; a fresh completion is recorded through MarkCompleted.
func (s *QuestService) CheckQuest(ctx context.Context, questID, playerID string) (*QuestStatus, error) {
	def, ok := s.byID[questID]
	if !ok {
		return nil, fmt.Errorf("%w: %s in project %s", quest.ErrQuestNotFound, questID, s.project.ID)
	}
	start := time.Now()
	status, err := s.checkQuest(ctx, def, playerID, nil, false)
	logger.LogQuestCheck(def.ID, playerID, time.Since(start), err)
	return status, err
}

func (s *QuestService) checkQuest(ctx context.Context, def *quest.Definition, playerID string, pre *models.QuestCompletion, prefetched bool) (*QuestStatus, error) {
	completion := pre
	if !prefetched {
		row, err := s.ledger.GetCompletion(ctx, playerID, def.ID, s.project.ID)
		if err != nil {
			// A ledger read failure degrades to a plain re-validation; the
			// at-most-once write guard still prevents double awards.
			slog.Warn("Completion lookup failed, validating anyway",
				slog.String("type", "quest"),
				slog.String("quest_id", def.ID),
				slog.Any("error", err))
		} else {
			completion = row
		}
	}

	if completion != nil && completion.Completed {
		return s.status(def, quest.ValidationResult{Completed: true, Progress: completion.Progress}), nil
	}

	variables, err := s.buildQueryVariables(ctx, def, playerID)
	if err != nil {
		return nil, err
	}

	result, err := s.executor.Execute(ctx, def.Query, variables)
	if err != nil {
		return nil, fmt.Errorf("quest %s: %w", def.ID, err)
	}

	variant, ok := s.variants[def.Type]
	if !ok {
		return nil, fmt.Errorf("quest %s: no variant for type %q", def.ID, def.Type)
	}

	verdict, err := variant.Evaluate(ctx, def, result)
	if err != nil {
		if errors.Is(err, quest.ErrValidatorUnavailable) {
			slog.Warn("Validator unavailable, quest treated as incomplete",
				slog.String("type", "quest"),
				slog.String("quest_id", def.ID),
				slog.Any("error", err))
			return s.status(def, quest.ValidationResult{}), nil
		}
		return nil, fmt.Errorf("quest %s: %w", def.ID, err)
	}

	if verdict.Completed {
		if _, err := s.ledger.MarkCompleted(ctx, playerID, def.ID, s.project.ID, def.Reward, verdict.Progress); err != nil {
			return nil, fmt.Errorf("quest %s: %w", def.ID, err)
		}
	} else if progress, ok := verdict.ProgressValue(); ok {
		if err := s.ledger.UpdateProgress(ctx, playerID, def.ID, s.project.ID, progress); err != nil {
			slog.Warn("Failed to persist quest progress",
				slog.String("type", "quest"),
				slog.String("quest_id", def.ID),
				slog.Any("error", err))
		}
	}

	return s.status(def, verdict), nil
}

// CheckAllQuests validates every quest of the project for one player.
// The player's completion set is fetched once up front; per-quest
// checks then run concurrently, short-circuiting the already-completed
// ones, and a failing quest never aborts its siblings.
func (s *QuestService) CheckAllQuests(ctx context.Context, playerID string) []*QuestStatus {
	byQuest := make(map[string]*models.QuestCompletion)
	prefetched := false

	completions, err := s.ledger.GetCompletions(ctx, playerID, s.project.ID)
	if err != nil {
		slog.Error("Failed to preload quest completions",
			slog.String("type", "quest"),
			slog.String("project_id", s.project.ID),
			slog.Any("error", err))
	} else {
		prefetched = true
		for _, c := range completions {
			byQuest[c.QuestID] = c
		}
	}

	results := make([]*QuestStatus, len(s.defs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, def := range s.defs {
		i, def := i, def
		g.Go(func() error {
			status, err := s.checkQuest(gctx, def, playerID, byQuest[def.ID], prefetched)
			if err != nil {
				slog.Error("Quest check failed",
					slog.String("type", "quest"),
					slog.String("quest_id", def.ID),
					slog.String("player_id", playerID),
					slog.Any("error", err))
				return nil
			}
			results[i] = status
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*QuestStatus, 0, len(results))
	for _, status := range results {
		if status != nil {
			out = append(out, status)
		}
	}
	return out
}

// GetCachedProgress merges the ledger's latest snapshots over the quest
// definitions without re-running any validation.
func (s *QuestService) GetCachedProgress(ctx context.Context, playerID string) ([]*QuestStatus, error) {
	completions, err := s.ledger.GetCompletions(ctx, playerID, s.project.ID)
	if err != nil {
		return nil, err
	}

	byQuest := make(map[string]*models.QuestCompletion, len(completions))
	for _, c := range completions {
		byQuest[c.QuestID] = c
	}

	out := make([]*QuestStatus, 0, len(s.defs))
	for _, def := range s.defs {
		verdict := quest.ValidationResult{}
		if row, ok := byQuest[def.ID]; ok {
			verdict.Completed = row.Completed
			verdict.Progress = row.Progress
		}
		out = append(out, s.status(def, verdict))
	}
	return out, nil
}

// RefreshProgress re-validates the player's incomplete quests.
// Completed quests still short-circuit; there is no way to force a
// completed quest back through validation.
func (s *QuestService) RefreshProgress(ctx context.Context, playerID string) []*QuestStatus {
	return s.CheckAllQuests(ctx, playerID)
}

func (s *QuestService) status(def *quest.Definition, verdict quest.ValidationResult) *QuestStatus {
	return &QuestStatus{
		ID:          def.ID,
		Title:       def.Title,
		Description: def.Description,
		Reward:      def.Reward,
		Type:        def.Type,
		StartDate:   def.StartDate,
		EndDate:     def.EndDate,
		Completed:   verdict.Completed,
		Progress:    verdict.Progress,
	}
}

// buildQueryVariables binds every `$name: Type` placeholder in the
// query to the player id, then lets quest-declared variables add to or
// override those: literal values pass through, values naming a
// registered variable function are resolved, and unresolvable names
// fall back to the literal string.
func (s *QuestService) buildQueryVariables(ctx context.Context, def *quest.Definition, playerID string) (map[string]any, error) {
	variables := make(map[string]any)

	for _, match := range queryVarPattern.FindAllStringSubmatch(def.Query, -1) {
		variables[match[1]] = playerID
	}

	for _, entry := range def.Variables {
		for name, value := range entry {
			str, isString := value.(string)
			if !isString || !variableFuncName.MatchString(str) {
				variables[name] = value
				continue
			}

			fn, ok := s.registry.Variable(def.ProjectID, str)
			if !ok {
				variables[name] = str
				continue
			}

			resolved, err := fn(ctx)
			if err != nil {
				slog.Warn("Variable function failed, using literal",
					slog.String("type", "quest"),
					slog.String("variable", name),
					slog.Any("error", err))
				variables[name] = str
				continue
			}
			variables[name] = resolved
		}
	}

	return variables, nil
}
