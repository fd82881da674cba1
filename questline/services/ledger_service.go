package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/wagerdeck/questline/questline/database/models"
	"github.com/wagerdeck/questline/questline/database/repositories"
)

// PointsSummary is a player's derived balance for one project. It is
// computed from the transaction history on every call, never cached.
type PointsSummary struct {
	PlayerID      string `json:"playerId"`
	ProjectID     string `json:"projectId"`
	TotalEarned   int    `json:"totalEarned"`
	TotalRedeemed int    `json:"totalRedeemed"`
	Available     int    `json:"available"`
}

// UserPoints is one leaderboard row.
type UserPoints struct {
	PlayerID string `json:"playerId"`
	Points   int    `json:"points"`
}

// QuestStats summarizes a player's standing across quests.
type QuestStats struct {
	TotalQuests      int `json:"totalQuests"`
	CompletedQuests  int `json:"completedQuests"`
	InProgressQuests int `json:"inProgressQuests"`
	TotalPoints      int `json:"totalPoints"`
}

// LedgerService fronts the ledger storage: completion snapshots plus
// the append-only points transactions, with the derivations built on
// top of them.
type LedgerService struct {
	repo repositories.LedgerRepository
}

func NewLedgerService(repo repositories.LedgerRepository) *LedgerService {
	return &LedgerService{repo: repo}
}

func (s *LedgerService) IsCompleted(ctx context.Context, playerID, questID, projectID string) (bool, error) {
	completion, err := s.repo.GetCompletion(ctx, playerID, questID, projectID)
	if err != nil {
		return false, err
	}
	return completion != nil && completion.Completed, nil
}

func (s *LedgerService) GetCompletion(ctx context.Context, playerID, questID, projectID string) (*models.QuestCompletion, error) {
	return s.repo.GetCompletion(ctx, playerID, questID, projectID)
}

func (s *LedgerService) GetCompletions(ctx context.Context, playerID, projectID string) ([]*models.QuestCompletion, error) {
	return s.repo.GetCompletions(ctx, playerID, projectID)
}

// MarkCompleted transitions the quest to completed and awards the
// reward at most once. The losing side of a concurrent re-check gets
// false back and nothing is double-paid. The verdict's raw progress is
// stored untouched; nil stands in for a plain pass.
func (s *LedgerService) MarkCompleted(ctx context.Context, playerID, questID, projectID string, reward int, progress *float64) (bool, error) {
	awarded, err := s.repo.MarkCompleted(ctx, playerID, questID, projectID, reward, progress)
	if err != nil {
		return false, err
	}

	if awarded {
		slog.Info("Quest completed",
			slog.String("type", "ledger"),
			slog.String("player_id", playerID),
			slog.String("quest_id", questID),
			slog.String("project_id", projectID),
			slog.Int("reward", reward))
	} else {
		slog.Debug("Quest already completed, no points awarded",
			slog.String("type", "ledger"),
			slog.String("player_id", playerID),
			slog.String("quest_id", questID))
	}
	return awarded, nil
}

func (s *LedgerService) UpdateProgress(ctx context.Context, playerID, questID, projectID string, progress float64) error {
	return s.repo.UpdateProgress(ctx, playerID, questID, projectID, progress)
}

// GetUserPoints derives a player's available balance for one project.
func (s *LedgerService) GetUserPoints(ctx context.Context, playerID, projectID string) (int, error) {
	summaries, err := s.GetPointsSummary(ctx, playerID, projectID)
	if err != nil {
		return 0, err
	}
	for _, summary := range summaries {
		if summary.ProjectID == projectID {
			return summary.Available, nil
		}
	}
	return 0, nil
}

// GetUserTotalPoints derives the balance across every project.
func (s *LedgerService) GetUserTotalPoints(ctx context.Context, playerID string) (int, error) {
	summaries, err := s.GetPointsSummary(ctx, playerID, "")
	if err != nil {
		return 0, err
	}
	total := 0
	for _, summary := range summaries {
		total += summary.Available
	}
	return total, nil
}

// GetPointsSummary folds the transaction history into per-project
// summaries; projectID narrows to one project when non-empty.
func (s *LedgerService) GetPointsSummary(ctx context.Context, playerID, projectID string) ([]*PointsSummary, error) {
	txns, err := s.repo.GetTransactions(ctx, playerID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	byProject := make(map[string]*PointsSummary)
	var order []string
	for _, txn := range txns {
		summary, ok := byProject[txn.ProjectID]
		if !ok {
			summary = &PointsSummary{PlayerID: playerID, ProjectID: txn.ProjectID}
			byProject[txn.ProjectID] = summary
			order = append(order, txn.ProjectID)
		}
		switch txn.Type {
		case models.TransactionEarned:
			summary.TotalEarned += txn.Amount
		case models.TransactionRedeemed:
			summary.TotalRedeemed += txn.Amount
		}
	}

	out := make([]*PointsSummary, 0, len(order))
	for _, id := range order {
		summary := byProject[id]
		summary.Available = summary.TotalEarned - summary.TotalRedeemed
		out = append(out, summary)
	}
	return out, nil
}

// RedeemPoints appends a redemption and returns the refreshed summary.
// It surfaces quest.ErrInsufficientBalance when the amount exceeds the
// available balance.
func (s *LedgerService) RedeemPoints(ctx context.Context, playerID, projectID string, amount int, reason string) (*PointsSummary, error) {
	if err := s.repo.RedeemPoints(ctx, playerID, projectID, amount, reason); err != nil {
		return nil, err
	}

	slog.Info("Points redeemed",
		slog.String("type", "ledger"),
		slog.String("player_id", playerID),
		slog.String("project_id", projectID),
		slog.Int("amount", amount),
		slog.String("reason", reason))

	summaries, err := s.GetPointsSummary(ctx, playerID, projectID)
	if err != nil {
		return nil, err
	}
	for _, summary := range summaries {
		if summary.ProjectID == projectID {
			return summary, nil
		}
	}
	return &PointsSummary{PlayerID: playerID, ProjectID: projectID}, nil
}

// GetLeaderboard aggregates a project's transactions into per-player
// totals sorted descending; ties keep first-transaction order.
func (s *LedgerService) GetLeaderboard(ctx context.Context, projectID string, limit int) ([]*UserPoints, error) {
	txns, err := s.repo.GetProjectTransactions(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project transactions: %w", err)
	}

	totals := make(map[string]*UserPoints)
	var order []*UserPoints
	for _, txn := range txns {
		entry, ok := totals[txn.PlayerID]
		if !ok {
			entry = &UserPoints{PlayerID: txn.PlayerID}
			totals[txn.PlayerID] = entry
			order = append(order, entry)
		}
		switch txn.Type {
		case models.TransactionEarned:
			entry.Points += txn.Amount
		case models.TransactionRedeemed:
			entry.Points -= txn.Amount
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Points > order[j].Points
	})

	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	return order, nil
}

// GetUserQuestStats counts a player's completions and in-progress
// quests and attaches the derived points total.
func (s *LedgerService) GetUserQuestStats(ctx context.Context, playerID, projectID string) (*QuestStats, error) {
	completions, err := s.repo.GetCompletions(ctx, playerID, projectID)
	if err != nil {
		return nil, err
	}

	stats := &QuestStats{TotalQuests: len(completions)}
	for _, c := range completions {
		switch {
		case c.Completed:
			stats.CompletedQuests++
		case c.Progress != nil && *c.Progress > 0:
			stats.InProgressQuests++
		}
	}

	if projectID != "" {
		stats.TotalPoints, err = s.GetUserPoints(ctx, playerID, projectID)
	} else {
		stats.TotalPoints, err = s.GetUserTotalPoints(ctx, playerID)
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}
