package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wagerdeck/questline/questline/database/models"
	"github.com/wagerdeck/questline/questline/quest"
)

// MemoryLedgerRepository is the embedded LedgerRepository: a
// mutex-guarded map with the same at-most-once semantics as the
// Postgres implementation. Tests use it directly, and it backs
// deployments without a database.
type MemoryLedgerRepository struct {
	mu           sync.Mutex
	completions  map[string]*models.QuestCompletion
	transactions []*models.PointsTransaction
}

func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{
		completions: make(map[string]*models.QuestCompletion),
	}
}

func completionKey(playerID, questID, projectID string) string {
	return fmt.Sprintf("%s|%s|%s", playerID, questID, projectID)
}

func (r *MemoryLedgerRepository) GetCompletion(_ context.Context, playerID, questID, projectID string) (*models.QuestCompletion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.completions[completionKey(playerID, questID, projectID)]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (r *MemoryLedgerRepository) GetCompletions(_ context.Context, playerID, projectID string) ([]*models.QuestCompletion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.QuestCompletion
	for _, row := range r.completions {
		if row.PlayerID != playerID {
			continue
		}
		if projectID != "" && row.ProjectID != projectID {
			continue
		}
		copied := *row
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestID < out[j].QuestID })
	return out, nil
}

func (r *MemoryLedgerRepository) MarkCompleted(_ context.Context, playerID, questID, projectID string, reward int, progress *float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := completionKey(playerID, questID, projectID)
	if existing, ok := r.completions[key]; ok && existing.Completed {
		return false, nil
	}

	if progress == nil {
		full := 100.0
		progress = &full
	}
	stored := *progress

	now := time.Now()
	r.completions[key] = &models.QuestCompletion{
		PlayerID:      playerID,
		QuestID:       questID,
		ProjectID:     projectID,
		Completed:     true,
		Progress:      &stored,
		CompletedAt:   &now,
		LastCheckedAt: now,
	}

	if reward > 0 {
		r.transactions = append(r.transactions, &models.PointsTransaction{
			ID:        newTransactionID(),
			PlayerID:  playerID,
			ProjectID: projectID,
			Type:      models.TransactionEarned,
			Amount:    reward,
			QuestID:   questID,
			CreatedAt: now,
		})
	}
	return true, nil
}

func (r *MemoryLedgerRepository) UpdateProgress(_ context.Context, playerID, questID, projectID string, progress float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := completionKey(playerID, questID, projectID)
	now := time.Now()

	if existing, ok := r.completions[key]; ok {
		if existing.Completed {
			return nil
		}
		existing.Progress = &progress
		existing.LastCheckedAt = now
		return nil
	}

	r.completions[key] = &models.QuestCompletion{
		PlayerID:      playerID,
		QuestID:       questID,
		ProjectID:     projectID,
		Progress:      &progress,
		LastCheckedAt: now,
	}
	return nil
}

func (r *MemoryLedgerRepository) GetTransactions(_ context.Context, playerID, projectID string) ([]*models.PointsTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.PointsTransaction
	for i := len(r.transactions) - 1; i >= 0; i-- {
		txn := r.transactions[i]
		if txn.PlayerID != playerID {
			continue
		}
		if projectID != "" && txn.ProjectID != projectID {
			continue
		}
		copied := *txn
		out = append(out, &copied)
	}
	return out, nil
}

func (r *MemoryLedgerRepository) GetProjectTransactions(_ context.Context, projectID string) ([]*models.PointsTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.PointsTransaction
	for _, txn := range r.transactions {
		if txn.ProjectID != projectID {
			continue
		}
		copied := *txn
		out = append(out, &copied)
	}
	return out, nil
}

func (r *MemoryLedgerRepository) RedeemPoints(_ context.Context, playerID, projectID string, amount int, reason string) error {
	if amount <= 0 {
		return fmt.Errorf("redemption amount must be positive, got %d", amount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	available := 0
	for _, txn := range r.transactions {
		if txn.PlayerID != playerID || txn.ProjectID != projectID {
			continue
		}
		if txn.Type == models.TransactionEarned {
			available += txn.Amount
		} else {
			available -= txn.Amount
		}
	}
	if available < amount {
		return quest.ErrInsufficientBalance
	}

	r.transactions = append(r.transactions, &models.PointsTransaction{
		ID:        newTransactionID(),
		PlayerID:  playerID,
		ProjectID: projectID,
		Type:      models.TransactionRedeemed,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: time.Now(),
	})
	return nil
}

var _ LedgerRepository = (*MemoryLedgerRepository)(nil)
