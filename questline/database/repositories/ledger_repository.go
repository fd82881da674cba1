package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/uptrace/bun"

	"github.com/wagerdeck/questline/questline/database/models"
	"github.com/wagerdeck/questline/questline/quest"
)

// LedgerRepository is the storage behind the progress and points
// ledger. Both implementations (Postgres and in-memory) give the same
// guarantee: MarkCompleted transitions a completion row exactly once
// and appends the earned transaction only on that transition.
type LedgerRepository interface {
	// GetCompletion returns the completion row or nil when the player has
	// never checked this quest.
	GetCompletion(ctx context.Context, playerID, questID, projectID string) (*models.QuestCompletion, error)

	// GetCompletions lists a player's rows; projectID narrows to one
	// project when non-empty.
	GetCompletions(ctx context.Context, playerID, projectID string) ([]*models.QuestCompletion, error)

	// MarkCompleted flips the row to completed and appends one earned
	// transaction. It returns true only for the call that performed the
	// transition. The verdict's raw progress is stored as-is; a nil
	// progress records the quest as simply done (100).
	MarkCompleted(ctx context.Context, playerID, questID, projectID string, reward int, progress *float64) (bool, error)

	// UpdateProgress overwrites progress and the check timestamp, but
	// only while the row is not completed.
	UpdateProgress(ctx context.Context, playerID, questID, projectID string, progress float64) error

	// GetTransactions lists a player's transactions, newest first;
	// projectID narrows when non-empty.
	GetTransactions(ctx context.Context, playerID, projectID string) ([]*models.PointsTransaction, error)

	// GetProjectTransactions lists every transaction of one project in
	// insertion order, for leaderboard aggregation.
	GetProjectTransactions(ctx context.Context, projectID string) ([]*models.PointsTransaction, error)

	// RedeemPoints appends a redeemed transaction unless it would drive
	// the player's balance below zero, in which case it returns
	// quest.ErrInsufficientBalance.
	RedeemPoints(ctx context.Context, playerID, projectID string, amount int, reason string) error
}

var transactionSeq atomic.Int64

// newTransactionID builds a sortable unique id: a timestamp snowflake
// with a process-local sequence folded into the low bits so bursts
// within one millisecond stay distinct.
func newTransactionID() int64 {
	return int64(snowflake.New(time.Now())) | (transactionSeq.Add(1) & 0x3FF)
}

type ledgerRepository struct {
	db *bun.DB
}

func NewLedgerRepository(db *bun.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) GetCompletion(ctx context.Context, playerID, questID, projectID string) (*models.QuestCompletion, error) {
	completion := new(models.QuestCompletion)
	err := r.db.NewSelect().
		Model(completion).
		Where("player_id = ?", playerID).
		Where("quest_id = ?", questID).
		Where("project_id = ?", projectID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return completion, nil
}

func (r *ledgerRepository) GetCompletions(ctx context.Context, playerID, projectID string) ([]*models.QuestCompletion, error) {
	var completions []*models.QuestCompletion
	q := r.db.NewSelect().
		Model(&completions).
		Where("player_id = ?", playerID)
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	err := q.Order("quest_id ASC").Scan(ctx)
	return completions, err
}

func (r *ledgerRepository) MarkCompleted(ctx context.Context, playerID, questID, projectID string, reward int, progress *float64) (bool, error) {
	completed := false

	if progress == nil {
		full := 100.0
		progress = &full
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		row := &models.QuestCompletion{
			PlayerID:      playerID,
			QuestID:       questID,
			ProjectID:     projectID,
			Completed:     true,
			Progress:      progress,
			CompletedAt:   &now,
			LastCheckedAt: now,
		}

		// Single conditional write keyed by the primary key: the insert
		// wins on a fresh row, the conflict update wins on an incomplete
		// row, and an already-completed row matches neither, so exactly
		// one caller ever observes an affected row.
		res, err := tx.NewInsert().
			Model(row).
			On("CONFLICT (player_id, quest_id, project_id) DO UPDATE").
			Set("completed = EXCLUDED.completed").
			Set("progress = EXCLUDED.progress").
			Set("completed_at = EXCLUDED.completed_at").
			Set("last_checked_at = EXCLUDED.last_checked_at").
			Where("qc.completed = ?", false).
			Exec(ctx)
		if err != nil {
			return err
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			// Lost the race or re-checked: a normal outcome, not an error.
			return nil
		}
		completed = true

		if reward <= 0 {
			return nil
		}

		txn := &models.PointsTransaction{
			ID:        newTransactionID(),
			PlayerID:  playerID,
			ProjectID: projectID,
			Type:      models.TransactionEarned,
			Amount:    reward,
			QuestID:   questID,
			CreatedAt: now,
		}
		_, err = tx.NewInsert().Model(txn).Exec(ctx)
		return err
	})

	if err != nil {
		return false, fmt.Errorf("failed to mark quest completed: %w", err)
	}
	return completed, nil
}

func (r *ledgerRepository) UpdateProgress(ctx context.Context, playerID, questID, projectID string, progress float64) error {
	now := time.Now()
	row := &models.QuestCompletion{
		PlayerID:      playerID,
		QuestID:       questID,
		ProjectID:     projectID,
		Completed:     false,
		Progress:      &progress,
		LastCheckedAt: now,
	}

	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (player_id, quest_id, project_id) DO UPDATE").
		Set("progress = EXCLUDED.progress").
		Set("last_checked_at = EXCLUDED.last_checked_at").
		Where("qc.completed = ?", false).
		Exec(ctx)
	return err
}

func (r *ledgerRepository) GetTransactions(ctx context.Context, playerID, projectID string) ([]*models.PointsTransaction, error) {
	var txns []*models.PointsTransaction
	q := r.db.NewSelect().
		Model(&txns).
		Where("player_id = ?", playerID)
	if projectID != "" {
		q = q.Where("project_id = ?", projectID)
	}
	err := q.Order("created_at DESC").Scan(ctx)
	return txns, err
}

func (r *ledgerRepository) GetProjectTransactions(ctx context.Context, projectID string) ([]*models.PointsTransaction, error) {
	var txns []*models.PointsTransaction
	err := r.db.NewSelect().
		Model(&txns).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Scan(ctx)
	return txns, err
}

func (r *ledgerRepository) RedeemPoints(ctx context.Context, playerID, projectID string, amount int, reason string) error {
	if amount <= 0 {
		return fmt.Errorf("redemption amount must be positive, got %d", amount)
	}

	// Guarded append in one statement: the insert only happens when the
	// derived balance still covers the amount.
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO points_transactions (id, player_id, project_id, type, amount, quest_id, reason, created_at)
		SELECT ?, ?, ?, ?, ?, '', ?, ?
		WHERE (
			SELECT COALESCE(SUM(CASE WHEN type = 'earned' THEN amount ELSE -amount END), 0)
			FROM points_transactions
			WHERE player_id = ? AND project_id = ?
		) >= ?`,
		newTransactionID(), playerID, projectID, models.TransactionRedeemed, amount, reason, time.Now(),
		playerID, projectID, amount,
	)
	if err != nil {
		return fmt.Errorf("failed to redeem points: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return quest.ErrInsufficientBalance
	}
	return nil
}
