package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Points transaction types.
const (
	TransactionEarned   = "earned"
	TransactionRedeemed = "redeemed"
)

// PointsTransaction is one append-only ledger row. A player's available
// balance for a project is the sum of earned minus redeemed amounts;
// rows are never mutated or deleted.
type PointsTransaction struct {
	bun.BaseModel `bun:"table:points_transactions,alias:pt"`

	ID        int64     `bun:"id,pk"`
	PlayerID  string    `bun:"player_id,notnull"`
	ProjectID string    `bun:"project_id,notnull"`
	Type      string    `bun:"type,notnull"`
	Amount    int       `bun:"amount,notnull"`
	QuestID   string    `bun:"quest_id"`
	Reason    string    `bun:"reason"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}
