package models

import (
	"time"

	"github.com/uptrace/bun"
)

// QuestCompletion is the per-player snapshot of one quest's state. The
// (player, quest, project) triple is the primary key; once Completed
// flips true the row never goes back.
type QuestCompletion struct {
	bun.BaseModel `bun:"table:quest_completions,alias:qc"`

	PlayerID      string     `bun:"player_id,pk"`
	QuestID       string     `bun:"quest_id,pk"`
	ProjectID     string     `bun:"project_id,pk"`
	Completed     bool       `bun:"completed,notnull,default:false"`
	Progress      *float64   `bun:"progress"`
	CompletedAt   *time.Time `bun:"completed_at"`
	LastCheckedAt time.Time  `bun:"last_checked_at,notnull"`
}
