package quest

import (
	"time"
)

// Quest type tags. The tag on a definition decides which variant
// evaluates it.
const (
	TypeConditional = "conditional"
	TypeProgress    = "progress"
	TypeSequential  = "sequential"
	TypeCustom      = "custom"
)

// Comparison operators accepted in quest conditions.
const (
	OpEqual        = "="
	OpNotEqual     = "!="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpLess         = "<"
	OpLessEqual    = "<="
)

// Project identifies one partner integration. Created at config-load
// time and immutable afterwards.
type Project struct {
	ID            string
	Name          string
	Description   string
	QueryEndpoint string
}

// Condition compares a value resolved out of a query result against a
// configured constant. Value may be a string or a number depending on
// what the config document carried.
type Condition struct {
	Field              string
	ItemConditionField string
	Operator           string
	Value              any
}

// SequenceCondition configures a sequential quest: the array entries
// must contain sequenceLength consecutive values under Field.
type SequenceCondition struct {
	Field          string
	SequenceLength int
}

// ValidatorRef names the pluggable validator for a custom quest. When
// the config document carries no explicit reference, the loader
// defaults Module to the project id and Function to the quest id.
type ValidatorRef struct {
	Module   string
	Function string
	Params   map[string]any
}

// Definition is the immutable configuration for one quest.
type Definition struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Reward      int
	Type        string
	TypeParams  []any
	Query       string
	StartDate   string
	EndDate     string

	Conditions        []Condition
	SequenceCondition *SequenceCondition
	Validator         *ValidatorRef

	// Variables holds quest-declared query variables. Each entry maps a
	// variable name to either a literal or the name of a registered
	// variable function.
	Variables []map[string]any
}

// Active reports whether the quest's start/end window contains now.
// Quests without dates are always active; unparsable dates do not
// exclude a quest.
func (d *Definition) Active(now time.Time) bool {
	if d.StartDate == "" && d.EndDate == "" {
		return true
	}
	if start, ok := parseDate(d.StartDate); ok && now.Before(start) {
		return false
	}
	if end, ok := parseDate(d.EndDate); ok && now.After(end) {
		return false
	}
	return true
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidationResult is the verdict of evaluating one quest against one
// query result. Progress is nil when the variant does not report one.
type ValidationResult struct {
	Completed bool
	Progress  *float64
}

// ProgressValue returns the numeric progress with presence flag.
func (v ValidationResult) ProgressValue() (float64, bool) {
	if v.Progress == nil {
		return 0, false
	}
	return *v.Progress, true
}

func progressOf(p float64) *float64 {
	return &p
}
