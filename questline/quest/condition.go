package quest

import (
	"fmt"
	"strconv"
	"strings"
)

// EvaluateCondition applies the condition's operator between the
// resolved value and the configured constant. Malformed input yields
// false, never a panic: equality is loose (the string "5" equals the
// number 5), ordering operators coerce both sides numerically and fail
// the comparison when either side does not parse.
func EvaluateCondition(cond Condition, value any) bool {
	switch cond.Operator {
	case OpEqual:
		return looseEqual(value, cond.Value)
	case OpNotEqual:
		return !looseEqual(value, cond.Value)
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		left, lok := toNumber(value)
		right, rok := toNumber(cond.Value)
		if !lok || !rok {
			return false
		}
		switch cond.Operator {
		case OpGreater:
			return left > right
		case OpGreaterEqual:
			return left >= right
		case OpLess:
			return left < right
		default:
			return left <= right
		}
	default:
		return false
	}
}

// KnownOperator reports whether op is one of the six comparison
// operators the config loader accepts.
func KnownOperator(op string) bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
		return true
	}
	return false
}

func looseEqual(a, b any) bool {
	if an, aok := toNumber(a); aok {
		if bn, bok := toNumber(b); bok {
			return an == bn
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// toNumber coerces the usual JSON and TOML scalar types to float64.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
