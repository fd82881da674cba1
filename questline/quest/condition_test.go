package quest

import (
	"math"
	"testing"
)

func TestEvaluateCondition(t *testing.T) {
	tests := []struct {
		name  string
		cond  Condition
		value any
		want  bool
	}{
		{name: "equal numbers", cond: Condition{Operator: OpEqual, Value: float64(5)}, value: float64(5), want: true},
		{name: "equal loose string number", cond: Condition{Operator: OpEqual, Value: float64(5)}, value: "5", want: true},
		{name: "equal loose both strings", cond: Condition{Operator: OpEqual, Value: "BUSTED"}, value: "BUSTED", want: true},
		{name: "equal mismatch", cond: Condition{Operator: OpEqual, Value: "BUSTED"}, value: "WON", want: false},
		{name: "not equal", cond: Condition{Operator: OpNotEqual, Value: float64(5)}, value: float64(6), want: true},
		{name: "not equal loose", cond: Condition{Operator: OpNotEqual, Value: "5"}, value: float64(5), want: false},
		{name: "greater", cond: Condition{Operator: OpGreater, Value: float64(10)}, value: float64(11), want: true},
		{name: "greater equal boundary", cond: Condition{Operator: OpGreaterEqual, Value: float64(10)}, value: float64(10), want: true},
		{name: "greater fails at boundary", cond: Condition{Operator: OpGreater, Value: float64(10)}, value: float64(10), want: false},
		{name: "less", cond: Condition{Operator: OpLess, Value: float64(10)}, value: float64(9), want: true},
		{name: "less equal", cond: Condition{Operator: OpLessEqual, Value: "10"}, value: float64(10), want: true},
		{name: "numeric string coercion", cond: Condition{Operator: OpGreaterEqual, Value: float64(100)}, value: "4200", want: true},
		{name: "non numeric value ordering", cond: Condition{Operator: OpGreater, Value: float64(1)}, value: "lots", want: false},
		{name: "non numeric target ordering", cond: Condition{Operator: OpGreater, Value: "many"}, value: float64(5), want: false},
		{name: "nil value equal", cond: Condition{Operator: OpEqual, Value: float64(1)}, value: nil, want: false},
		{name: "nil value ordering", cond: Condition{Operator: OpGreaterEqual, Value: float64(0)}, value: nil, want: false},
		{name: "bool coerced", cond: Condition{Operator: OpEqual, Value: float64(1)}, value: true, want: true},
		{name: "nan never greater", cond: Condition{Operator: OpGreater, Value: float64(0)}, value: math.NaN(), want: false},
		{name: "nan never equal", cond: Condition{Operator: OpEqual, Value: math.NaN()}, value: math.NaN(), want: false},
		{name: "unknown operator", cond: Condition{Operator: "~", Value: float64(1)}, value: float64(1), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateCondition(tt.cond, tt.value); got != tt.want {
				t.Fatalf("EvaluateCondition(%+v, %v) = %v, want %v", tt.cond, tt.value, got, tt.want)
			}
		})
	}
}

func TestKnownOperator(t *testing.T) {
	for _, op := range []string{OpEqual, OpNotEqual, OpGreater, OpGreaterEqual, OpLess, OpLessEqual} {
		if !KnownOperator(op) {
			t.Errorf("KnownOperator(%q) = false, want true", op)
		}
	}
	for _, op := range []string{"", "==", "~", "in"} {
		if KnownOperator(op) {
			t.Errorf("KnownOperator(%q) = true, want false", op)
		}
	}
}
