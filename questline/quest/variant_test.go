package quest

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestVariantFor(t *testing.T) {
	reg := NewRegistry()
	for _, tag := range []string{TypeConditional, TypeProgress, TypeSequential, TypeCustom} {
		if _, ok := VariantFor(tag, reg); !ok {
			t.Errorf("VariantFor(%q) not found", tag)
		}
	}
	if _, ok := VariantFor("weekly", reg); ok {
		t.Error("VariantFor should reject unknown type tags")
	}
}

func TestConditionalVariant(t *testing.T) {
	def := &Definition{
		ID:   "swap_1_usdt0_to_xpl",
		Type: TypeConditional,
		Conditions: []Condition{
			{Field: "len(swaps)", Operator: OpGreaterEqual, Value: float64(1)},
		},
	}
	variant, _ := VariantFor(TypeConditional, nil)

	tests := []struct {
		name string
		data string
		want bool
	}{
		{name: "one swap completes", data: `{"swaps": [{"id": "0x1"}]}`, want: true},
		{name: "empty swaps incomplete", data: `{"swaps": []}`, want: false},
		{name: "missing field incomplete", data: `{}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := variant.Evaluate(context.Background(), def, decodeJSON(t, tt.data))
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got.Completed != tt.want {
				t.Errorf("Completed = %v, want %v", got.Completed, tt.want)
			}
		})
	}
}

func TestProgressVariant(t *testing.T) {
	def := &Definition{
		ID:   "total_volume",
		Type: TypeProgress,
		Conditions: []Condition{
			{Field: "user.volume", Operator: OpGreaterEqual, Value: float64(720000)},
		},
	}
	variant, _ := VariantFor(TypeProgress, nil)

	tests := []struct {
		name          string
		data          string
		wantCompleted bool
		wantProgress  float64
	}{
		{name: "target exceeded keeps raw value", data: `{"user": {"volume": 7200000}}`, wantCompleted: true, wantProgress: 7200000},
		{name: "below target reports progress", data: `{"user": {"volume": 1000}}`, wantCompleted: false, wantProgress: 1000},
		{name: "missing field is zero progress", data: `{"user": {}}`, wantCompleted: false, wantProgress: 0},
		{name: "string value coerced", data: `{"user": {"volume": "500"}}`, wantCompleted: false, wantProgress: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := variant.Evaluate(context.Background(), def, decodeJSON(t, tt.data))
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got.Completed != tt.wantCompleted {
				t.Errorf("Completed = %v, want %v", got.Completed, tt.wantCompleted)
			}
			progress, ok := got.ProgressValue()
			if !ok {
				t.Fatal("progress quests must always report progress")
			}
			if progress != tt.wantProgress {
				t.Errorf("Progress = %v, want %v", progress, tt.wantProgress)
			}
		})
	}
}

func TestSequentialVariant(t *testing.T) {
	def := &Definition{
		ID:   "streak",
		Type: TypeSequential,
		Conditions: []Condition{
			{Field: "rounds", ItemConditionField: "status", Operator: OpEqual, Value: "FINISHED"},
		},
		SequenceCondition: &SequenceCondition{Field: "index", SequenceLength: 2},
	}
	variant, _ := VariantFor(TypeSequential, nil)

	rounds := func(indices ...int) string {
		out := `{"rounds": [`
		for i, idx := range indices {
			if i > 0 {
				out += ","
			}
			out += fmt.Sprintf(`{"index": %d, "status": "FINISHED"}`, idx)
		}
		return out + `]}`
	}

	tests := []struct {
		name          string
		data          string
		wantCompleted bool
		wantProgress  float64
	}{
		{name: "consecutive pair found", data: rounds(0, 1, 2, 3), wantCompleted: true, wantProgress: 100},
		{name: "gap breaks the run", data: rounds(0, 2), wantCompleted: false, wantProgress: 100},
		{name: "run later in list", data: rounds(0, 2, 4, 5), wantCompleted: true, wantProgress: 100},
		{name: "fewer items than window", data: rounds(7), wantCompleted: false, wantProgress: 50},
		{name: "empty list", data: rounds(), wantCompleted: false, wantProgress: 0},
		{name: "not an array", data: `{"rounds": {"index": 1}}`, wantCompleted: false, wantProgress: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := variant.Evaluate(context.Background(), def, decodeJSON(t, tt.data))
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got.Completed != tt.wantCompleted {
				t.Errorf("Completed = %v, want %v", got.Completed, tt.wantCompleted)
			}
			progress, ok := got.ProgressValue()
			if tt.wantProgress < 0 {
				if ok {
					t.Errorf("unexpected progress %v", progress)
				}
				return
			}
			if !ok || progress != tt.wantProgress {
				t.Errorf("Progress = %v (%v), want %v", progress, ok, tt.wantProgress)
			}
		})
	}
}

func TestSequentialVariantItemFilter(t *testing.T) {
	def := &Definition{
		ID:   "streak",
		Type: TypeSequential,
		Conditions: []Condition{
			{Field: "rounds", ItemConditionField: "status", Operator: OpEqual, Value: "FINISHED"},
		},
		SequenceCondition: &SequenceCondition{Field: "index", SequenceLength: 2},
	}
	variant, _ := VariantFor(TypeSequential, nil)

	// Indices 1 and 2 are consecutive but only after the ABANDONED
	// entry between them is filtered out.
	data := decodeJSON(t, `{"rounds": [
		{"index": 1, "status": "FINISHED"},
		{"index": 5, "status": "ABANDONED"},
		{"index": 2, "status": "FINISHED"}
	]}`)

	got, err := variant.Evaluate(context.Background(), def, data)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !got.Completed {
		t.Error("expected filtered list to complete the streak")
	}
}

func TestCustomVariant(t *testing.T) {
	newDef := func(params []any) *Definition {
		return &Definition{
			ID:         "total_value_traded_100_usdt0",
			ProjectID:  "gluex",
			Type:       TypeCustom,
			TypeParams: params,
			Validator:  &ValidatorRef{Module: "gluex", Function: "total_value_traded_100_usdt0", Params: map[string]any{"baseToken": "0xb8ce"}},
		}
	}

	t.Run("missing validator", func(t *testing.T) {
		variant, _ := VariantFor(TypeCustom, NewRegistry())
		_, err := variant.Evaluate(context.Background(), newDef(nil), nil)
		if !errors.Is(err, ErrValidatorUnavailable) {
			t.Fatalf("error = %v, want ErrValidatorUnavailable", err)
		}
	})

	t.Run("validator error", func(t *testing.T) {
		reg := NewRegistry()
		reg.RegisterValidator("gluex", "total_value_traded_100_usdt0", func(context.Context, any, map[string]any) (any, error) {
			return nil, errors.New("upstream down")
		})
		variant, _ := VariantFor(TypeCustom, reg)
		_, err := variant.Evaluate(context.Background(), newDef(nil), nil)
		if !errors.Is(err, ErrValidatorUnavailable) {
			t.Fatalf("error = %v, want ErrValidatorUnavailable", err)
		}
	})

	t.Run("bool result", func(t *testing.T) {
		reg := NewRegistry()
		reg.RegisterValidator("gluex", "total_value_traded_100_usdt0", func(context.Context, any, map[string]any) (any, error) {
			return true, nil
		})
		variant, _ := VariantFor(TypeCustom, reg)
		got, err := variant.Evaluate(context.Background(), newDef(nil), nil)
		if err != nil || !got.Completed {
			t.Fatalf("got %+v, %v; want completed", got, err)
		}
	})

	t.Run("numeric result with target", func(t *testing.T) {
		reg := NewRegistry()
		reg.RegisterValidator("gluex", "total_value_traded_100_usdt0", func(context.Context, any, map[string]any) (any, error) {
			return float64(150000000), nil
		})
		variant, _ := VariantFor(TypeCustom, reg)
		got, err := variant.Evaluate(context.Background(), newDef([]any{float64(100000000)}), nil)
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if !got.Completed {
			t.Error("value over target should complete")
		}
		if progress, ok := got.ProgressValue(); !ok || progress != 150000000 {
			t.Errorf("Progress = %v, %v", progress, ok)
		}
	})

	t.Run("numeric result without target", func(t *testing.T) {
		reg := NewRegistry()
		reg.RegisterValidator("gluex", "total_value_traded_100_usdt0", func(context.Context, any, map[string]any) (any, error) {
			return float64(42), nil
		})
		variant, _ := VariantFor(TypeCustom, reg)
		got, err := variant.Evaluate(context.Background(), newDef(nil), nil)
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if got.Completed {
			t.Error("numeric result without a target must not complete")
		}
	})

	t.Run("struct result passthrough", func(t *testing.T) {
		reg := NewRegistry()
		reg.RegisterValidator("gluex", "total_value_traded_100_usdt0", func(context.Context, any, map[string]any) (any, error) {
			return ValidationResult{Completed: true, Progress: progressOf(88)}, nil
		})
		variant, _ := VariantFor(TypeCustom, reg)
		got, err := variant.Evaluate(context.Background(), newDef(nil), nil)
		if err != nil || !got.Completed {
			t.Fatalf("got %+v, %v", got, err)
		}
		if progress, _ := got.ProgressValue(); progress != 88 {
			t.Errorf("Progress = %v, want 88", progress)
		}
	})

	t.Run("params forwarded", func(t *testing.T) {
		reg := NewRegistry()
		var seen map[string]any
		reg.RegisterValidator("gluex", "total_value_traded_100_usdt0", func(_ context.Context, _ any, params map[string]any) (any, error) {
			seen = params
			return false, nil
		})
		variant, _ := VariantFor(TypeCustom, reg)
		def := newDef([]any{float64(100000000), "daily"})
		if _, err := variant.Evaluate(context.Background(), def, nil); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if seen["baseToken"] != "0xb8ce" {
			t.Errorf("validator params missing baseToken: %+v", seen)
		}
		typeParams, ok := seen["typeParams"].([]any)
		if !ok || len(typeParams) != 2 {
			t.Errorf("typeParams not forwarded: %+v", seen["typeParams"])
		}
	})
}
