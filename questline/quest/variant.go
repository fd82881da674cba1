package quest

import (
	"context"
	"fmt"
)

// Variant is the single capability shared by all quest types: evaluate
// one definition against one query result and produce a verdict.
// Variants are stateless; dispatch happens on the definition's type
// tag.
type Variant interface {
	Evaluate(ctx context.Context, def *Definition, queryResult any) (ValidationResult, error)
}

// VariantFor returns the variant matching a type tag. The registry is
// only consulted by the custom variant.
func VariantFor(typeTag string, registry *Registry) (Variant, bool) {
	switch typeTag {
	case TypeConditional:
		return conditionalVariant{}, true
	case TypeProgress:
		return progressVariant{}, true
	case TypeSequential:
		return sequentialVariant{}, true
	case TypeCustom:
		return customVariant{registry: registry}, true
	default:
		return nil, false
	}
}

type conditionalVariant struct{}

func (conditionalVariant) Evaluate(_ context.Context, def *Definition, queryResult any) (ValidationResult, error) {
	if len(def.Conditions) == 0 {
		return ValidationResult{}, nil
	}

	cond := def.Conditions[0]
	value, _ := Resolve(queryResult, cond.Field)
	return ValidationResult{Completed: EvaluateCondition(cond, value)}, nil
}

type progressVariant struct{}

func (progressVariant) Evaluate(_ context.Context, def *Definition, queryResult any) (ValidationResult, error) {
	if len(def.Conditions) == 0 {
		return ValidationResult{Progress: progressOf(0)}, nil
	}

	cond := def.Conditions[0]
	value, _ := Resolve(queryResult, cond.Field)

	// Progress is reported even when the target is not met, and is
	// deliberately not clamped to the target; display clamping is the
	// caller's concern.
	numeric, ok := toNumber(value)
	if !ok {
		numeric = 0
	}

	return ValidationResult{
		Completed: EvaluateCondition(cond, value),
		Progress:  progressOf(numeric),
	}, nil
}

type sequentialVariant struct{}

func (sequentialVariant) Evaluate(_ context.Context, def *Definition, queryResult any) (ValidationResult, error) {
	if def.SequenceCondition == nil || len(def.Conditions) == 0 {
		return ValidationResult{}, nil
	}

	cond := def.Conditions[0]
	value, _ := Resolve(queryResult, cond.Field)
	items, ok := value.([]any)
	if !ok {
		return ValidationResult{}, nil
	}

	// Optionally narrow the list to the entries satisfying the item
	// condition before looking for a consecutive run.
	valid := items
	if cond.ItemConditionField != "" {
		valid = valid[:0:0]
		for _, item := range items {
			field, _ := Resolve(item, cond.ItemConditionField)
			if EvaluateCondition(cond, field) {
				valid = append(valid, item)
			}
		}
	}

	seqField := def.SequenceCondition.Field
	seqLen := def.SequenceCondition.SequenceLength

	if len(valid) < seqLen {
		return ValidationResult{Progress: progressOf(float64(len(valid)) / float64(seqLen) * 100)}, nil
	}

	for i := 0; i <= len(valid)-seqLen; i++ {
		if consecutiveWindow(valid[i:i+seqLen], seqField) {
			return ValidationResult{Completed: true, Progress: progressOf(100)}, nil
		}
	}

	return ValidationResult{Progress: progressOf(float64(len(valid)) / float64(seqLen) * 100)}, nil
}

// consecutiveWindow reports whether every entry's sequence field is
// exactly one greater than its predecessor's.
func consecutiveWindow(window []any, field string) bool {
	start, ok := numberAt(window[0], field)
	if !ok {
		return false
	}
	for offset := 1; offset < len(window); offset++ {
		next, ok := numberAt(window[offset], field)
		if !ok || next != start+float64(offset) {
			return false
		}
	}
	return true
}

func numberAt(item any, field string) (float64, bool) {
	value, ok := Resolve(item, field)
	if !ok {
		return 0, false
	}
	return toNumber(value)
}

type customVariant struct {
	registry *Registry
}

func (v customVariant) Evaluate(ctx context.Context, def *Definition, queryResult any) (ValidationResult, error) {
	fn, ok := v.registry.Validator(def.Validator)
	if !ok {
		return ValidationResult{}, fmt.Errorf("%w: quest %q has no registered validator", ErrValidatorUnavailable, def.ID)
	}

	params := map[string]any{}
	if def.Validator != nil {
		for k, val := range def.Validator.Params {
			params[k] = val
		}
	}
	params["typeParams"] = def.TypeParams

	result, err := fn(ctx, queryResult, params)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("%w: quest %q: %v", ErrValidatorUnavailable, def.ID, err)
	}

	return normalizeValidatorResult(result, def.TypeParams), nil
}

// normalizeValidatorResult folds the three validator return shapes into
// a ValidationResult. Numeric results become progress; they complete
// the quest only when the first type parameter provides a numeric
// target the value meets.
func normalizeValidatorResult(result any, typeParams []any) ValidationResult {
	switch r := result.(type) {
	case bool:
		return ValidationResult{Completed: r}
	case ValidationResult:
		return r
	case *ValidationResult:
		if r == nil {
			return ValidationResult{}
		}
		return *r
	default:
		if progress, ok := toNumber(result); ok {
			out := ValidationResult{Progress: progressOf(progress)}
			if len(typeParams) > 0 {
				if target, ok := toNumber(typeParams[0]); ok {
					out.Completed = progress >= target
				}
			}
			return out
		}
		return ValidationResult{}
	}
}
