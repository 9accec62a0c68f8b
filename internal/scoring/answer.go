package scoring

import (
	"encoding/json"
	"fmt"
)

// AnswerValue is a submitted answer for a single grading unit. Form posts
// deliver either a single value (one radio button) or an ordered list of
// values (repeated fields on multi-select questions), so the type is a
// tagged union of the two shapes. Only the first element of a sequence is
// ever consulted during scoring.
type AnswerValue struct {
	values []string
}

// Scalar builds an AnswerValue holding a single submitted string.
func Scalar(s string) AnswerValue {
	return AnswerValue{values: []string{s}}
}

// Sequence builds an AnswerValue holding an ordered list of submitted
// strings. An empty list behaves exactly like an absent answer.
func Sequence(values ...string) AnswerValue {
	return AnswerValue{values: values}
}

// IsEmpty reports whether no value was submitted at all.
func (v AnswerValue) IsEmpty() bool {
	return len(v.values) == 0
}

// First returns the first submitted value, or "" when absent.
func (v AnswerValue) First() string {
	if len(v.values) == 0 {
		return ""
	}
	return v.values[0]
}

// Values returns all submitted values in submission order.
func (v AnswerValue) Values() []string {
	return v.values
}

// MarshalJSON keeps the wire shape the web layer produced: a bare string
// for single values, an array for multi-selects.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if len(v.values) == 1 {
		return json.Marshal(v.values[0])
	}
	return json.Marshal(v.values)
}

// UnmarshalJSON accepts a string, an array, or any other scalar. Malformed
// shapes are coerced through string conversion instead of failing so that a
// bad submission degrades to an incorrect answer rather than an error.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.values = []string{s}
		return nil
	}

	var list []any
	if err := json.Unmarshal(data, &list); err == nil {
		values := make([]string, 0, len(list))
		for _, item := range list {
			values = append(values, coerceString(item))
		}
		v.values = values
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		v.values = nil
		return nil
	}
	if raw == nil {
		v.values = nil
		return nil
	}
	v.values = []string{coerceString(raw)}
	return nil
}

func coerceString(raw any) string {
	switch t := raw.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		// JSON numbers; avoid the %v exponent form for integral values.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// AnswerMap maps grading-unit keys (format "q_<id>") to submitted values.
type AnswerMap map[string]AnswerValue
