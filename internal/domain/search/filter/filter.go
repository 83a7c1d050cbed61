package filter

import "fmt"

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a structured filter with must/should boolean semantics.
// Every must condition has to hold; at least one should condition has to hold.
type Expression struct {
	must   []Condition
	should []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many should conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0
}

// Condition matches a field against one value, or against any of several values.
// Values are string, int64 or bool.
type Condition struct {
	key    string
	values []any
	anyOf  bool
}

// NewMatch creates an exact match condition.
func NewMatch(key string, value any) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	v, err := scalar(value)
	if err != nil {
		return Condition{}, fmt.Errorf("key %q: %w", key, err)
	}
	return Condition{key: key, values: []any{v}}, nil
}

// NewMatchAny creates a condition that holds when the field equals any of values.
func NewMatchAny(key string, values []any) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("at least one value is required for key %q", key)
	}
	out := make([]any, len(values))
	for i, value := range values {
		v, err := scalar(value)
		if err != nil {
			return Condition{}, fmt.Errorf("key %q: %w", key, err)
		}
		out[i] = v
	}
	return Condition{key: key, values: out, anyOf: true}, nil
}

// Key returns the field path.
func (c Condition) Key() string { return c.key }

// Value returns the first value; the only one for an exact match.
func (c Condition) Value() any { return c.values[0] }

// Values returns all values.
func (c Condition) Values() []any { return c.values }

// IsAny reports whether this is an any-of condition.
func (c Condition) IsAny() bool { return c.anyOf }

// scalar coerces a decoded value into string, int64 or bool.
func scalar(v any) (any, error) {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil, fmt.Errorf("empty match value")
		}
		return x, nil
	case bool:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != float64(int64(x)) {
			return nil, fmt.Errorf("non-integral number %v", x)
		}
		return int64(x), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
