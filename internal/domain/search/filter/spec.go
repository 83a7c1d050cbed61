package filter

import (
	"errors"
	"fmt"
	"sort"
)

// MetadataPrefix namespaces filter fields inside the stored record metadata.
const MetadataPrefix = "metadata."

// ErrInvalidFilter signals filter input that is not a field mapping.
var ErrInvalidFilter = errors.New("invalid filter")

// Mode tells how a clause combines its values.
type Mode string

const (
	// Must requires every listed value to match.
	Must Mode = "must"
	// Should requires any listed value to match.
	Should Mode = "should"
)

// Clause is the constraint on one field.
type Clause struct {
	Mode   Mode
	Values []any
}

// Spec maps field names to clauses. A nil or empty Spec means "no filter".
type Spec map[string]Clause

// Skipped describes a field dropped while parsing a Spec.
type Skipped struct {
	Field  string
	Reason string
}

// ParseSpec validates decoded JSON of the form {"field": {"must": bool, "values": [..]}}.
// A non-mapping input fails with ErrInvalidFilter. Fields whose clause is not a
// mapping, whose values are empty or of an unsupported type are skipped and
// reported. A scalar "values" becomes a one-element list; "must" defaults to true.
func ParseSpec(raw any) (Spec, []Skipped, error) {
	if raw == nil {
		return Spec{}, nil, nil
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("%w: expected an object, got %T", ErrInvalidFilter, raw)
	}

	spec := make(Spec, len(fields))
	var skipped []Skipped
	for _, name := range sortedKeys(fields) {
		clause, reason := parseClause(fields[name])
		if reason != "" {
			skipped = append(skipped, Skipped{Field: name, Reason: reason})
			continue
		}
		spec[name] = clause
	}
	return spec, skipped, nil
}

func parseClause(raw any) (Clause, string) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Clause{}, fmt.Sprintf("expected an object, got %T", raw)
	}

	mode := Must
	if rawMust, ok := m["must"]; ok {
		must, ok := rawMust.(bool)
		if !ok {
			return Clause{}, fmt.Sprintf("must is %T, want bool", rawMust)
		}
		if !must {
			mode = Should
		}
	}

	var values []any
	switch v := m["values"].(type) {
	case nil:
	case []any:
		values = v
	default:
		values = []any{v}
	}
	if len(values) == 0 {
		return Clause{}, "no values"
	}

	out := make([]any, len(values))
	for i, v := range values {
		s, err := scalar(v)
		if err != nil {
			return Clause{}, err.Error()
		}
		out[i] = s
	}
	return Clause{Mode: mode, Values: out}, ""
}

// Translate turns a Spec into an Expression over "metadata.<field>" keys.
// A Must clause yields one exact condition per value; a Should clause yields
// a single any-of condition. Fields are processed in sorted order.
func Translate(spec Spec) (Expression, error) {
	var must, should []Condition
	for _, name := range sortedKeys(spec) {
		clause := spec[name]
		if len(clause.Values) == 0 {
			continue
		}
		key := MetadataPrefix + name

		if clause.Mode == Should {
			c, err := NewMatchAny(key, clause.Values)
			if err != nil {
				return Expression{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
			}
			should = append(should, c)
			continue
		}
		for _, v := range clause.Values {
			c, err := NewMatch(key, v)
			if err != nil {
				return Expression{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
			}
			must = append(must, c)
		}
	}

	expr, err := NewExpression(must, should)
	if err != nil {
		return Expression{}, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return expr, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
