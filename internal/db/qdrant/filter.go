package qdrant

import (
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/cvindex/internal/domain/search/filter"
)

// buildFilter renders an expression as a Qdrant filter; nil when empty.
func buildFilter(expr filter.Expression) *pb.Filter {
	if expr.IsEmpty() {
		return nil
	}
	f := &pb.Filter{}
	for _, c := range expr.Must() {
		f.Must = append(f.Must, condition(c))
	}
	for _, c := range expr.Should() {
		f.Should = append(f.Should, condition(c))
	}
	return f
}

func condition(c filter.Condition) *pb.Condition {
	if !c.IsAny() {
		return field(c.Key(), single(c.Value()))
	}
	if m := matchAny(c.Values()); m != nil {
		return field(c.Key(), m)
	}

	// mixed value types: one nested should clause per value
	nested := &pb.Filter{}
	for _, v := range c.Values() {
		nested.Should = append(nested.Should, field(c.Key(), single(v)))
	}
	return &pb.Condition{ConditionOneOf: &pb.Condition_Filter{Filter: nested}}
}

func field(key string, m *pb.Match) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{Key: key, Match: m},
		},
	}
}

// matchAny returns a keywords or integers match when all values share that type.
func matchAny(values []any) *pb.Match {
	keywords := make([]string, 0, len(values))
	integers := make([]int64, 0, len(values))
	for _, v := range values {
		switch x := v.(type) {
		case string:
			keywords = append(keywords, x)
		case int64:
			integers = append(integers, x)
		}
	}
	switch len(values) {
	case len(keywords):
		return &pb.Match{MatchValue: &pb.Match_Keywords{Keywords: &pb.RepeatedStrings{Strings: keywords}}}
	case len(integers):
		return &pb.Match{MatchValue: &pb.Match_Integers{Integers: &pb.RepeatedIntegers{Integers: integers}}}
	default:
		return nil
	}
}

func single(v any) *pb.Match {
	switch x := v.(type) {
	case int64:
		return &pb.Match{MatchValue: &pb.Match_Integer{Integer: x}}
	case bool:
		return &pb.Match{MatchValue: &pb.Match_Boolean{Boolean: x}}
	case string:
		return &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: x}}
	default:
		return nil
	}
}
