package qdrant

import (
	"fmt"
	"sort"

	pb "github.com/qdrant/go-client/qdrant"
)

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

// toValue converts decoded JSON-like data into a payload value.
func toValue(v any) (*pb.Value, error) {
	switch tv := v.(type) {
	case nil:
		return &pb.Value{Kind: &pb.Value_NullValue{NullValue: pb.NullValue_NULL_VALUE}}, nil
	case string:
		return stringValue(tv), nil
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}, nil
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}, nil
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}, nil
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}, nil
	case []string:
		values := make([]*pb.Value, len(tv))
		for i, s := range tv {
			values[i] = stringValue(s)
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}, nil
	case []any:
		values := make([]*pb.Value, len(tv))
		for i, item := range tv {
			pv, err := toValue(item)
			if err != nil {
				return nil, err
			}
			values[i] = pv
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}, nil
	case map[string]any:
		fields := make(map[string]*pb.Value, len(tv))
		for k, item := range tv {
			pv, err := toValue(item)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			fields[k] = pv
		}
		return &pb.Value{Kind: &pb.Value_StructValue{StructValue: &pb.Struct{Fields: fields}}}, nil
	default:
		return nil, fmt.Errorf("unsupported payload type %T", v)
	}
}

// fromValue converts a payload value back into plain Go data.
// Integers come back as int64 and lists as []any.
func fromValue(v *pb.Value) any {
	switch k := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return k.StringValue
	case *pb.Value_BoolValue:
		return k.BoolValue
	case *pb.Value_IntegerValue:
		return k.IntegerValue
	case *pb.Value_DoubleValue:
		return k.DoubleValue
	case *pb.Value_ListValue:
		out := make([]any, len(k.ListValue.GetValues()))
		for i, item := range k.ListValue.GetValues() {
			out[i] = fromValue(item)
		}
		return out
	case *pb.Value_StructValue:
		fields := k.StructValue.GetFields()
		keys := make([]string, 0, len(fields))
		for key := range fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(fields))
		for _, key := range keys {
			out[key] = fromValue(fields[key])
		}
		return out
	default:
		return nil
	}
}
