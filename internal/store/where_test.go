package store

import (
	"testing"
)

func TestBuildWhere_empty(t *testing.T) {
	clause, args, err := buildWhere(nil, 1)
	if err != nil || clause != "" || len(args) != 0 {
		t.Errorf("got %q %v %v; want empty clause", clause, args, err)
	}
}

func TestBuildWhere_eqAndIn(t *testing.T) {
	clause, args, err := buildWhere([]predicate{
		whereEq("u_id", int64(10)),
		whereIn("s_type_id", []any{int16(0), int16(5)}),
	}, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := " WHERE u_id = $1 AND s_type_id IN ($2, $3)"
	if clause != want {
		t.Errorf("clause = %q; want %q", clause, want)
	}
	if len(args) != 3 {
		t.Errorf("args = %v; want 3 values", args)
	}
}

func TestBuildWhere_placeholderOffset(t *testing.T) {
	clause, _, err := buildWhere([]predicate{whereEq("id", int64(7))}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if clause != " WHERE id = $3" {
		t.Errorf("clause = %q; want $3 numbering", clause)
	}
}

func TestBuildWhere_operatorShapeMismatch(t *testing.T) {
	// A list handed to EQ is a configuration error, reported immediately.
	if _, _, err := buildWhere([]predicate{whereEq("id", []any{1, 2})}, 1); err == nil {
		t.Error("EQ with a list should error")
	}
	if _, _, err := buildWhere([]predicate{whereIn("id", nil)}, 1); err == nil {
		t.Error("IN with no values should error")
	}
	if _, _, err := buildWhere([]predicate{whereIn("id", []any{})}, 1); err == nil {
		t.Error("IN with an empty list should error")
	}
}
