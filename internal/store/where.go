package store

import (
	"fmt"
	"strconv"
	"strings"
)

// comparison is the operator of one WHERE predicate.
type comparison int

const (
	opEQ comparison = iota
	opIN
)

// predicate is one field comparison in a WHERE clause. Predicate building is
// deliberately minimal; anything more belongs in raw SQL.
type predicate struct {
	field string
	op    comparison
	value any
}

func whereEq(field string, value any) predicate {
	return predicate{field: field, op: opEQ, value: value}
}

func whereIn(field string, values []any) predicate {
	return predicate{field: field, op: opIN, value: values}
}

// buildWhere renders predicates into a WHERE clause and its argument list,
// numbering placeholders from firstArg. A predicate whose operator does not
// match its argument shape (e.g. IN without a slice) is a configuration
// error and is reported immediately.
func buildWhere(preds []predicate, firstArg int) (string, []any, error) {
	if len(preds) == 0 {
		return "", nil, nil
	}
	var parts []string
	var args []any
	n := firstArg
	for _, p := range preds {
		switch p.op {
		case opEQ:
			if _, ok := p.value.([]any); ok {
				return "", nil, fmt.Errorf("where %s: EQ operator given a list", p.field)
			}
			parts = append(parts, p.field+" = $"+strconv.Itoa(n))
			args = append(args, p.value)
			n++
		case opIN:
			vals, ok := p.value.([]any)
			if !ok || len(vals) == 0 {
				return "", nil, fmt.Errorf("where %s: IN operator requires a non-empty list", p.field)
			}
			var holders []string
			for _, v := range vals {
				holders = append(holders, "$"+strconv.Itoa(n))
				args = append(args, v)
				n++
			}
			parts = append(parts, p.field+" IN ("+strings.Join(holders, ", ")+")")
		default:
			return "", nil, fmt.Errorf("where %s: unknown operator", p.field)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}
