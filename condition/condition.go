// Package condition provides an immutable boolean predicate tree over
// attribute paths and literal values. A Condition is built once by the
// caller, passed by value into query and scan calls, and never retained.
//
// The same tree serves two backends: it renders to the AWS expression
// builders for requests that go over the wire, and it evaluates directly
// against raw items for the embedded store. Local evaluation supports
// top-level attribute names only; nested document paths are a wire-only
// feature.
package condition

type operator int

const (
	opNone operator = iota
	opEqual
	opNotEqual
	opLessThan
	opLessThanOrEqual
	opGreaterThan
	opGreaterThanOrEqual
	opBetween
	opBeginsWith
	opContains
	opAttributeExists
	opAttributeNotExists
	opAnd
	opOr
)

// Condition is a single predicate or a composition of predicates. The zero
// value means "no condition" and reports IsSet() == false.
type Condition struct {
	op       operator
	path     string
	values   []any
	children []Condition
}

// IsSet reports whether the condition holds any predicate at all.
func (c Condition) IsSet() bool {
	return c.op != opNone
}

// Equals matches items whose attribute equals the value.
func Equals(path string, v any) Condition {
	return Condition{op: opEqual, path: path, values: []any{v}}
}

// NotEquals matches items whose attribute differs from the value.
func NotEquals(path string, v any) Condition {
	return Condition{op: opNotEqual, path: path, values: []any{v}}
}

// LessThan matches items whose attribute sorts before the value.
func LessThan(path string, v any) Condition {
	return Condition{op: opLessThan, path: path, values: []any{v}}
}

// LessThanOrEqual matches items whose attribute sorts before or equals the value.
func LessThanOrEqual(path string, v any) Condition {
	return Condition{op: opLessThanOrEqual, path: path, values: []any{v}}
}

// GreaterThan matches items whose attribute sorts after the value.
func GreaterThan(path string, v any) Condition {
	return Condition{op: opGreaterThan, path: path, values: []any{v}}
}

// GreaterThanOrEqual matches items whose attribute sorts after or equals the value.
func GreaterThanOrEqual(path string, v any) Condition {
	return Condition{op: opGreaterThanOrEqual, path: path, values: []any{v}}
}

// Between matches items whose attribute is between lo and hi, inclusive.
func Between(path string, lo, hi any) Condition {
	return Condition{op: opBetween, path: path, values: []any{lo, hi}}
}

// BeginsWith matches string attributes starting with the prefix.
func BeginsWith(path string, prefix string) Condition {
	return Condition{op: opBeginsWith, path: path, values: []any{prefix}}
}

// Contains matches string attributes containing the substring, or string-set
// attributes containing the member.
func Contains(path string, v any) Condition {
	return Condition{op: opContains, path: path, values: []any{v}}
}

// AttributeExists matches items that carry the attribute at all.
func AttributeExists(path string) Condition {
	return Condition{op: opAttributeExists, path: path}
}

// AttributeNotExists matches items that lack the attribute.
func AttributeNotExists(path string) Condition {
	return Condition{op: opAttributeNotExists, path: path}
}

// And composes conditions conjunctively. Unset operands are dropped, so
// And(a, Condition{}) == a; And of nothing is unset.
func And(conds ...Condition) Condition {
	return compose(opAnd, conds)
}

// Or composes conditions disjunctively, dropping unset operands.
func Or(conds ...Condition) Condition {
	return compose(opOr, conds)
}

// And returns the conjunction of c and other.
func (c Condition) And(other Condition) Condition {
	return And(c, other)
}

// Or returns the disjunction of c and other.
func (c Condition) Or(other Condition) Condition {
	return Or(c, other)
}

func compose(op operator, conds []Condition) Condition {
	set := make([]Condition, 0, len(conds))
	for _, c := range conds {
		if c.IsSet() {
			set = append(set, c)
		}
	}
	switch len(set) {
	case 0:
		return Condition{}
	case 1:
		return set[0]
	default:
		return Condition{op: op, children: set}
	}
}
