package sql

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/lazysql"
)

// Logical operators of a restriction node.
const (
	OpAnd = "AND"
	OpOr  = "OR"
)

// Restriction is a WHERE or HAVING expression: either a Cond leaf
// or a *Node combining other restrictions.
//
// This is a sealed interface - only types in this package implement it.
type Restriction interface {
	restriction()
}

// Cond is a raw SQL condition. The empty Cond means "no restriction"
// and is omitted from the composed output.
type Cond string

func (Cond) restriction() {}

// Node combines its children with a logical operator.
//
// A node without an operator is a group. A group holding a single child
// renders as that child; a group holding more than one child is malformed.
type Node struct {
	op       string
	children []Restriction
}

func (*Node) restriction() {}

// And returns a node joining children with AND.
func And(children ...Restriction) *Node {
	return NewNode(OpAnd, children...)
}

// Or returns a node joining children with OR.
func Or(children ...Restriction) *Node {
	return NewNode(OpOr, children...)
}

// Group returns an operator-less node. It is what a bare list of
// conditions becomes, e.g. ParseRestriction([]any{"bonus = 1"}).
func Group(children ...Restriction) *Node {
	return NewNode("", children...)
}

// NewNode returns a node with the given operator. The operator is
// validated when the restriction is composed.
func NewNode(op string, children ...Restriction) *Node {
	return &Node{op: op, children: slices.Clone(children)}
}

// Op returns the operator of the node, empty for a group.
func (n *Node) Op() string {
	return n.op
}

// Children returns a copy of the node children.
func (n *Node) Children() []Restriction {
	return slices.Clone(n.children)
}

// ParseRestriction builds a restriction from nested lists, as found in
// query files:
//
//	"age < 12"                                       // Cond
//	[]any{"bonus = 1"}                               // Group
//	[]any{"OR", "bonus = 1", []any{"AND", "a", "b"}} // Or(bonus = 1, And(a, b))
//
// A list is a node when its first element is a logical operator, and a
// group otherwise.
func ParseRestriction(v any) (Restriction, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case Restriction:
		return v, nil
	case string:
		return Cond(v), nil
	case []string:
		items := make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return ParseRestriction(items)
	case []any:
		op := ""
		if len(v) > 0 {
			if s, ok := v[0].(string); ok && isLogicalOp(s) {
				op, v = normalizeKeyword(s), v[1:]
			}
		}
		children := make([]Restriction, 0, len(v))
		for i := range v {
			child, err := ParseRestriction(v[i])
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return NewNode(op, children...), nil
	default:
		return nil, fmt.Errorf("dialect/sql: unsupported restriction type %T", v)
	}
}

// isEmptyRestriction reports whether r adds nothing to a query.
func isEmptyRestriction(r Restriction) bool {
	switch r := r.(type) {
	case nil:
		return true
	case Cond:
		return strings.TrimSpace(string(r)) == ""
	case *Node:
		return r == nil || len(r.children) == 0
	}
	return false
}

// extendRestriction combines cur and r with op. An empty restriction becomes
// a one-child node, a node with the same operator gets r appended, anything
// else is wrapped together with r in a new node.
func extendRestriction(cur Restriction, op string, r Restriction) Restriction {
	if isEmptyRestriction(cur) {
		return NewNode(op, r)
	}
	if n, ok := cur.(*Node); ok && normalizeKeyword(n.op) == op {
		return NewNode(op, append(slices.Clone(n.children), r)...)
	}
	return NewNode(op, cur, r)
}

// collapse strips nodes holding exactly one child.
func collapse(r Restriction) Restriction {
	for {
		n, ok := r.(*Node)
		if !ok || n == nil || len(n.children) != 1 {
			return r
		}
		r = n.children[0]
	}
}

// composeRestriction renders r to SQL text. Parentheses are added around r
// only when wrap is set, and around child nodes only when their operator
// differs from the parent's: And(a, And(b, c)) renders "a AND b AND c"
// while Or(a, And(b, c)) renders "a OR (b AND c)".
func composeRestriction(r Restriction, wrap bool) (string, error) {
	switch r := collapse(r).(type) {
	case nil:
		return "", nil
	case Cond:
		if wrap && r != "" {
			return "(" + string(r) + ")", nil
		}
		return string(r), nil
	case *Node:
		if r == nil || len(r.children) == 0 {
			return "", nil
		}
		op := normalizeKeyword(r.op)
		if op == "" {
			return "", lazysql.NewComposeError("restriction", "%d conditions without a logical operator", len(r.children))
		}
		if op != OpAnd && op != OpOr {
			return "", lazysql.NewComposeError("restriction", "unknown logical operator %q", r.op)
		}
		parts := make([]string, 0, len(r.children))
		for _, child := range r.children {
			child = collapse(child)
			parens := false
			if n, ok := child.(*Node); ok && n != nil {
				parens = normalizeKeyword(n.op) != op
			}
			s, err := composeRestriction(child, parens)
			if err != nil {
				return "", err
			}
			if s == "" {
				continue
			}
			parts = append(parts, s)
		}
		if len(parts) == 0 {
			return "", nil
		}
		s := strings.Join(parts, " "+op+" ")
		if wrap {
			s = "(" + s + ")"
		}
		return s, nil
	default:
		return "", lazysql.NewComposeError("restriction", "unsupported restriction %T", r)
	}
}

func isLogicalOp(s string) bool {
	switch normalizeKeyword(s) {
	case OpAnd, OpOr:
		return true
	}
	return false
}

// normalizeKeyword upper-cases a SQL keyword. A Caser is stateful,
// so one is created per call.
func normalizeKeyword(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}
