package ir

import (
	"github.com/medihbt/remusys-ir-sub003/internal/arena"
	"github.com/medihbt/remusys-ir-sub003/internal/types"
)

// ConstExprKind tags the variant of a constant-expression arena record.
type ConstExprKind byte

const (
	ConstExprInvalid ConstExprKind = iota
	ConstExprArray
	ConstExprStruct
)

// ConstExpr is an aggregate constant literal: an array or struct of
// element ValueSSA(s), which may themselves be ConstExpr references,
// inline constants, or AggrZero. `users` is the reverse Use list.
type ConstExpr struct {
	kind     ConstExprKind
	typ      types.ID
	elements []ValueSSA
	users    arena.ListState
}

func (c *ConstExpr) Kind() ConstExprKind { return c.kind }
func (c *ConstExpr) Type() types.ID      { return c.typ }
func (c *ConstExpr) Elements() []ValueSSA {
	return c.elements
}
