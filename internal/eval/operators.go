package eval

import (
	"github.com/tako-lang/tako/internal/ast"
	"github.com/tako-lang/tako/internal/diag"
	"github.com/tako-lang/tako/internal/position"
	"github.com/tako-lang/tako/internal/rational"
	"github.com/tako-lang/tako/internal/scope"
	"github.com/tako-lang/tako/internal/token"
	"github.com/tako-lang/tako/internal/value"
)

// evalBinary implements the full operator table of spec.md §4.5.2.
func (e *Evaluator) evalBinary(n *ast.BinaryExpr, sc *scope.Scope) (value.Value, error) {
	switch n.Op {
	case token.AndAnd:
		l, err := e.evalExpr(n.Left, sc)
		if err != nil {
			return value.Null, err
		}
		if !value.Truthy(l) {
			return l, nil
		}
		return e.evalExpr(n.Right, sc)
	case token.OrOr:
		l, err := e.evalExpr(n.Left, sc)
		if err != nil {
			return value.Null, err
		}
		if value.Truthy(l) {
			return l, nil
		}
		return e.evalExpr(n.Right, sc)
	case token.Coalesce:
		l, err := e.evalExpr(n.Left, sc)
		if err != nil {
			return value.Null, err
		}
		if l.Kind != value.KindNull {
			return l, nil
		}
		return e.evalExpr(n.Right, sc)
	}

	l, err := e.evalExpr(n.Left, sc)
	if err != nil {
		return value.Null, err
	}
	r, err := e.evalExpr(n.Right, sc)
	if err != nil {
		return value.Null, err
	}

	switch n.Op {
	case token.Plus:
		return evalAdd(l, r, n.Pos)
	case token.Minus:
		return evalSub(l, r, n.Pos)
	case token.Star:
		return evalMul(l, r, n.Pos)
	case token.Slash:
		return evalDiv(l, r, n.Pos)
	case token.Percent:
		return evalMod(l, r, n.Pos)
	case token.EqEq:
		return value.Bool(value.Equal(l, r)), nil
	case token.NotEq:
		return value.Bool(!value.Equal(l, r)), nil
	case token.Lt, token.LtEq, token.Gt, token.GtEq:
		return evalCompare(n.Op, l, r, n.Pos)
	default:
		return value.Null, diag.NewError(n.Pos, diag.ErrType, "unsupported operator %s", n.Op)
	}
}

func evalAdd(l, r value.Value, pos token.Position) (value.Value, error) {
	switch {
	case l.Kind == value.KindNumber && r.Kind == value.KindNumber:
		return value.Number(l.Number + r.Number), nil
	case l.Kind == value.KindString && r.Kind == value.KindString:
		return value.String(l.Str + r.Str), nil
	case l.Kind == value.KindPitch && r.Kind == value.KindNumber:
		return value.PitchVal(l.Pitch.Transpose(int(r.Number))), nil
	case l.Kind == value.KindPos && r.Kind == value.KindRat:
		return value.PosVal(l.Pos.AddRat(r.Rat)), nil
	case l.Kind == value.KindPos && r.Kind == value.KindNumber:
		return value.PosVal(l.Pos.AddRat(numberToRat(r.Number))), nil
	case l.Kind == value.KindRat && r.Kind == value.KindRat:
		return value.RatVal(l.Rat.Add(r.Rat)), nil
	case l.Kind == value.KindRat && r.Kind == value.KindNumber:
		return value.Number(l.Rat.Float64() + r.Number), nil
	case l.Kind == value.KindNumber && r.Kind == value.KindRat:
		return value.Number(l.Number + r.Rat.Float64()), nil
	case l.Kind == value.KindPos && r.Kind == value.KindPos:
		return value.Null, diag.NewError(pos, diag.ErrType, "pos + pos is forbidden")
	default:
		return value.Null, diag.NewError(pos, diag.ErrType, "cannot add %s and %s", value.TypeName(l), value.TypeName(r))
	}
}

func evalSub(l, r value.Value, pos token.Position) (value.Value, error) {
	switch {
	case l.Kind == value.KindNumber && r.Kind == value.KindNumber:
		return value.Number(l.Number - r.Number), nil
	case l.Kind == value.KindPitch && r.Kind == value.KindNumber:
		return value.PitchVal(l.Pitch.Transpose(-int(r.Number))), nil
	case l.Kind == value.KindPos && r.Kind == value.KindRat:
		return value.PosVal(l.Pos.AddRat(r.Rat.Neg())), nil
	case l.Kind == value.KindRat && r.Kind == value.KindRat:
		return value.RatVal(l.Rat.Sub(r.Rat)), nil
	case l.Kind == value.KindPos && r.Kind == value.KindPos:
		return subPos(l.Pos, r.Pos, pos)
	default:
		return value.Null, diag.NewError(pos, diag.ErrType, "cannot subtract %s from %s", value.TypeName(r), value.TypeName(l))
	}
}

// subPos returns the rational distance between two resolved positions
// (spec.md §4.5.2). Symbolic (PosRef/PosExpr) operands cannot be
// subtracted before meter resolution.
func subPos(l, r position.Pos, pos token.Position) (value.Value, error) {
	if l.Kind != position.KindRat || r.Kind != position.KindRat {
		return value.Null, diag.NewError(pos, diag.ErrType, "pos - pos requires both positions to be resolved rationals; resolve against the meter map first")
	}
	return value.RatVal(l.Rat.Sub(r.Rat)), nil
}

func evalMul(l, r value.Value, pos token.Position) (value.Value, error) {
	switch {
	case l.Kind == value.KindNumber && r.Kind == value.KindNumber:
		return value.Number(l.Number * r.Number), nil
	case l.Kind == value.KindRat && r.Kind == value.KindRat:
		return value.RatVal(l.Rat.Mul(r.Rat)), nil
	case l.Kind == value.KindRat && r.Kind == value.KindNumber:
		return value.Number(l.Rat.Float64() * r.Number), nil
	case l.Kind == value.KindNumber && r.Kind == value.KindRat:
		return value.Number(l.Number * r.Rat.Float64()), nil
	default:
		return value.Null, diag.NewError(pos, diag.ErrType, "cannot multiply %s and %s", value.TypeName(l), value.TypeName(r))
	}
}

func evalDiv(l, r value.Value, pos token.Position) (value.Value, error) {
	switch {
	case l.Kind == value.KindNumber && r.Kind == value.KindNumber:
		if r.Number == 0 {
			return value.Null, diag.NewError(pos, diag.ErrType, "division by zero")
		}
		return value.Number(l.Number / r.Number), nil
	case l.Kind == value.KindRat && r.Kind == value.KindRat:
		res, err := l.Rat.Div(r.Rat)
		if err != nil {
			return value.Null, diag.NewError(pos, diag.ErrType, "%v", err)
		}
		return value.RatVal(res), nil
	default:
		return value.Null, diag.NewError(pos, diag.ErrType, "cannot divide %s by %s", value.TypeName(l), value.TypeName(r))
	}
}

func evalMod(l, r value.Value, pos token.Position) (value.Value, error) {
	if l.Kind != value.KindNumber || r.Kind != value.KindNumber {
		return value.Null, diag.NewError(pos, diag.ErrType, "%% requires numbers, got %s and %s", value.TypeName(l), value.TypeName(r))
	}
	if r.Number == 0 {
		return value.Null, diag.NewError(pos, diag.ErrType, "modulo by zero")
	}
	li, ri := int64(l.Number), int64(r.Number)
	return value.Number(float64(li % ri)), nil
}

func evalCompare(op token.Kind, l, r value.Value, pos token.Position) (value.Value, error) {
	var cmp int
	switch {
	case l.Kind == value.KindNumber && r.Kind == value.KindNumber:
		switch {
		case l.Number < r.Number:
			cmp = -1
		case l.Number > r.Number:
			cmp = 1
		}
	case l.Kind == value.KindRat && r.Kind == value.KindRat:
		cmp = l.Rat.Cmp(r.Rat)
	case l.Kind == value.KindRat && r.Kind == value.KindNumber:
		cmp = floatCmp(l.Rat.Float64(), r.Number)
	case l.Kind == value.KindNumber && r.Kind == value.KindRat:
		cmp = floatCmp(l.Number, r.Rat.Float64())
	default:
		return value.Null, diag.NewError(pos, diag.ErrType, "%s requires numbers or rationals, got %s and %s", op, value.TypeName(l), value.TypeName(r))
	}
	switch op {
	case token.Lt:
		return value.Bool(cmp < 0), nil
	case token.LtEq:
		return value.Bool(cmp <= 0), nil
	case token.Gt:
		return value.Bool(cmp > 0), nil
	case token.GtEq:
		return value.Bool(cmp >= 0), nil
	}
	return value.Null, diag.NewError(pos, diag.ErrType, "unreachable comparison operator %s", op)
}

func numberToRat(n float64) rational.Rat {
	r, _ := rational.New(int64(n*1e6), 1e6)
	return r
}

func floatCmp(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (e *Evaluator) evalUnary(n *ast.UnaryExpr, sc *scope.Scope) (value.Value, error) {
	v, err := e.evalExpr(n.Operand, sc)
	if err != nil {
		return value.Null, err
	}
	switch n.Op {
	case token.Not:
		return value.Bool(!value.Truthy(v)), nil
	case token.Minus:
		switch v.Kind {
		case value.KindNumber:
			return value.Number(-v.Number), nil
		case value.KindRat:
			return value.RatVal(v.Rat.Neg()), nil
		default:
			return value.Null, diag.NewError(n.Pos, diag.ErrType, "unary - requires a number or rational, got %s", value.TypeName(v))
		}
	default:
		return value.Null, diag.NewError(n.Pos, diag.ErrType, "unsupported unary operator %s", n.Op)
	}
}
