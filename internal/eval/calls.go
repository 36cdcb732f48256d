package eval

import (
	"github.com/tako-lang/tako/internal/ast"
	"github.com/tako-lang/tako/internal/diag"
	"github.com/tako-lang/tako/internal/scope"
	"github.com/tako-lang/tako/internal/value"
)

func (e *Evaluator) evalCall(n *ast.CallExpr, sc *scope.Scope) (value.Value, error) {
	callee, err := e.evalExpr(n.Callee, sc)
	if err != nil {
		return value.Null, err
	}
	args := &value.Args{Named: map[string]value.Value{}}
	for _, a := range n.Args {
		v, err := e.evalExpr(a.Value, sc)
		if err != nil {
			return value.Null, err
		}
		if a.Name == "" {
			args.Positional = append(args.Positional, v)
		} else {
			args.Named[a.Name] = v
		}
	}
	return e.Call(callee, args, n.Pos)
}

func (e *Evaluator) evalIndex(n *ast.IndexExpr, sc *scope.Scope) (value.Value, error) {
	target, err := e.evalExpr(n.Target, sc)
	if err != nil {
		return value.Null, err
	}
	idx, err := e.evalExpr(n.Index, sc)
	if err != nil {
		return value.Null, err
	}
	switch target.Kind {
	case value.KindArray:
		if idx.Kind != value.KindNumber {
			return value.Null, diag.NewError(n.Pos, diag.ErrType, "array index must be a number")
		}
		i := int(idx.Number)
		if i < 0 || i >= len(target.Array) {
			return value.Null, diag.NewError(n.Pos, diag.ErrType, "array index %d out of range (len %d)", i, len(target.Array))
		}
		return target.Array[i], nil
	case value.KindObject:
		if idx.Kind != value.KindString {
			return value.Null, diag.NewError(n.Pos, diag.ErrType, "object key must be a string")
		}
		v, ok := target.Object.Get(idx.Str)
		if !ok {
			return value.Null, nil
		}
		return v, nil
	case value.KindString:
		if idx.Kind != value.KindNumber {
			return value.Null, diag.NewError(n.Pos, diag.ErrType, "string index must be a number")
		}
		i := int(idx.Number)
		if i < 0 || i >= len(target.Str) {
			return value.Null, diag.NewError(n.Pos, diag.ErrType, "string index %d out of range", i)
		}
		return value.String(string(target.Str[i])), nil
	default:
		return value.Null, diag.NewError(n.Pos, diag.ErrType, "cannot index into %s", value.TypeName(target))
	}
}

func (e *Evaluator) evalMember(n *ast.MemberExpr, sc *scope.Scope) (value.Value, error) {
	target, err := e.evalExpr(n.Target, sc)
	if err != nil {
		return value.Null, err
	}
	switch target.Kind {
	case value.KindObject:
		v, ok := target.Object.Get(n.Name)
		if !ok {
			return value.Null, diag.NewError(n.Pos, diag.ErrName, "object has no member %q", n.Name)
		}
		return v, nil
	case value.KindPos:
		switch n.Name {
		case "bar":
			return value.Number(float64(target.Pos.Bar)), nil
		case "beat":
			return value.Number(float64(target.Pos.Beat)), nil
		}
		return value.Null, diag.NewError(n.Pos, diag.ErrName, "pos has no member %q", n.Name)
	case value.KindPitch:
		switch n.Name {
		case "midi":
			return value.Number(float64(target.Pitch.MIDI)), nil
		case "cents":
			return value.Number(target.Pitch.Cents), nil
		}
		return value.Null, diag.NewError(n.Pos, diag.ErrName, "pitch has no member %q", n.Name)
	default:
		return value.Null, diag.NewError(n.Pos, diag.ErrType, "cannot access member %q on %s", n.Name, value.TypeName(target))
	}
}

func (e *Evaluator) evalMatch(n *ast.MatchExpr, sc *scope.Scope) (value.Value, error) {
	subject, err := e.evalExpr(n.Subject, sc)
	if err != nil {
		return value.Null, err
	}
	var defaultArm *ast.MatchArm
	for i := range n.Arms {
		arm := n.Arms[i]
		if arm.Default {
			defaultArm = &n.Arms[i]
			continue
		}
		pattern, err := e.evalExpr(arm.Pattern, sc)
		if err != nil {
			return value.Null, err
		}
		if value.Equal(subject, pattern) {
			return e.evalExpr(arm.Value, sc)
		}
	}
	if defaultArm != nil {
		return e.evalExpr(defaultArm.Value, sc)
	}
	return value.Null, nil
}
