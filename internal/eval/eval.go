// Package eval implements the tree-walking evaluator (spec.md §4.5): control
// flow and call semantics, the operator table, clip/score evaluation with
// cursor tracking, and two-phase module initialization for import cycles.
package eval

import (
	"fmt"
	"math"

	"github.com/tako-lang/tako/internal/ast"
	"github.com/tako-lang/tako/internal/diag"
	"github.com/tako-lang/tako/internal/intrinsics"
	"github.com/tako-lang/tako/internal/module"
	"github.com/tako-lang/tako/internal/pitch"
	"github.com/tako-lang/tako/internal/position"
	"github.com/tako-lang/tako/internal/rational"
	"github.com/tako-lang/tako/internal/scope"
	"github.com/tako-lang/tako/internal/token"
	"github.com/tako-lang/tako/internal/value"
)

// maxCallDepth bounds recursion before aborting with StackOverflow
// (spec.md §4.5.1, "suggested 512").
const maxCallDepth = 512

// Evaluator holds the call-depth counter and diagnostics sink shared across
// one compilation (spec.md §5: "diagnostics buffer is the only shared
// mutable structure").
type Evaluator struct {
	Diags *diag.Buffer
	depth int
}

// New creates an Evaluator. A nil diags buffer is replaced with a fresh one.
func New(diags *diag.Buffer) *Evaluator {
	if diags == nil {
		diags = diag.NewBuffer()
	}
	return &Evaluator{Diags: diags}
}

// returnSignal is the internal control-flow "exception" thrown by `return`
// and caught at the nearest function-call boundary (spec.md §4.5.1).
type returnSignal struct{ value value.Value }

func (r *returnSignal) Error() string { return "internal: return signal escaped a function boundary" }

// ModuleScopes maps each canonical module path to its evaluated root scope.
type ModuleScopes map[string]*scope.Scope

// EvalGraph evaluates every module in graph, seeding intrinsics into each
// module's root scope and binding imports between modules. It implements
// the two-phase initialization spec.md §4.3/§4.5 require for import
// cycles: every module's functions are registered before any module's
// constants are evaluated.
func (e *Evaluator) EvalGraph(graph map[string]*module.Module) (ModuleScopes, error) {
	scopes := ModuleScopes{}
	for path := range graph {
		sc := scope.Root()
		intrinsics.Register(sc, e)
		scopes[path] = sc
	}

	// Phase 1: register every function in every module. Function bodies are
	// not evaluated here, so forward/cyclic references between modules are
	// safe regardless of load order.
	for path, m := range graph {
		sc := scopes[path]
		for _, d := range m.Program.Body {
			if fn, ok := d.(*ast.FnDecl); ok {
				sc.Define(fn.Name, e.makeFunction(fn, sc), false)
			}
		}
	}

	// Bind imports now that every module's functions exist, so a named
	// import of a function works even across a cycle.
	for path, m := range graph {
		sc := scopes[path]
		for _, imp := range m.Program.Imports {
			targetPath, ok := m.Resolved[imp.Path]
			if !ok {
				return nil, diag.NewError(imp.Pos, diag.ErrImport, "unresolved import %q", imp.Path)
			}
			targetScope, ok := scopes[targetPath]
			if !ok {
				return nil, diag.NewError(imp.Pos, diag.ErrImport, "import %q not found in module graph", imp.Path)
			}
			if err := bindImport(sc, targetScope, imp); err != nil {
				return nil, err
			}
		}
	}

	// Phase 2: evaluate constants and lets, per module.
	for path, m := range graph {
		sc := scopes[path]
		for _, d := range m.Program.Body {
			switch n := d.(type) {
			case *ast.ConstDecl:
				v, err := e.evalExpr(n.Value, sc)
				if err != nil {
					return nil, fmt.Errorf("module %s: %w", path, err)
				}
				sc.Define(n.Name, v, false)
			case *ast.LetDecl:
				v, err := e.evalExpr(n.Value, sc)
				if err != nil {
					return nil, fmt.Errorf("module %s: %w", path, err)
				}
				sc.Define(n.Name, v, true)
			}
		}
	}

	return scopes, nil
}

func bindImport(into, from *scope.Scope, imp *ast.Import) error {
	if imp.Namespace {
		ns := value.NewObject()
		for _, name := range from.Names() {
			v, _ := from.Get(name)
			ns.Set(name, v)
		}
		into.Define(imp.Alias, value.ObjectVal(ns), false)
		return nil
	}
	for i, name := range imp.Names {
		v, ok := from.Get(name)
		if !ok {
			return diag.NewError(imp.Pos, diag.ErrName, "module %q has no export %q", imp.Path, name)
		}
		bindName := name
		if imp.Aliases[i] != "" {
			bindName = imp.Aliases[i]
		}
		into.Define(bindName, v, false)
	}
	return nil
}

func (e *Evaluator) makeFunction(fn *ast.FnDecl, closure *scope.Scope) value.Value {
	params := make([]value.FuncParam, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = value.FuncParam{Name: p.Name, Default: p.Default}
	}
	return value.FunctionVal(&value.Function{
		Name:   fn.Name,
		Params: params,
		Body:   fn.Body,
		Scope:  closure,
	})
}

// Call invokes fn with args, implementing spec.md §4.5.1's binding rules and
// satisfying intrinsics.Caller so native functions like mapEvents can invoke
// user-supplied callbacks.
func (e *Evaluator) Call(fn value.Value, args *value.Args, pos token.Position) (value.Value, error) {
	if fn.Kind != value.KindFunction {
		return value.Null, diag.NewError(pos, diag.ErrType, "value of type %s is not callable", value.TypeName(fn))
	}
	f := fn.Fn
	if f.Native != nil {
		return f.Native(args)
	}

	e.depth++
	defer func() { e.depth-- }()
	if e.depth > maxCallDepth {
		return value.Null, diag.NewError(pos, diag.ErrStackOverflow, "call depth exceeded %d in %q", maxCallDepth, f.Name)
	}

	closure, _ := f.Scope.(*scope.Scope)
	callScope := scope.New(closure)

	named := map[string]bool{}
	for i, p := range f.Params {
		if i < len(args.Positional) {
			callScope.Define(p.Name, args.Positional[i], true)
			continue
		}
		if v, ok := args.Named[p.Name]; ok {
			callScope.Define(p.Name, v, true)
			named[p.Name] = true
			continue
		}
		if p.Default != nil {
			d, ok := p.Default.(ast.Expr)
			if !ok {
				return value.Null, diag.NewError(pos, diag.ErrType, "malformed default for parameter %q", p.Name)
			}
			dv, err := e.evalExpr(d, callScope)
			if err != nil {
				return value.Null, err
			}
			callScope.Define(p.Name, dv, true)
			continue
		}
		callScope.Define(p.Name, value.Null, true)
	}
	for name := range args.Named {
		if named[name] {
			continue
		}
		found := false
		for _, p := range f.Params {
			if p.Name == name {
				found = true
				break
			}
		}
		if !found {
			return value.Null, diag.NewError(pos, diag.ErrName, "unknown named argument %q in call to %q; available parameters: %v", name, f.Name, paramNames(f.Params))
		}
	}

	body, ok := f.Body.(*ast.Block)
	if !ok {
		return value.Null, diag.NewError(pos, diag.ErrType, "function %q has no body", f.Name)
	}
	err := e.execBlock(body, callScope)
	if err == nil {
		return value.Null, nil
	}
	if rs, ok := err.(*returnSignal); ok {
		return rs.value, nil
	}
	return value.Null, err
}

func paramNames(params []value.FuncParam) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

// --- Statements ---

func (e *Evaluator) execBlock(b *ast.Block, sc *scope.Scope) error {
	inner := scope.New(sc)
	for _, stmt := range b.Stmts {
		if err := e.execStmt(stmt, inner); err != nil {
			return err
		}
	}
	return nil
}

func (e *Evaluator) execStmt(stmt ast.Stmt, sc *scope.Scope) error {
	switch n := stmt.(type) {
	case *ast.ConstDecl:
		v, err := e.evalExpr(n.Value, sc)
		if err != nil {
			return err
		}
		sc.Define(n.Name, v, false)
		return nil
	case *ast.LetDecl:
		v, err := e.evalExpr(n.Value, sc)
		if err != nil {
			return err
		}
		sc.Define(n.Name, v, true)
		return nil
	case *ast.Assign:
		v, err := e.evalExpr(n.Value, sc)
		if err != nil {
			return err
		}
		return e.execAssign(n.Target, v, sc)
	case *ast.If:
		return e.execIf(n, sc)
	case *ast.For:
		return e.execFor(n, sc)
	case *ast.Return:
		var v value.Value
		if n.Value != nil {
			var err error
			v, err = e.evalExpr(n.Value, sc)
			if err != nil {
				return err
			}
		}
		return &returnSignal{value: v}
	case *ast.ExprStmt:
		_, err := e.evalExpr(n.Expr, sc)
		return err
	default:
		return diag.NewError(stmt.Position(), diag.ErrType, "unsupported statement %T", stmt)
	}
}

func (e *Evaluator) execAssign(target ast.Expr, v value.Value, sc *scope.Scope) error {
	switch t := target.(type) {
	case *ast.Ident:
		if err := sc.Assign(t.Name, v); err != nil {
			return diag.NewError(t.Pos, diag.ErrName, "%v", err)
		}
		return nil
	case *ast.IndexExpr:
		target, err := e.evalExpr(t.Target, sc)
		if err != nil {
			return err
		}
		idx, err := e.evalExpr(t.Index, sc)
		if err != nil {
			return err
		}
		return assignIndex(target, idx, v, t.Pos)
	case *ast.MemberExpr:
		target, err := e.evalExpr(t.Target, sc)
		if err != nil {
			return err
		}
		if target.Kind != value.KindObject {
			return diag.NewError(t.Pos, diag.ErrType, "cannot assign member %q on non-object", t.Name)
		}
		target.Object.Set(t.Name, v)
		return nil
	default:
		return diag.NewError(target.Position(), diag.ErrType, "invalid assignment target")
	}
}

func assignIndex(target, idx, v value.Value, pos token.Position) error {
	switch target.Kind {
	case value.KindArray:
		if idx.Kind != value.KindNumber {
			return diag.NewError(pos, diag.ErrType, "array index must be a number")
		}
		i := int(idx.Number)
		if i < 0 || i >= len(target.Array) {
			return diag.NewError(pos, diag.ErrType, "array index %d out of range", i)
		}
		target.Array[i] = v
		return nil
	case value.KindObject:
		if idx.Kind != value.KindString {
			return diag.NewError(pos, diag.ErrType, "object key must be a string")
		}
		target.Object.Set(idx.Str, v)
		return nil
	default:
		return diag.NewError(pos, diag.ErrType, "cannot index-assign into %s", value.TypeName(target))
	}
}

func (e *Evaluator) execIf(n *ast.If, sc *scope.Scope) error {
	cond, err := e.evalExpr(n.Cond, sc)
	if err != nil {
		return err
	}
	if value.Truthy(cond) {
		return e.execBlock(n.Then, sc)
	}
	switch el := n.Else.(type) {
	case nil:
		return nil
	case *ast.Block:
		return e.execBlock(el, sc)
	case *ast.If:
		return e.execIf(el, sc)
	default:
		return diag.NewError(n.Pos, diag.ErrType, "malformed else clause")
	}
}

func (e *Evaluator) execFor(n *ast.For, sc *scope.Scope) error {
	iter, err := e.evalExpr(n.Iter, sc)
	if err != nil {
		return err
	}
	switch iter.Kind {
	case value.KindArray:
		for _, elem := range iter.Array {
			inner := scope.New(sc)
			inner.Define(n.Name, elem, true)
			if err := e.execBlock(n.Body, inner); err != nil {
				return err
			}
		}
		return nil
	case value.KindRange:
		from, to, err := rangeBounds(iter.Range, n.Pos)
		if err != nil {
			return err
		}
		last := to
		if !iter.Range.Inclusive {
			last--
		}
		for i := from; i <= last; i++ {
			inner := scope.New(sc)
			inner.Define(n.Name, value.Number(float64(i)), true)
			if err := e.execBlock(n.Body, inner); err != nil {
				return err
			}
		}
		return nil
	default:
		return diag.NewError(n.Pos, diag.ErrType, "for-in expects an array or range, got %s", value.TypeName(iter))
	}
}

func rangeBounds(r *value.Range, pos token.Position) (int, int, error) {
	if r.From.Kind != value.KindNumber || r.To.Kind != value.KindNumber {
		return 0, 0, diag.NewError(pos, diag.ErrType, "range bounds must be numbers")
	}
	return int(r.From.Number), int(r.To.Number), nil
}

// --- Expressions ---

func (e *Evaluator) evalExpr(expr ast.Expr, sc *scope.Scope) (value.Value, error) {
	switch n := expr.(type) {
	case *ast.NullLit:
		return value.Null, nil
	case *ast.BoolLit:
		return value.Bool(n.Value), nil
	case *ast.IntLit:
		return value.Number(float64(n.Value)), nil
	case *ast.FloatLit:
		return value.Number(n.Value), nil
	case *ast.StringLit:
		return value.String(n.Value), nil
	case *ast.PitchLit:
		p, err := pitch.Parse(n.Literal)
		if err != nil {
			return value.Null, diag.NewError(n.Pos, diag.ErrSyntax, "%v", err)
		}
		return value.PitchVal(p), nil
	case *ast.DurationLit:
		return value.RatVal(durationToRat(n)), nil
	case *ast.PosRefLit:
		p, err := position.FromRef(n.Bar, n.Beat)
		if err != nil {
			return value.Null, diag.NewError(n.Pos, diag.ErrType, "%v", err)
		}
		return value.PosVal(p), nil
	case *ast.TempoLit:
		return value.Number(n.BPM), nil
	case *ast.Ident:
		v, ok := sc.Get(n.Name)
		if !ok {
			return value.Null, diag.NewError(n.Pos, diag.ErrName, "undefined name %q%s", n.Name, suggestMessage(n.Name, sc.Names()))
		}
		return v, nil
	case *ast.BinaryExpr:
		return e.evalBinary(n, sc)
	case *ast.UnaryExpr:
		return e.evalUnary(n, sc)
	case *ast.RangeExpr:
		from, err := e.evalExpr(n.From, sc)
		if err != nil {
			return value.Null, err
		}
		to, err := e.evalExpr(n.To, sc)
		if err != nil {
			return value.Null, err
		}
		return value.RangeVal(from, to, n.Inclusive), nil
	case *ast.CallExpr:
		return e.evalCall(n, sc)
	case *ast.IndexExpr:
		return e.evalIndex(n, sc)
	case *ast.MemberExpr:
		return e.evalMember(n, sc)
	case *ast.ArrayLit:
		elems := make([]value.Value, len(n.Elems))
		for i, el := range n.Elems {
			v, err := e.evalExpr(el, sc)
			if err != nil {
				return value.Null, err
			}
			elems[i] = v
		}
		return value.ArrayVal(elems), nil
	case *ast.ObjectLit:
		o := value.NewObject()
		for _, f := range n.Fields {
			v, err := e.evalExpr(f.Value, sc)
			if err != nil {
				return value.Null, err
			}
			o.Set(f.Key, v)
		}
		return value.ObjectVal(o), nil
	case *ast.MatchExpr:
		return e.evalMatch(n, sc)
	case *ast.FnExpr:
		return value.FunctionVal(&value.Function{Params: toFuncParams(n.Params), Body: n.Body, Scope: sc}), nil
	case *ast.ScoreExpr:
		return e.evalScore(n, sc)
	case *ast.ClipExpr:
		return e.evalClip(n, sc)
	default:
		return value.Null, diag.NewError(expr.Position(), diag.ErrType, "unsupported expression %T", expr)
	}
}

func toFuncParams(params []ast.Param) []value.FuncParam {
	out := make([]value.FuncParam, len(params))
	for i, p := range params {
		out[i] = value.FuncParam{Name: p.Name, Default: p.Default}
	}
	return out
}

func durationToRat(d *ast.DurationLit) rational.Rat {
	base := rational.MustNew(d.Num, d.Den)
	total := base
	add := base
	for i := 0; i < d.Dots; i++ {
		add, _ = add.Div(rational.FromInt(2))
		total = total.Add(add)
	}
	return total
}

func suggestMessage(name string, candidates []string) string {
	best := ""
	bestDist := -1
	for _, c := range candidates {
		dist := levenshtein(name, c)
		if dist <= 2 && (bestDist == -1 || dist < bestDist) {
			best = c
			bestDist = dist
		}
	}
	if best == "" {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}

// levenshtein computes edit distance for the "did you mean" suggestion
// required by spec.md §7's NameError taxonomy.
func levenshtein(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	return int(math.Min(float64(a), math.Min(float64(b), float64(c))))
}
