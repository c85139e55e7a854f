// Package preproc is the preprocessed-action builder of spec.md §4.2: it
// splits a normalised action into precondition atom lists classified by
// kind (equality, negative-static, positive), effect lists, and a tree of
// children for compiled-away conditional effects.
package preproc

import (
	"fmt"

	"github.com/keelform/stripsground/internal/fo"
)

// EqAtom is one entry of PreEq: an equality or inequality between two terms.
type EqAtom struct {
	Left, Right fo.Term
	Neg         bool // true means "!="
}

// Atom is a precondition or effect atom with its argument terms, relative to
// the owning action's parameter vector.
type Atom struct {
	Pred string
	Args []fo.Term
}

// IncreaseTerm is a (increase lvalue value) effect.
type IncreaseTerm struct {
	LValue string
	LArgs  []fo.Term
	Value  fo.FValue
}

// Action is one preprocessed action: either a root action or a (when ...)
// child compiled out of its parent (spec §4.2 "Each (when ...) child is
// lifted into its own preprocessed action").
type Action struct {
	Name string // printable name; children get a " [when N]" suffix

	ParamTypes []string // the action's own parameter type vector
	MaxArgSize int       // len(ParamTypes)

	PreEq        []EqAtom
	PreNegStatic []Atom
	Pre          []Atom

	AddEff   []Atom
	DelEff   []Atom
	Increase []IncreaseTerm

	CondEffSize int // number of (when ...) children, 0 for a child itself

	Parent   *Action // nil for a root action
	Children []*Action
}

// Build splits a normalised action (whose Pre is an OR-of-ANDs per spec §3.1
// and whose Eff is an AND of {atom, ASSIGN, INCREASE, WHEN}) into one
// preprocessed Action per top-level precondition disjunct -- this is the
// "splitting disjunctive operators" responsibility spec.md §2's stage table
// assigns to the normaliser but that this implementation performs here,
// where the action-level parameter vector is still in scope.
func Build(act fo.Action) ([]*Action, error) {
	branches := disjuncts(act.Pre)

	paramTypes := make([]string, len(act.Params))
	for i, p := range act.Params {
		paramTypes[i] = p.Type
	}

	out := make([]*Action, 0, len(branches))
	for i, branch := range branches {
		name := act.Name
		if len(branches) > 1 {
			name = fmt.Sprintf("%s~%d", act.Name, i)
		}
		root := &Action{Name: name, ParamTypes: paramTypes, MaxArgSize: len(paramTypes)}
		if err := classifyPre(root, branch); err != nil {
			return nil, err
		}
		if err := buildEffects(root, act.Eff); err != nil {
			return nil, err
		}
		root.CondEffSize = len(root.Children)
		out = append(out, root)
	}
	return out, nil
}

// disjuncts flattens a normalised precondition into its top-level AND
// conjuncts, one per OR branch. A plain AND (no top OR) yields a single
// branch; BOOL(true) yields a single empty branch; BOOL(false) yields no
// branches (the action can never apply).
func disjuncts(pre fo.Cond) [][]fo.Cond {
	switch pre.Kind {
	case fo.KindBool:
		if pre.BoolValue {
			return [][]fo.Cond{{}}
		}
		return nil
	case fo.KindOr:
		var out [][]fo.Cond
		for _, ch := range pre.Children {
			out = append(out, disjuncts(ch)...)
		}
		return out
	case fo.KindAnd:
		return [][]fo.Cond{pre.Children}
	default:
		return [][]fo.Cond{{pre}}
	}
}

func classifyPre(a *Action, atoms []fo.Cond) error {
	for _, c := range atoms {
		if c.Kind != fo.KindAtom {
			return fmt.Errorf("preproc: action %s: unexpected non-atom %s in precondition after normalisation", a.Name, c.Kind)
		}
		if c.Pred == "=" {
			a.PreEq = append(a.PreEq, EqAtom{Left: c.Args[0], Right: c.Args[1], Neg: c.Neg})
			continue
		}
		if c.Neg {
			a.PreNegStatic = append(a.PreNegStatic, Atom{Pred: c.Pred, Args: c.Args})
			continue
		}
		a.Pre = append(a.Pre, Atom{Pred: c.Pred, Args: c.Args})
	}
	return nil
}

func buildEffects(a *Action, eff fo.Cond) error {
	children := eff.Children
	if eff.Kind != fo.KindAnd {
		children = []fo.Cond{eff}
	}
	for _, c := range children {
		switch c.Kind {
		case fo.KindAtom:
			if c.Neg {
				a.DelEff = append(a.DelEff, Atom{Pred: c.Pred, Args: c.Args})
			} else {
				a.AddEff = append(a.AddEff, Atom{Pred: c.Pred, Args: c.Args})
			}
		case fo.KindIncrease:
			a.Increase = append(a.Increase, IncreaseTerm{LValue: c.LValue, LArgs: c.LArgs, Value: c.RValue})
		case fo.KindAssign:
			// object-fluent assignment: not used by cost bookkeeping, but
			// recorded the same shape as an increase with the assigned
			// value so the grounder can re-evaluate the function table.
			a.Increase = append(a.Increase, IncreaseTerm{LValue: c.LValue, LArgs: c.LArgs, Value: c.RValue})
		case fo.KindWhen:
			if a.Parent != nil {
				return fmt.Errorf("preproc: action %s: nested (when ...) is rejected", a.Name)
			}
			child := &Action{
				Name:       fmt.Sprintf("%s [when %d]", a.Name, len(a.Children)),
				ParamTypes: a.ParamTypes,
				MaxArgSize: a.MaxArgSize,
				Parent:     a,
			}
			// child inherits the parent's pre* lists and appends its own
			// local precondition atoms (spec §4.2).
			child.PreEq = append(append([]EqAtom(nil), a.PreEq...))
			child.PreNegStatic = append([]Atom(nil), a.PreNegStatic...)
			child.Pre = append([]Atom(nil), a.Pre...)
			if err := classifyPre(child, disjuncts(*c.When)[0]); err != nil {
				return err
			}
			if err := buildEffects(child, *c.Eff); err != nil {
				return err
			}
			a.Children = append(a.Children, child)
		case fo.KindBool:
			// a BOOL child in an effect position is vacuous; ignore.
		default:
			return fmt.Errorf("preproc: action %s: unsupported effect node kind %s", a.Name, c.Kind)
		}
	}
	return nil
}

// LocalPrecondition returns just the atoms classifyPre added for this
// action's own (when) branch, i.e. Pre/PreNegStatic/PreEq with the parent's
// prefix removed -- used by the grounder when subtracting a parent's
// precondition from a child's residual precondition (spec §4.3.3).
func (a *Action) LocalPrecondition() (pre []Atom, preNegStatic []Atom, preEq []EqAtom) {
	if a.Parent == nil {
		return a.Pre, a.PreNegStatic, a.PreEq
	}
	pre = a.Pre[len(a.Parent.Pre):]
	preNegStatic = a.PreNegStatic[len(a.Parent.PreNegStatic):]
	preEq = a.PreEq[len(a.Parent.PreEq):]
	return
}
