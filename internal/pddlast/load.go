package pddlast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/keelform/stripsground/internal/diag"
	"github.com/keelform/stripsground/internal/fo"
)

// scope maps a parameter name to its 0-based index within the action (or
// quantifier body) currently being loaded, so Term references can be built
// as fo.ParamTerm instead of fo.ObjectTerm.
type scope struct {
	parent *scope
	names  []string // index = parameter index
}

func (s *scope) resolve(name string) (int, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		for i, n := range cur.names {
			if n == name {
				return i, true
			}
		}
	}
	return 0, false
}

// LoadDomain builds an *fo.Domain from a (define (domain ...) ...) node.
func LoadDomain(root Node) (*fo.Domain, error) {
	if root.Sym(0) != "define" {
		return nil, diag.Parse(diag.Location{Line: root.Line}, "expected (define ...) at top level")
	}
	dom := &fo.Domain{Types: fo.NewTypeTable(), Predicates: fo.NewPredicateTable()}
	dom.Constants = fo.NewObjectTable(dom.Types)

	for _, child := range root.Children[1:] {
		if child.IsLeaf() {
			continue
		}
		head := child.Sym(0)
		switch {
		case strings.HasPrefix(head, "domain"):
			// (domain NAME)
			if len(child.Children) > 1 {
				dom.Name = child.Children[1].Text
			}
		case head == ":requirements":
			names := make([]string, 0, len(child.Children)-1)
			for _, r := range child.Children[1:] {
				names = append(names, r.Text)
			}
			flags, err := fo.ParseRequireFlags(names)
			if err != nil {
				return nil, diag.Parse(diag.Location{Line: child.Line}, "%s", err)
			}
			dom.Require = flags
		case head == ":types":
			if err := loadTypes(dom.Types, child.Children[1:]); err != nil {
				return nil, err
			}
		case head == ":constants":
			objs, err := loadTypedList(child.Children[1:], child.Line)
			if err != nil {
				return nil, err
			}
			for _, o := range objs {
				dom.Constants.Declare(fo.Object{Name: o.name, Type: o.typ, IsConstant: true})
			}
		case head == ":predicates":
			for _, pchild := range child.Children[1:] {
				pred, err := loadPredicateDecl(pchild)
				if err != nil {
					return nil, err
				}
				dom.Predicates.Declare(pred)
			}
		case head == ":functions":
			for _, fchild := range child.Children[1:] {
				fn, err := loadFunctionDecl(fchild)
				if err != nil {
					return nil, err
				}
				dom.Predicates.DeclareFunc(fn)
			}
		case head == ":action":
			act, err := loadAction(child, dom)
			if err != nil {
				return nil, err
			}
			dom.Actions = append(dom.Actions, act)
		}
	}
	return dom, nil
}

// LoadProblem builds an *fo.Problem from a (define (problem ...) ...) node,
// over the objects/predicates of dom.
func LoadProblem(root Node, dom *fo.Domain) (*fo.Problem, error) {
	if root.Sym(0) != "define" {
		return nil, diag.Parse(diag.Location{Line: root.Line}, "expected (define ...) at top level")
	}
	prob := &fo.Problem{Objects: fo.NewObjectTable(dom.Types)}

	for _, child := range root.Children[1:] {
		if child.IsLeaf() {
			continue
		}
		head := child.Sym(0)
		switch {
		case strings.HasPrefix(head, "problem"):
			if len(child.Children) > 1 {
				prob.Name = child.Children[1].Text
			}
		case head == ":domain":
			if len(child.Children) > 1 {
				prob.Domain = child.Children[1].Text
			}
		case head == ":objects":
			objs, err := loadTypedList(child.Children[1:], child.Line)
			if err != nil {
				return nil, err
			}
			for _, o := range objs {
				prob.Objects.Declare(fo.Object{Name: o.name, Type: o.typ})
			}
			for _, name := range dom.Constants.Extent(fo.ObjectType) {
				c, _ := dom.Constants.Get(name)
				prob.Objects.Declare(c)
			}
		case head == ":init":
			atoms := make([]fo.Cond, 0, len(child.Children)-1)
			for _, a := range child.Children[1:] {
				c, err := loadCond(a, nil, dom.Predicates, true)
				if err != nil {
					return nil, err
				}
				atoms = append(atoms, c)
			}
			prob.Init = fo.And(atoms...)
		case head == ":goal":
			if len(child.Children) < 2 {
				return nil, diag.Parse(diag.Location{Line: child.Line}, ":goal with no condition")
			}
			g, err := loadCond(child.Children[1], nil, dom.Predicates, false)
			if err != nil {
				return nil, err
			}
			prob.Goal = g
		case head == ":metric":
			// (:metric minimize (total-cost)) -- only total-cost minimization
			// is meaningful for the cost model of spec §3.2; anything else is
			// accepted but ignored with a warning left to the caller.
			if len(child.Children) >= 3 {
				fv := FValue{Func: child.Children[2].Sym(0)}
				prob.Metric = &fv
			}
		}
	}
	return prob, nil
}

type FValue = fo.FValue

type typedObj struct{ name, typ string }

// loadTypedList parses a PDDL typed list: `a b c - type1 d e - type2 f` (no
// trailing type means fo.ObjectType).
func loadTypedList(nodes []Node, line int) ([]typedObj, error) {
	var out []typedObj
	var pending []string
	i := 0
	for i < len(nodes) {
		if nodes[i].Text == "-" {
			if i+1 >= len(nodes) {
				return nil, diag.Parse(diag.Location{Line: line}, "typed list: dangling '-'")
			}
			typ := typeNameOf(nodes[i+1])
			for _, n := range pending {
				out = append(out, typedObj{name: n, typ: typ})
			}
			pending = nil
			i += 2
			continue
		}
		pending = append(pending, nodes[i].Text)
		i++
	}
	for _, n := range pending {
		out = append(out, typedObj{name: n, typ: fo.ObjectType})
	}
	return out, nil
}

// typeNameOf handles a plain type symbol or an (either t1 t2 ...) node; for
// either it returns a synthesized name and the caller is expected to have
// pre-declared it via loadTypes. Here we just return a canonical name.
func typeNameOf(n Node) string {
	if n.IsLeaf() {
		return n.Text
	}
	if n.Sym(0) == "either" {
		parts := make([]string, 0, len(n.Children)-1)
		for _, c := range n.Children[1:] {
			parts = append(parts, c.Text)
		}
		return "either(" + strings.Join(parts, ",") + ")"
	}
	return n.Text
}

// loadTypes declares every type named in a :types section, including
// synthesizing either-types encountered as a type's parent spec, e.g.
// `truck car - vehicle` and `vehicle - (either movable fixed)`.
func loadTypes(tt *fo.TypeTable, nodes []Node) error {
	var pending []string
	i := 0
	for i < len(nodes) {
		if nodes[i].Text == "-" {
			if i+1 >= len(nodes) {
				return fmt.Errorf("pddlast: :types: dangling '-'")
			}
			parentNode := nodes[i+1]
			if !parentNode.IsLeaf() && parentNode.Sym(0) == "either" {
				comps := make([]string, 0, len(parentNode.Children)-1)
				for _, c := range parentNode.Children[1:] {
					comps = append(comps, c.Text)
				}
				eitherName := typeNameOf(parentNode)
				if !tt.Has(eitherName) {
					if err := tt.DeclareEither(eitherName, comps); err != nil {
						return err
					}
				}
				for _, n := range pending {
					if err := tt.Declare(n, eitherName); err != nil {
						return err
					}
				}
			} else {
				parent := parentNode.Text
				if !tt.Has(parent) {
					if err := tt.Declare(parent, fo.ObjectType); err != nil {
						return err
					}
				}
				for _, n := range pending {
					if err := tt.Declare(n, parent); err != nil {
						return err
					}
				}
			}
			pending = nil
			i += 2
			continue
		}
		pending = append(pending, nodes[i].Text)
		i++
	}
	for _, n := range pending {
		if !tt.Has(n) {
			if err := tt.Declare(n, fo.ObjectType); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadPredicateDecl(n Node) (fo.Predicate, error) {
	if n.IsLeaf() {
		return fo.Predicate{Name: n.Text}, nil
	}
	name := n.Sym(0)
	params, err := loadParamList(n.Children[1:], n.Line)
	if err != nil {
		return fo.Predicate{}, err
	}
	return fo.Predicate{Name: name, Params: params}, nil
}

func loadFunctionDecl(n Node) (fo.Function, error) {
	name := n.Sym(0)
	params, err := loadParamList(n.Children[1:], n.Line)
	if err != nil {
		return fo.Function{}, err
	}
	return fo.Function{Name: name, Params: params}, nil
}

func loadParamList(nodes []Node, line int) ([]fo.Param, error) {
	objs, err := loadTypedList(nodes, line)
	if err != nil {
		return nil, err
	}
	params := make([]fo.Param, len(objs))
	for i, o := range objs {
		params[i] = fo.Param{Name: strings.TrimPrefix(o.name, "?"), Type: o.typ}
	}
	return params, nil
}

func loadAction(n Node, dom *fo.Domain) (fo.Action, error) {
	act := fo.Action{Name: n.Sym(1)}
	sc := &scope{}

	var preNode, effNode *Node
	for i := 2; i < len(n.Children); i++ {
		c := n.Children[i]
		switch c.Text {
		case ":parameters":
			if i+1 >= len(n.Children) {
				return act, diag.Parse(diag.Location{Line: n.Line}, "action %s: :parameters with no list", act.Name)
			}
			plist := n.Children[i+1]
			params, err := loadParamList(plist.Children, plist.Line)
			if err != nil {
				return act, err
			}
			act.Params = make([]fo.ActionParam, len(params))
			sc.names = make([]string, len(params))
			for j, p := range params {
				act.Params[j] = fo.ActionParam{Name: p.Name, Type: p.Type, Inherit: -1}
				sc.names[j] = p.Name
			}
			i++
		case ":precondition":
			if i+1 < len(n.Children) {
				preNode = &n.Children[i+1]
				i++
			}
		case ":effect":
			if i+1 < len(n.Children) {
				effNode = &n.Children[i+1]
				i++
			}
		}
	}

	if preNode != nil {
		pre, err := loadCond(*preNode, sc, dom.Predicates, false)
		if err != nil {
			return act, err
		}
		act.Pre = pre
	} else {
		act.Pre = fo.BoolLit(true)
	}
	if effNode != nil {
		eff, err := loadCond(*effNode, sc, dom.Predicates, false)
		if err != nil {
			return act, err
		}
		act.Eff = eff
	} else {
		act.Eff = fo.And()
	}
	return act, nil
}

// loadCond recursively builds a fo.Cond from a Node. ground=true means this
// node is part of :init, where every atom argument must resolve to a
// concrete object (no enclosing scope).
func loadCond(n Node, sc *scope, preds *fo.PredicateTable, ground bool) (fo.Cond, error) {
	if n.IsLeaf() {
		return fo.Cond{}, diag.Parse(diag.Location{Line: n.Line}, "expected a condition, found bare symbol %q", n.Text)
	}
	head := n.Sym(0)
	switch head {
	case "and":
		children := make([]fo.Cond, 0, len(n.Children)-1)
		for _, c := range n.Children[1:] {
			cc, err := loadCond(c, sc, preds, ground)
			if err != nil {
				return fo.Cond{}, err
			}
			children = append(children, cc)
		}
		return fo.And(children...), nil
	case "or":
		children := make([]fo.Cond, 0, len(n.Children)-1)
		for _, c := range n.Children[1:] {
			cc, err := loadCond(c, sc, preds, ground)
			if err != nil {
				return fo.Cond{}, err
			}
			children = append(children, cc)
		}
		return fo.Or(children...), nil
	case "not":
		if len(n.Children) != 2 {
			return fo.Cond{}, diag.Parse(diag.Location{Line: n.Line}, "(not ...) takes exactly one argument")
		}
		inner, err := loadCond(n.Children[1], sc, preds, ground)
		if err != nil {
			return fo.Cond{}, err
		}
		if inner.Kind != fo.KindAtom {
			return fo.Cond{}, diag.Semantic(diag.Location{Line: n.Line}, "cannot negate a non-atom condition directly")
		}
		return inner.Negated(), nil
	case "imply":
		if len(n.Children) != 3 {
			return fo.Cond{}, diag.Parse(diag.Location{Line: n.Line}, "(imply ...) takes exactly two arguments")
		}
		l, err := loadCond(n.Children[1], sc, preds, ground)
		if err != nil {
			return fo.Cond{}, err
		}
		r, err := loadCond(n.Children[2], sc, preds, ground)
		if err != nil {
			return fo.Cond{}, err
		}
		lc, rc := l, r
		return fo.Cond{Kind: fo.KindImply, Left: &lc, Right: &rc}, nil
	case "forall", "exists":
		if len(n.Children) != 3 {
			return fo.Cond{}, diag.Parse(diag.Location{Line: n.Line}, "(%s ...) takes a parameter list and a body", head)
		}
		params, err := loadParamList(n.Children[1].Children, n.Line)
		if err != nil {
			return fo.Cond{}, err
		}
		if len(params) != 1 {
			return fo.Cond{}, diag.Semantic(diag.Location{Line: n.Line}, "(%s ...) with multi-variable parameter list not supported; split into nested quantifiers", head)
		}
		childSc := &scope{parent: sc, names: []string{params[0].Name}}
		body, err := loadCond(n.Children[2], childSc, preds, ground)
		if err != nil {
			return fo.Cond{}, err
		}
		kind := fo.KindForall
		if head == "exists" {
			kind = fo.KindExists
		}
		return fo.Cond{Kind: kind, QuantParam: params[0], Body: &body}, nil
	case "when":
		if len(n.Children) != 3 {
			return fo.Cond{}, diag.Parse(diag.Location{Line: n.Line}, "(when ...) takes a precondition and an effect")
		}
		pre, err := loadCond(n.Children[1], sc, preds, ground)
		if err != nil {
			return fo.Cond{}, err
		}
		eff, err := loadCond(n.Children[2], sc, preds, ground)
		if err != nil {
			return fo.Cond{}, err
		}
		return fo.Cond{Kind: fo.KindWhen, When: &pre, Eff: &eff}, nil
	case "increase":
		if len(n.Children) != 3 {
			return fo.Cond{}, diag.Parse(diag.Location{Line: n.Line}, "(increase ...) takes an lvalue and a value")
		}
		lv := n.Children[1]
		lvalue, largs := lv.Sym(0), loadTerms(lv.Children[1:], sc)
		val := n.Children[2]
		fv := fo.FValue{}
		if num, err := strconv.ParseFloat(val.Text, 64); val.IsLeaf() && err == nil {
			fv = fo.FValue{IsNumber: true, Number: num}
		} else {
			fv = fo.FValue{Func: val.Sym(0), Args: loadTerms(val.Children[1:], sc)}
		}
		return fo.Cond{Kind: fo.KindIncrease, LValue: lvalue, LArgs: largs, RValue: fv}, nil
	case "=":
		if len(n.Children) != 3 {
			return fo.Cond{}, diag.Parse(diag.Location{Line: n.Line}, "(= ...) takes exactly two arguments")
		}
		return fo.Atom("=", false, loadTerms(n.Children[1:], sc)...), nil
	default:
		pred, ok := preds.Get(head)
		if !ok {
			preds.Declare(fo.Predicate{Name: head})
		} else {
			_ = pred
		}
		args := loadTerms(n.Children[1:], sc)
		return fo.Atom(head, false, args...), nil
	}
}

func loadTerms(nodes []Node, sc *scope) []fo.Term {
	terms := make([]fo.Term, len(nodes))
	for i, n := range nodes {
		name := n.Text
		if strings.HasPrefix(name, "?") && sc != nil {
			if idx, ok := sc.resolve(strings.TrimPrefix(name, "?")); ok {
				terms[i] = fo.ParamTerm(idx)
				continue
			}
		}
		terms[i] = fo.ObjectTerm(name)
	}
	return terms
}
