package fo

import "fmt"

// RequireFlags is the set of :requirements declared by a domain (spec §6).
// It is a bitset rather than a []string so that the aggregate flags (:adl,
// :quantified-preconditions, :fluents) can be expanded once at parse time and
// every later check is a single bit test.
type RequireFlags uint32

const (
	ReqStrips RequireFlags = 1 << iota
	ReqTyping
	ReqNegativePreconditions
	ReqDisjunctivePreconditions
	ReqEquality
	ReqExistentialPreconditions
	ReqUniversalPreconditions
	ReqConditionalEffects
	ReqNumericFluents
	ReqObjectFluents
	ReqActionCosts
)

// expand resolves the aggregate requirement names of spec.md §6 into the
// primitive bits they stand for: :adl is the union of STRIPS/typing/neg/
// disj/eq/exists/forall/condeff; :quantified-preconditions is exists+forall;
// :fluents is numeric+object fluents. This mirrors cpddl's require.c, which
// the distillation compressed into a flat flag list (see SPEC_FULL §3).
func expand(name string) (RequireFlags, bool) {
	switch name {
	case ":strips":
		return ReqStrips, true
	case ":typing":
		return ReqTyping, true
	case ":negative-preconditions":
		return ReqNegativePreconditions, true
	case ":disjunctive-preconditions":
		return ReqDisjunctivePreconditions, true
	case ":equality":
		return ReqEquality, true
	case ":existential-preconditions":
		return ReqExistentialPreconditions, true
	case ":universal-preconditions":
		return ReqUniversalPreconditions, true
	case ":conditional-effects":
		return ReqConditionalEffects, true
	case ":numeric-fluents":
		return ReqNumericFluents, true
	case ":object-fluents":
		return ReqObjectFluents, true
	case ":action-costs":
		return ReqActionCosts, true
	case ":adl":
		return ReqStrips | ReqTyping | ReqNegativePreconditions | ReqDisjunctivePreconditions |
			ReqEquality | ReqExistentialPreconditions | ReqUniversalPreconditions | ReqConditionalEffects, true
	case ":quantified-preconditions":
		return ReqExistentialPreconditions | ReqUniversalPreconditions, true
	case ":fluents":
		return ReqNumericFluents | ReqObjectFluents, true
	default:
		return 0, false
	}
}

// ParseRequireFlags turns the :requirements list's raw tokens into a
// RequireFlags bitset. An unrecognised requirement name is a structural
// parse error (spec §7).
func ParseRequireFlags(names []string) (RequireFlags, error) {
	var flags RequireFlags
	for _, n := range names {
		bits, ok := expand(n)
		if !ok {
			return 0, fmt.Errorf("fo: unknown requirement flag %q", n)
		}
		flags |= bits
	}
	return flags, nil
}

func (r RequireFlags) Has(f RequireFlags) bool { return r&f == f }

// Check validates that a Cond's shape is licensed by the declared
// requirements, i.e. that using a PDDL feature without declaring the
// corresponding :requirements flag is a semantic error rather than silently
// accepted (SPEC_FULL §3, grounded on cpddl's require.c / pddl.c).
func (r RequireFlags) Check(c Cond) error {
	var err error
	c.Walk(func(n Cond) {
		if err != nil {
			return
		}
		switch n.Kind {
		case KindForall:
			if !r.Has(ReqUniversalPreconditions) {
				err = fmt.Errorf("fo: (forall ...) used without :universal-preconditions")
			}
		case KindExists:
			if !r.Has(ReqExistentialPreconditions) {
				err = fmt.Errorf("fo: (exists ...) used without :existential-preconditions")
			}
		case KindOr, KindImply:
			if !r.Has(ReqDisjunctivePreconditions) {
				err = fmt.Errorf("fo: disjunctive condition used without :disjunctive-preconditions")
			}
		case KindWhen:
			if !r.Has(ReqConditionalEffects) {
				err = fmt.Errorf("fo: (when ...) used without :conditional-effects")
			}
		case KindAtom:
			if n.Neg && !r.Has(ReqNegativePreconditions) && !r.Has(ReqDisjunctivePreconditions) {
				err = fmt.Errorf("fo: negated atom used without :negative-preconditions")
			}
		case KindIncrease:
			if !r.Has(ReqActionCosts) && !r.Has(ReqNumericFluents) {
				err = fmt.Errorf("fo: (increase ...) used without :action-costs or :numeric-fluents")
			}
		}
	})
	return err
}
