// Package stripsground wires the pipeline stages of spec.md §2 into a
// single entry point: load a domain+problem AST, ground it into a
// propositional task, run the post-grounding analyses (h² mutexes, lifted
// mutex groups, the landmark graph), and hand the result to the LAMA-style
// search fringe. Stage order is strictly acyclic, as spec §2 requires; this
// file is the teacher's engine.go reworked from "drive one interactive game
// session" to "drive one grounding+analysis+search run".
package stripsground

import (
	"fmt"

	"github.com/keelform/stripsground/internal/config"
	"github.com/keelform/stripsground/internal/diag"
	"github.com/keelform/stripsground/internal/ground"
	"github.com/keelform/stripsground/internal/landmark"
	"github.com/keelform/stripsground/internal/mgroup"
	"github.com/keelform/stripsground/internal/mutex"
	"github.com/keelform/stripsground/internal/pddlast"
	"github.com/keelform/stripsground/internal/search"
	"github.com/keelform/stripsground/internal/strips"
)

// Result bundles everything one Run produces: the grounded task and the
// output of each post-grounding analysis stage.
type Result struct {
	Task      *strips.Task
	Mutexes   *mutex.Table
	Groups    []mgroup.Group
	Landmarks *landmark.Graph
	Search    search.Result
}

// Pipeline holds the configuration and diagnostics handle shared by every
// stage of one Run (spec §9's explicit-handle replacement for the source's
// process-wide error channel).
type Pipeline struct {
	Config config.Config
	Diag   *diag.Diagnostics
}

// New creates a Pipeline with the given config that reports through the
// given Diagnostics handle.
func New(cfg config.Config, d *diag.Diagnostics) *Pipeline {
	return &Pipeline{Config: cfg, Diag: d}
}

// Run executes the full stage order over domainRoot/problemRoot (each the
// root pddlast.Node of a JSON-encoded domain or problem AST, spec §5's
// substitute for the out-of-scope Lisp tokenizer), stopping early with an
// unsolvable Result if the grounder proves the goal unreachable (spec
// §4.3.5).
func (p *Pipeline) Run(domainRoot, problemRoot pddlast.Node, runSearch bool) (*Result, error) {
	p.Diag.Stage("load")
	dom, err := pddlast.LoadDomain(domainRoot)
	if err != nil {
		return nil, fmt.Errorf("stripsground: loading domain: %w", err)
	}
	prob, err := pddlast.LoadProblem(problemRoot, dom)
	if err != nil {
		return nil, fmt.Errorf("stripsground: loading problem: %w", err)
	}

	p.Diag.Stage("ground")
	g := &ground.Grounder{Domain: dom, Problem: prob, Diag: p.Diag}
	task, err := g.Ground()
	if err != nil {
		return nil, fmt.Errorf("stripsground: grounding: %w", err)
	}

	res := &Result{Task: task}
	if task.GoalUnreachable {
		return res, nil
	}

	p.Diag.Stage("mutex")
	res.Mutexes = mutex.Run(task)

	if p.Config.MutexGroup.Enabled {
		p.Diag.Stage("mgroup")
		res.Groups = mgroup.Ground(mgroup.Infer(task))
	}

	p.Diag.Stage("landmark")
	provider := providerFor(p.Config.Landmark.Provider)
	lg, err := provider.Build(task)
	if err != nil {
		p.Diag.Warn(diag.Location{}, "landmark graph unavailable from provider %s: %v", provider.Name(), err)
	} else {
		res.Landmarks = lg
	}

	if runSearch {
		p.Diag.Stage("search")
		res.Search = search.BestFirstSearch(task, search.Options{
			MaxExpansions: p.Config.Search.MaxExpansions,
			BoostAmount:   p.Config.Search.BoostAmount,
			Landmarks:     res.Landmarks,
		})
	}

	return res, nil
}

func providerFor(name string) landmark.Provider {
	switch name {
	case "ao1":
		return landmark.AO1
	case "ao2":
		return landmark.AO2
	case "lm-cut":
		return landmark.LMCut
	case "dof":
		return landmark.DOF
	default:
		return landmark.RHW{}
	}
}
