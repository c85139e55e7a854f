/*
Groundctl grounds a PDDL-like domain and problem (given as a JSON-encoded
abstract syntax tree, see internal/pddlast) into a propositional task, runs
the h² mutex, lifted mutex-group and landmark-graph analyses over it, and
optionally drives the LAMA-style search fringe to find a plan.

Usage:

	groundctl [flags] DOMAIN.json PROBLEM.json

The flags are:

	-v, --version
		Give the current version of groundctl and then exit.

	-c, --config FILE
		Load grounder/search/landmark knobs from the given TOML file.
		Defaults to the built-in configuration.

	-s, --search
		Run the LAMA fringe and print a plan (or report unsolvability)
		instead of only printing the grounded task.

	-i, --inspect
		Drop into a readline-backed REPL over the grounded result
		instead of printing it and exiting.

	--cache FILE
		Store each grounded task in the given sqlite file, keyed by a hash
		of the domain and problem ASTs and the active configuration. The
		cache is only written: every run grounds the task again.
*/
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/keelform/stripsground"
	"github.com/keelform/stripsground/internal/config"
	"github.com/keelform/stripsground/internal/diag"
	"github.com/keelform/stripsground/internal/pddlast"
	"github.com/keelform/stripsground/internal/taskcache"
	"github.com/keelform/stripsground/internal/version"
)

const (
	ExitSuccess = iota
	ExitInitError
	ExitGroundError
)

var (
	returnCode   = ExitSuccess
	flagVersion  = pflag.BoolP("version", "v", false, "Gives the version info")
	configFile   = pflag.StringP("config", "c", "", "TOML file with grounder/search/landmark knobs")
	runSearch    = pflag.BoolP("search", "s", false, "Run the LAMA fringe and print a plan")
	inspect      = pflag.BoolP("inspect", "i", false, "Start a readline-backed REPL over the grounded result")
	cacheFile    = pflag.String("cache", "", "sqlite file to use as a ground-task cache")
)

func main() {
	defer func() { os.Exit(returnCode) }()
	pflag.Parse()

	if *flagVersion {
		fmt.Println(version.Current)
		return
	}

	if pflag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: groundctl [flags] DOMAIN.json PROBLEM.json")
		returnCode = ExitInitError
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		returnCode = ExitInitError
		return
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	d := diag.New(logger)

	domainRoot, problemRoot, err := loadAST(pflag.Arg(0), pflag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		returnCode = ExitInitError
		return
	}

	var cache *taskcache.Store
	if *cacheFile != "" {
		cache, err = taskcache.Open(*cacheFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
			returnCode = ExitInitError
			return
		}
		defer cache.Close()
	}

	pipe := stripsground.New(cfg, d)
	result, err := pipe.Run(domainRoot, problemRoot, *runSearch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		returnCode = ExitGroundError
		return
	}

	if cache != nil {
		cfgJSON, _ := json.Marshal(cfg)
		key := taskcache.NewKey(mustJSON(domainRoot), mustJSON(problemRoot), cfgJSON)
		if err := cache.Put(key, result.Task); err != nil {
			d.Warn(diag.Location{}, "caching grounded task: %v", err)
		}
	}

	if *inspect {
		runREPL(result)
		return
	}

	printResult(result)
}

func loadAST(domainPath, problemPath string) (pddlast.Node, pddlast.Node, error) {
	var domainRoot, problemRoot pddlast.Node
	db, err := os.ReadFile(domainPath)
	if err != nil {
		return domainRoot, problemRoot, fmt.Errorf("reading %s: %w", domainPath, err)
	}
	if err := json.Unmarshal(db, &domainRoot); err != nil {
		return domainRoot, problemRoot, fmt.Errorf("parsing %s: %w", domainPath, err)
	}
	pb, err := os.ReadFile(problemPath)
	if err != nil {
		return domainRoot, problemRoot, fmt.Errorf("reading %s: %w", problemPath, err)
	}
	if err := json.Unmarshal(pb, &problemRoot); err != nil {
		return domainRoot, problemRoot, fmt.Errorf("parsing %s: %w", problemPath, err)
	}
	return domainRoot, problemRoot, nil
}

func mustJSON(n pddlast.Node) []byte {
	b, _ := json.Marshal(n)
	return b
}

func printResult(result *stripsground.Result) {
	task := result.Task
	fmt.Printf("facts: %d\n", len(task.Facts))
	fmt.Printf("operators: %d\n", len(task.Operators))
	if task.GoalUnreachable {
		fmt.Println("goal: unreachable")
		return
	}
	if result.Mutexes != nil {
		fmt.Printf("mutex pairs: %d\n", len(result.Mutexes.Pairs()))
	}
	fmt.Printf("mutex groups: %d\n", len(result.Groups))
	if result.Landmarks != nil {
		fmt.Printf("landmarks: %d\n", len(result.Landmarks.Nodes))
	}
	if result.Search.Found {
		fmt.Printf("plan found: %d steps, cost %d (%d expansions)\n",
			len(result.Search.Plan), result.Search.Cost, result.Search.Expansions)
	} else if result.Search.Expansions > 0 {
		fmt.Printf("no plan found after %d expansions\n", result.Search.Expansions)
	}
}

// runREPL is a small inspection shell over an already-grounded result,
// following the teacher's own readline-over-stdin pattern (cmd/tqi/main.go)
// rather than its own plain bufio.Scanner.
func runREPL(result *stripsground.Result) {
	rl, err := readline.New("groundctl> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		returnCode = ExitInitError
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			return
		}
		switch line {
		case "facts":
			for _, f := range result.Task.Facts {
				fmt.Printf("%d: %s\n", f.ID, f.Name)
			}
		case "operators":
			for _, op := range result.Task.Operators {
				fmt.Printf("%d: %s (cost %d)\n", op.ID, op.Name, op.Cost)
			}
		case "groups":
			for i, g := range result.Groups {
				fmt.Printf("%d: %v (exactly-one=%v)\n", i, g.Facts, g.ExactlyOne)
			}
		case "quit", "exit":
			return
		default:
			fmt.Println("commands: facts, operators, groups, quit")
		}
	}
}
