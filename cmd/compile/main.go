// Package main compiles a strategy graph snapshot from a JSON file into a
// target script. Validation findings go to stderr; blocking errors exit
// non-zero without emitting a script.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"strategy-graph-lab/internal/backtester/stub"
	"strategy-graph-lab/internal/codegen"
	"strategy-graph-lab/internal/domain"
	"strategy-graph-lab/internal/graph"
	"strategy-graph-lab/internal/idhash"
	"strategy-graph-lab/internal/lifecycle"
	"strategy-graph-lab/internal/rules"
	"strategy-graph-lab/internal/storage/memory"
	"strategy-graph-lab/internal/validation"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		inPath  = flag.String("in", "", "graph snapshot JSON file (required)")
		outPath = flag.String("out", "", "script output file (default stdout)")
		name    = flag.String("name", "", "strategy name, folded into the version id")
		dryRun  = flag.Bool("dry-run", false, "run a deterministic stub backtest after compiling")
		symbol  = flag.String("symbol", "EURUSD", "symbol for -dry-run")
	)
	flag.Parse()

	if *inPath == "" {
		flag.Usage()
		return fmt.Errorf("-in is required")
	}

	data, err := os.ReadFile(*inPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", *inPath, err)
	}

	var snap domain.GraphSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	g, err := graph.FromSnapshot(snap)
	if err != nil {
		return fmt.Errorf("corrupt snapshot: %w", err)
	}

	result := validation.New(0).Validate(g)
	for _, f := range result.Errors {
		fmt.Fprintf(os.Stderr, "error: %s: %s\n", f.Code, f.Message)
	}
	for _, f := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", f.Code, f.Message)
	}
	if !result.Valid() {
		return fmt.Errorf("%d validation error(s)", len(result.Errors))
	}

	canonical, err := g.Snapshot().CanonicalJSON()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	versionID := idhash.ComputeVersionID(*name, canonical)

	extracted := rules.Extract(g)
	for _, w := range extracted.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.ComponentID, w.Message)
	}

	compiled := codegen.Generate(versionID, extracted.RuleSet, extracted.EntryExpr, extracted.ExitExpr)

	if *outPath == "" {
		fmt.Print(compiled.Script)
	} else {
		if err := os.WriteFile(*outPath, []byte(compiled.Script), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", *outPath, err)
		}
	}
	fmt.Fprintf(os.Stderr, "version %s artifact %s\n", compiled.VersionID, compiled.ArtifactHash)

	if *dryRun {
		return dryRunBacktest(g, *symbol)
	}
	return nil
}

// dryRunBacktest runs the compiled strategy through the stub engine and
// prints the report, exercising the same path the server uses.
func dryRunBacktest(g *graph.Graph, symbol string) error {
	svc := lifecycle.New(lifecycle.Options{
		Strategies: memory.NewStrategyStore(),
		Backtester: stub.NewEngine(),
	})

	results, err := svc.TestStrategy(context.Background(), g, lifecycle.TestOptions{Symbol: symbol})
	if err != nil {
		return fmt.Errorf("dry run: %w", err)
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "dry-run results:\n%s\n", out)
	return nil
}
