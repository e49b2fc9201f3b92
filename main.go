package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Using a separate function ensures all defers
// execute even on error paths, unlike os.Exit which skips deferred calls.
func run() error {
	configPath := flag.String("config", ".depgraph.yml", "Optional YAML config file")
	skipGenerated := flag.Bool("skip-generated", true, "Skip .pb.go files")
	skipTests := flag.Bool("skip-tests", true, "Skip _test.go files")
	verbose := flag.Bool("verbose", false, "Print detailed progress")
	validate := flag.Bool("validate", false, "Run validation queries after write")
	dotDir := flag.String("dot", "", "Directory for per-function CDG .dot files")
	printDump := flag.Bool("print", false, "Dump dependence maps to stdout")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: depgraph-gen [flags] <module-dir> <output.db>\n\n")
		fmt.Fprintf(os.Stderr, "Computes control and data dependence maps over a Go module's SSA\nand writes them to a SQLite database.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		return fmt.Errorf("expected 2 arguments, got %d", flag.NArg())
	}

	dir, err := filepath.Abs(flag.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid module dir: %w", err)
	}
	outputPath := flag.Arg(1)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	// flags override the config file when set explicitly
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "skip-generated":
			cfg.SkipGenerated = *skipGenerated
		case "skip-tests":
			cfg.SkipTests = *skipTests
		case "verbose":
			cfg.Verbose = *verbose
		case "validate":
			cfg.Validate = *validate
		case "dot":
			cfg.DotDir = *dotDir
		case "print":
			cfg.Print = *printDump
		}
	})

	prog := NewProgress(cfg.Verbose)

	// Phase 1: load and type-check packages
	load, err := LoadPackages(dir, prog)
	if err != nil {
		return err
	}

	// Phase 2: build SSA
	ssaResult := BuildSSA(load.Packages, prog)
	funcs := AnalysisFuncs(ssaResult, load, cfg)
	prog.Log("Analyzing %d functions", len(funcs))

	// Phase 3: per-function dependence analysis
	graph := NewDepGraph()
	funcInfos := make(map[string]*FuncInfo)
	cdgs := make(map[string]ControlDepMap)

	var cdgEdges, localDeps, nonLocalDeps, skipped int
	for _, fn := range funcs {
		row := funcRow(fn, load)
		if !graph.AddFunc(row) {
			continue // duplicate position (generic instantiations)
		}
		graph.Blocks = append(graph.Blocks, blockRows(fn, row.ID, load)...)

		fi := ExtractFuncInfo(fn)
		pdt := NewPostDomTree(&fi.CFG)

		cdg := ControlDeps(&fi.CFG, pdt, prog)
		graph.AddControlDeps(row.ID, cdg)
		funcInfos[fn.String()] = fi
		cdgs[fn.String()] = cdg
		for _, set := range cdg {
			cdgEdges += len(set)
		}

		aliases := NewFuncAliases(fi)
		oracle := NewFuncMemDep(fi, aliases)
		deps, err := RecordDeps(fi, oracle, aliases, prog)
		if err != nil {
			if errors.Is(err, ErrOrderedAccess) {
				// unsupported by design: drop this function's partial
				// results and keep going
				skipped++
				prog.Verbose("skipping %s: %v", fn.String(), err)
				continue
			}
			return err
		}
		graph.AddDataDeps(row.ID, fi, deps)
		graph.AddMetrics(ComputeMetrics(row.ID, fi, cdg, deps))
		localDeps += len(deps.Local)
		nonLocalDeps += len(deps.NonLocal)

		if cfg.Print {
			printDeps(fn.String(), fi, cdg, deps)
		}
	}
	prog.Log("Created %d control dependence edges, %d local deps, %d non-local deps (%d functions skipped)",
		cdgEdges, localDeps, nonLocalDeps, skipped)

	// Phase 4: persist, with run provenance
	graph.AddMeta("module_dir", dir)
	graph.AddMeta("generated_at", time.Now().UTC().Format(time.RFC3339))
	if git := ReadGitInfo(dir, prog); git.Commit != "" {
		graph.AddMeta("git_commit", git.Commit)
		graph.AddMeta("git_branch", git.Branch)
		graph.AddMeta("git_dirty", strconv.FormatBool(git.Dirty))
	}
	if err := WriteDB(outputPath, graph, cfg.Validate, prog); err != nil {
		return err
	}

	// Phase 5: optional dot export
	if cfg.DotDir != "" {
		if err := WriteDotFiles(cfg.DotDir, funcInfos, cdgs, prog); err != nil {
			return err
		}
	}

	prog.Log("Done.")
	return nil
}

// printDeps dumps one function's dependence maps to stdout.
func printDeps(name string, fi *FuncInfo, cdg ControlDepMap, deps *DataDeps) {
	fmt.Printf("Function: %s\n", name)

	fmt.Printf("  Local dependence map size: %d\n", len(deps.Local))
	for _, instr := range sortedIntKeys(deps.Local) {
		info := deps.Local[instr]
		fmt.Printf("    %d: %s\n", instr, fi.Instrs[instr].Desc)
		if info.Instr >= 0 {
			fmt.Printf("       depends on %d: %s (%s)\n", info.Instr, fi.Instrs[info.Instr].Desc, info.Kind)
		} else {
			fmt.Printf("       %s\n", info.Kind)
		}
	}

	fmt.Printf("  Non-local dependence map size: %d\n", len(deps.NonLocal))
	for _, instr := range sortedIntKeys(deps.NonLocal) {
		fmt.Printf("    %d: %s\n", instr, fi.Instrs[instr].Desc)
		for _, e := range deps.NonLocal[instr] {
			fmt.Printf("       loc base %d offset %d in bb%d\n", e.Loc.Base, e.Loc.Offset, e.Block)
		}
	}

	for _, controller := range sortedDepKeys(cdg) {
		fmt.Printf("  bb%d controls:", controller)
		for _, dependent := range sortedSet(cdg[controller]) {
			fmt.Printf(" bb%d", dependent)
		}
		fmt.Println()
	}
}
