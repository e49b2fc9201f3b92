package main

import (
	"fmt"
	"go/token"

	"golang.org/x/tools/go/packages"
)

// LoadResult holds the output of package loading.
type LoadResult struct {
	Packages []*packages.Package
	Fset     *token.FileSet

	// known maps loaded package paths to true; analysis is restricted to
	// these so dependency functions pulled in transitively are skipped.
	known map[string]bool
}

// IsKnownPkg reports whether a package path was part of the loaded set.
func (r *LoadResult) IsKnownPkg(path string) bool {
	return r.known[path]
}

// LoadPackages loads and type-checks all packages under dir.
func LoadPackages(dir string, prog *Progress) (*LoadResult, error) {
	prog.Log("Loading packages from %s ...", dir)

	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
			packages.NeedImports | packages.NeedDeps | packages.NeedTypes |
			packages.NeedSyntax | packages.NeedTypesInfo | packages.NeedModule,
		Dir:   dir,
		Fset:  token.NewFileSet(),
		Tests: false,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found under %s", dir)
	}

	var errCount int
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			errCount++
			if errCount <= 10 {
				prog.Verbose("  load error: %v", e)
			}
		}
	})
	if errCount > 0 {
		prog.Warn("%d package load errors (analysis continues on what loaded)", errCount)
	}

	known := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		known[p.PkgPath] = true
	}

	prog.Log("Loaded %d packages", len(pkgs))
	return &LoadResult{Packages: pkgs, Fset: cfg.Fset, known: known}, nil
}
