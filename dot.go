package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DotCDG renders one function's control dependence map as a Graphviz
// digraph: one record-shaped node per distinct block, one directed edge per
// controller → dependent pair. Node labels carry the block's instructions
// with line breaks re-escaped to \l for left alignment.
func DotCDG(name string, fi *FuncInfo, deps ControlDepMap) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", "cdg-"+name)

	inserted := make(map[int]bool)
	var insertNode = func(blk int) {
		if inserted[blk] {
			return
		}
		inserted[blk] = true
		fmt.Fprintf(&b, "  bb%d [shape=record, label=\"%s\"];\n", blk, dotBlockLabel(fi, blk))
	}

	for _, controller := range sortedDepKeys(deps) {
		insertNode(controller)
		for _, dependent := range sortedSet(deps[controller]) {
			insertNode(dependent)
			fmt.Fprintf(&b, "  bb%d -> bb%d\n", controller, dependent)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// dotBlockLabel lists a block's instructions, one per \l-terminated line,
// escaped for a record label.
func dotBlockLabel(fi *FuncInfo, blk int) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("bb%d:", blk))
	start, end := fi.BlockInstrs(blk)
	for j := start; j < end; j++ {
		lines = append(lines, dotEscape(fi.Instrs[j].Desc))
	}
	return strings.Join(lines, "\\l") + "\\l"
}

// dotEscape escapes characters that are significant inside a record label.
func dotEscape(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"{", `\{`,
		"}", `\}`,
		"<", `\<`,
		">", `\>`,
		"|", `\|`,
		"\n", `\l`,
	)
	return r.Replace(s)
}

// WriteDotFiles writes one .dot file per analyzed function that has any
// control dependences. Filenames are derived from the function name.
func WriteDotFiles(dir string, funcs map[string]*FuncInfo, cdgs map[string]ControlDepMap, prog *Progress) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dot dir: %w", err)
	}
	names := make([]string, 0, len(cdgs))
	for name := range cdgs {
		names = append(names, name)
	}
	sort.Strings(names)

	var written int
	for _, name := range names {
		deps := cdgs[name]
		if len(deps) == 0 {
			continue
		}
		path := filepath.Join(dir, dotFileName(name))
		if err := os.WriteFile(path, []byte(DotCDG(name, funcs[name], deps)), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		written++
	}
	prog.Log("Wrote %d dot files to %s", written, dir)
	return nil
}

// dotFileName flattens a function name into a safe filename.
func dotFileName(name string) string {
	r := strings.NewReplacer("/", "_", "(", "", ")", "", "*", "", " ", "_")
	return r.Replace(name) + ".dot"
}
