package main

import (
	"fmt"
	"sort"
	"strings"
)

// FuncID generates a deterministic ID for an analyzed function.
func FuncID(pkg, name, file string, line int) string {
	return fmt.Sprintf("%s::%s@%s:%d", pkg, name, file, line)
}

// BlockID generates an ID for a basic block of a function.
func BlockID(funcID string, blockIndex int) string {
	return fmt.Sprintf("%s::bb%d", funcID, blockIndex)
}

// BaseName extracts the filename without directory from a path.
func BaseName(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

// sortedIntKeys returns the keys of an int-keyed map in ascending order.
func sortedIntKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// sortedDepKeys returns the controller blocks of a map in ascending order.
func sortedDepKeys(m ControlDepMap) []int {
	return sortedIntKeys(m)
}

// sortedSet returns a block set's members in ascending order.
func sortedSet(s BlockSet) []int {
	return sortedIntKeys(s)
}
