package main

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Progress reports pipeline progress to stderr with elapsed time. It is
// also the observability channel for recoverable oddities (Warn) that must
// stay diagnosable without stopping a run.
type Progress struct {
	start   time.Time
	verbose bool
	out     io.Writer
}

// NewProgress creates a progress reporter writing to stderr.
func NewProgress(verbose bool) *Progress {
	return &Progress{start: time.Now(), verbose: verbose, out: os.Stderr}
}

// Log prints a progress message with elapsed time prefix.
func (p *Progress) Log(format string, args ...any) {
	elapsed := time.Since(p.start)
	mins := int(elapsed.Minutes())
	secs := int(elapsed.Seconds()) % 60
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(p.out, "[%02d:%02d] %s\n", mins, secs, msg)
}

// Verbose prints only when verbose mode is enabled.
func (p *Progress) Verbose(format string, args ...any) {
	if p.verbose {
		p.Log(format, args...)
	}
}

// Warn prints a warning unconditionally.
func (p *Progress) Warn(format string, args ...any) {
	p.Log("Warning: "+format, args...)
}
