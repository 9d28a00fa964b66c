package cmd

import (
	"fmt"
	"io"
	"os"
)

// ── Unified output helpers ────────────────────────────────────────────────────
// All commands print progress through these so icons and indentation stay
// consistent. Structured diagnostics go through internal/logger instead.
//
// Icon semantics:
//   ✓  success / healthy
//   ✗  error / failure          (written to stderr)
//   ⚠  warning
//   ○  skipped / not applicable
//   -  not found / missing
//   ~  neutral info

// stdout and stderr are swapped out by tests that inspect output.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// printSection prints a top-level section header, e.g. "=== asana build ===".
func printSection(title string) {
	fmt.Fprintf(stdout, "\n=== %s ===\n", title)
}

// printBullet prints a grouped-section bullet, e.g. "● Classes:".
func printBullet(title string) {
	fmt.Fprintf(stdout, "\n● %s\n", title)
}

// statusLine writes "  <icon>  msg", or "  <icon>  [name] msg" when name is set.
func statusLine(w io.Writer, icon, name, msg string) {
	if name == "" {
		fmt.Fprintf(w, "  %s  %s\n", icon, msg)
		return
	}
	fmt.Fprintf(w, "  %s  [%s] %s\n", icon, name, msg)
}

func printOK(name, msg string)   { statusLine(stdout, "✓", name, msg) }
func printErr(name, msg string)  { statusLine(stderr, "✗", name, msg) }
func printWarn(name, msg string) { statusLine(stdout, "⚠", name, msg) }
func printSkip(name, msg string) { statusLine(stdout, "○", name, msg) }
func printMiss(name, msg string) { statusLine(stdout, "-", name, msg) }
func printInfo(name, msg string) { statusLine(stdout, "~", name, msg) }
