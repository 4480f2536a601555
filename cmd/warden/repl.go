package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/wardenjs/warden/event"
	"github.com/wardenjs/warden/report"
	"github.com/wardenjs/warden/sandbox"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive sandbox REPL",
	Long: `Start an interactive session against one long-lived orchestrator:
each line (or backslash-continued block) is run against the same isolate
until it exits, so hook state and the report accumulate across inputs.

Lines starting with ':' are meta-commands instead of JavaScript:
  :report                 print the accumulated event report as JSON
  :hook <path> <json>      install a structured-value hook at path
  :query [type] [path]     print events matching type and/or path`,
	Run: runRepl,
}

func init() {
	addRunFlags(replCmd)
	rootCmd.AddCommand(replCmd)
}

func historyFile() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".warden_history")
	}
	return filepath.Join(os.TempDir(), "warden_history")
}

func runRepl(cmd *cobra.Command, args []string) {
	orch, err := buildOrchestrator(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer orch.Dispose(false)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "warden> ",
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	var pending strings.Builder
	n := 0
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			break
		}

		if strings.HasSuffix(line, "\\") {
			pending.WriteString(strings.TrimSuffix(line, "\\"))
			pending.WriteString("\n")
			rl.SetPrompt("...     ")
			continue
		}
		pending.WriteString(line)
		source := pending.String()
		pending.Reset()
		rl.SetPrompt("warden> ")

		if strings.TrimSpace(source) == "" {
			continue
		}

		if strings.HasPrefix(strings.TrimSpace(source), ":") {
			handleMetaCommand(orch, strings.TrimSpace(source))
			continue
		}

		n++
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		specifier := fmt.Sprintf("repl:%d.js", n)
		result, runErr := orch.Run(ctx, specifier, source)
		cancel()

		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
			continue
		}
		if result.Value != nil {
			fmt.Printf("=> %v\n", result.Value)
		}
	}
}

// handleMetaCommand dispatches a ':'-prefixed REPL line to :report, :hook, or
// :query, printing a usage error for anything else rather than feeding it to
// the guest as JavaScript.
func handleMetaCommand(orch *sandbox.Orchestrator, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":report":
		replPrintReport(orch)
	case ":hook":
		replSetHook(orch, fields[1:])
	case ":query":
		replQuery(orch, fields[1:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown meta-command %q (try :report, :hook, :query)\n", fields[0])
	}
}

func replPrintReport(orch *sandbox.Orchestrator) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(orch.Report().All())
}

// replSetHook installs a Copy-kind hook from ":hook <path> <json-value>",
// the same structured-value-only restriction as the HTTP and MCP APIs: a
// Host Callable or Reference hook needs an in-process Go closure, which a
// REPL line can't express.
func replSetHook(orch *sandbox.Orchestrator, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Error: usage: :hook <path> <json-value>")
		return
	}
	path := args[0]
	var value any
	if err := json.Unmarshal([]byte(strings.Join(args[1:], " ")), &value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid JSON value: %v\n", err)
		return
	}
	if err := orch.Hook(path, value, true); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Printf("hooked %s\n", path)
}

// replQuery handles ":query [type] [path]". An omitted argument leaves that
// dimension unconstrained, per §4.2's partial-match semantics; the first
// argument is always read as the type, so "-" stands in for it when only a
// path is wanted.
func replQuery(orch *sandbox.Orchestrator, args []string) {
	q := report.Query{}
	if len(args) > 0 && args[0] != "-" {
		q = q.WithType(event.Type(args[0]))
	}
	if len(args) > 1 {
		q = q.WithPath(args[1])
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for e := range orch.Report().FindAll(q) {
		enc.Encode(e)
	}
}
