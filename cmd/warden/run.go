package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wardenjs/warden/hooks"
	"github.com/wardenjs/warden/resolver"
	"github.com/wardenjs/warden/sandbox"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run JavaScript in the sandbox (stateless execution)",
	Long: `Execute JavaScript in the instrumented sandbox and print the
resulting event report.

Code can be provided via:
  - File argument: warden run script.js
  - Inline flag:   warden run -c 'fetch("https://evil.example/x")'
  - Stdin:         cat script.js | warden run`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "Code to execute")
	cmd.Flags().StringSlice("allow-host", nil, "Allow fetch() to host (repeatable)")
	cmd.Flags().Bool("kv", false, "Install a localStorage-style hook")
	cmd.Flags().Bool("disk-cache", false, "Cache compiled engine on disk for faster startup")
}

func buildOrchestrator(cmd *cobra.Command) (*sandbox.Orchestrator, error) {
	cfg := loadConfigOrExit(cmd)

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = cfg.Timeout
	}
	memFlag, _ := cmd.Flags().GetString("memory")
	mem := parseMemoryLimitMiB(memFlag)
	if mem == 0 {
		mem = cfg.MaxMemoryMiB
	}

	var diskCacheDir string
	if enabled, _ := cmd.Flags().GetBool("disk-cache"); enabled {
		diskCacheDir = sandbox.DefaultCacheDir()
	}

	orch, err := sandbox.New(sandbox.Options{
		Origin:       cfg.Origin,
		MaxMemoryMiB: mem,
		Timeout:      timeout,
		Logger:       newLogger(),
		DiskCacheDir: diskCacheDir,
	})
	if err != nil {
		return nil, err
	}

	mounts, _ := cmd.Flags().GetStringSlice("mount")
	mountMap := map[string]string{}
	for k, v := range cfg.Mounts {
		mountMap[k] = v
	}
	for _, spec := range mounts {
		vp, hp, err := parseMount(spec)
		if err != nil {
			orch.Dispose(false)
			return nil, err
		}
		mountMap[vp] = hp
	}
	if len(mountMap) > 0 {
		fr, err := resolver.NewFileResolver(mountMap)
		if err != nil {
			orch.Dispose(false)
			return nil, err
		}
		orch.SetResolver(fr.Func())
	}

	allowHosts, _ := cmd.Flags().GetStringSlice("allow-host")
	if len(allowHosts) == 0 {
		allowHosts = cfg.HTTP.AllowedHosts
	}
	if len(allowHosts) > 0 {
		fn := hooks.Fetch(hooks.FetchConfig{AllowedHosts: allowHosts})
		orch.Hook("fetch", fn, true)
	}

	if enableKV, _ := cmd.Flags().GetBool("kv"); enableKV {
		ls := hooks.NewLocalStorage()
		orch.Hook("localStorage.getItem", ls.GetItem(), true)
		orch.Hook("localStorage.setItem", ls.SetItem(), true)
		orch.Hook("localStorage.removeItem", ls.RemoveItem(), true)
	}

	return orch, nil
}

func runRun(cmd *cobra.Command, args []string) {
	code, _ := cmd.Flags().GetString("code")

	var source, filename string
	switch {
	case code != "":
		source = code
	case len(args) > 0:
		filename = args[0]
		data, err := os.ReadFile(filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		source = string(data)
	default:
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			cmd.Help()
			return
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		source = string(data)
		if source == "" {
			cmd.Help()
			return
		}
	}

	orch, err := buildOrchestrator(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer orch.Dispose(false)

	specifier := filename
	if specifier == "" {
		specifier = "inline.js"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, runErr := orch.Run(ctx, specifier, source)

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(orch.Report().All())
	} else {
		for _, ev := range orch.Report().All() {
			fmt.Printf("%s %s %s\n", ev.Type, ev.Path, ev.Location.Filename)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
	if result != nil && result.Value != nil {
		fmt.Printf("=> %v\n", result.Value)
	}
}
