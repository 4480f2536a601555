package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wardenjs/warden/config"
	"github.com/wardenjs/warden/logging"
)

var rootCmd = &cobra.Command{
	Use:   "warden [file]",
	Short: "Instrumented JavaScript sandbox for security research",
	Long: `warden executes untrusted, browser-oriented JavaScript inside an
isolated QuickJS-over-WASM engine, mocking every global via recursive
Proxy-based instrumentation and recording every property get/set/call -
including from eval and dynamically generated code - into a queryable
event report.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runRun,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to warden config file (YAML)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Execution timeout override")
	rootCmd.PersistentFlags().String("memory", "", "Memory limit: 1mb, 16mb, 64mb, 256mb, 1gb")
	rootCmd.PersistentFlags().StringSlice("mount", nil, "Mount source directory virtual:host (repeatable)")
	rootCmd.PersistentFlags().Bool("json", false, "Print the event report as JSON after running")

	addRunFlags(rootCmd)
}

func newLogger() *zap.Logger {
	return logging.New()
}

func loadConfigOrExit(cmd *cobra.Command) config.Config {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func parseMount(spec string) (virtual, host string, err error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid mount spec %q (expected virtual:host)", spec)
	}
	return parts[0], parts[1], nil
}

func parseMemoryLimitMiB(s string) uint {
	switch strings.ToLower(s) {
	case "1mb":
		return 1
	case "16mb":
		return 16
	case "64mb":
		return 64
	case "256mb":
		return 256
	case "1gb":
		return 1024
	default:
		return 0 // use config/default
	}
}
