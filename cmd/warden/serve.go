package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wardenjs/warden/sandbox"
	"github.com/wardenjs/warden/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/WebSocket session API",
	Run:   runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8787", "Listen address")
	serveCmd.Flags().String("report-db", "", "Mirror session reports into this SQLite database")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfigOrExit(cmd)
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" || addr == ":8787" {
		if cfg.Server.Addr != "" {
			addr = cfg.Server.Addr
		}
	}

	opts := sandbox.Options{
		Origin:       cfg.Origin,
		MaxMemoryMiB: cfg.MaxMemoryMiB,
		Timeout:      cfg.Timeout,
		Logger:       newLogger(),
	}

	reportDB, _ := cmd.Flags().GetString("report-db")
	if reportDB == "" {
		reportDB = cfg.Server.ReportDB
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "warden: listening on %s\n", addr)
	if err := server.Run(ctx, addr, reportDB, opts, newLogger()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
