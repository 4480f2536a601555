package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <db>",
	Short: "Inspect a report.SQLiteSink database produced by warden serve --report-db",
	Long: `Read events mirrored by a session's durable SQLite sink
(report.SQLiteSink) after the process that produced them has exited.

With no --run, lists the run ids recorded in the database. With --run,
prints that run's events in emission order, optionally narrowed with
--type and --path.`,
	Args: cobra.ExactArgs(1),
	Run:  runInspect,
}

func init() {
	inspectCmd.Flags().String("run", "", "Run id to list events for")
	inspectCmd.Flags().String("type", "", "Filter events by type (GetEvent, SetEvent, CallEvent)")
	inspectCmd.Flags().String("path", "", "Filter events by exact access path")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) {
	db, err := sql.Open("sqlite", args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	runID, _ := cmd.Flags().GetString("run")
	if runID == "" {
		listRuns(db)
		return
	}

	typeFilter, _ := cmd.Flags().GetString("type")
	pathFilter, _ := cmd.Flags().GetString("path")
	listEvents(db, runID, typeFilter, pathFilter)
}

func listRuns(db *sql.DB) {
	rows, err := db.Query(`SELECT id, started_at FROM runs ORDER BY started_at`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var startedAt int64
		if err := rows.Scan(&id, &startedAt); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s\tstarted_at=%d\n", id, startedAt)
	}
}

func listEvents(db *sql.DB, runID, typeFilter, pathFilter string) {
	query := `SELECT seq, type, path, payload FROM events WHERE run_id = ?`
	queryArgs := []any{runID}
	if typeFilter != "" {
		query += ` AND type = ?`
		queryArgs = append(queryArgs, typeFilter)
	}
	if pathFilter != "" {
		query += ` AND path = ?`
		queryArgs = append(queryArgs, pathFilter)
	}
	query += ` ORDER BY seq`

	rows, err := db.Query(query, queryArgs...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	enc := json.NewEncoder(os.Stdout)
	for rows.Next() {
		var seq int
		var evtType, path, payload string
		if err := rows.Scan(&seq, &evtType, &path, &payload); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		enc.Encode(decoded)
	}
}
