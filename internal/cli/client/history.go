package client

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

// HistoryEntry is one recorded search in the local history database.
type HistoryEntry struct {
	ID          int64  `json:"id"`
	Query       string `json:"query"`
	ResultCount int    `json:"result_count"`
	CreatedAt   string `json:"created_at"`
}

// openHistoryDB opens the local history database under the config directory,
// creating the schema on first use.
func openHistoryDB() (*sql.DB, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(configDir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS searches (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			query        TEXT    NOT NULL,
			result_count INTEGER NOT NULL,
			created_at   TEXT    NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_searches_created ON searches(created_at DESC);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return db, nil
}

// appendHistory records a search in the local history database.
func appendHistory(query string, resultCount int) error {
	db, err := openHistoryDB()
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(
		`INSERT INTO searches (query, result_count) VALUES (?, ?)`,
		query, resultCount,
	)
	return err
}

// recentHistory returns the most recent searches, newest first.
func recentHistory(limit int) ([]HistoryEntry, error) {
	db, err := openHistoryDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(
		`SELECT id, query, result_count, created_at FROM searches ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Query, &e.ResultCount, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// HistoryCmd creates the history command.
func HistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent searches from local history",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runHistory(limit, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")

	return cmd
}

func runHistory(limit int, outputJSON bool) error {
	entries, err := recentHistory(limit)
	if err != nil {
		return err
	}

	if outputJSON {
		if entries == nil {
			entries = []HistoryEntry{}
		}
		output, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No searches recorded yet.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %q (%d results)\n", e.CreatedAt, e.Query, e.ResultCount)
	}
	return nil
}
