// Dump command prints every row of a table.
package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/orphanage/pkg/types"
)

var flagJSON bool

var dumpCmd = &cobra.Command{
	Use:   "dump <table>",
	Short: "Print the rows of a table",
	Long: `Dump prints every row of parent_entity or child_entity, ordered by id.
Missing tables are created first. Useful with a file database (--db).

Example:
  orphanage --db orphanage.db dump child_entity
  orphanage --db orphanage.db dump parent_entity --json`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")
}

func runDump(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	table := args[0]

	c, err := backendConfig("")
	if err != nil {
		return err
	}
	backend, err := attachBackend(ctx, c, newLogger(cmd.ErrOrStderr(), flagDebug))
	if err != nil {
		return err
	}
	defer backend.Detach()

	if err := backend.EnsureSchema(ctx); err != nil {
		return err
	}

	rows, err := backend.SelectAll(ctx, table)
	if err != nil {
		if errors.Is(err, types.ErrTableNotFound) {
			return fmt.Errorf("unknown table %q (valid: %s)", table, validTableNamesStr)
		}
		return fmt.Errorf("select rows: %w", err)
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal rows: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]string, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, fmt.Sprintf("%s=%v", k, row[k]))
		}
		fmt.Fprintln(out, strings.Join(fields, " "))
	}
	return nil
}
