// Reproduce command runs the orphan-removal scenario.
package main

import (
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/orphanage/internal/reproduce"
	"github.com/mesh-intelligence/orphanage/pkg/types"
)

// errOrphansRemain reports that orphan removal left rows behind.
var errOrphansRemain = errors.New("orphaned children were not deleted")

var (
	flagKeyEncoding string
	flagQueryLog    string
	flagKeepSchema  bool
	flagMetrics     bool
)

var reproduceCmd = &cobra.Command{
	Use:   "reproduce",
	Short: "Run the orphan-removal scenario",
	Long: `Reproduce refreshes the schema, stores parent "1" with child "123",
reloads the parent with its children joined, removes all children, flushes,
and reads back child_entity. Rows left behind mean orphan removal failed.

Use --key-encoding=string to bind the orphan delete's keys by generic
formatting, which reproduces the defect.

Example:
  orphanage reproduce
  orphanage reproduce --key-encoding=string --query-log statements.jsonl`,
	Args: cobra.NoArgs,
	RunE: runReproduce,
}

func init() {
	reproduceCmd.Flags().StringVar(&flagKeyEncoding, "key-encoding", "", "orphan delete key encoding: valuer or string")
	reproduceCmd.Flags().StringVar(&flagQueryLog, "query-log", "", "write executed statements as JSONL to this file")
	reproduceCmd.Flags().BoolVar(&flagKeepSchema, "keep-schema", false, "create missing tables instead of refreshing the schema")
	reproduceCmd.Flags().BoolVar(&flagMetrics, "metrics", false, "print persistence counters after the run")
}

func runReproduce(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := backendConfig(flagKeyEncoding)
	if err != nil {
		return err
	}
	// The delete parameters are read back from the statement log.
	c.Debug = true

	logger := newLogger(cmd.ErrOrStderr(), flagDebug)
	backend, err := attachBackend(ctx, c, logger)
	if err != nil {
		return err
	}
	defer backend.Detach()

	if flagKeepSchema {
		err = backend.EnsureSchema(ctx)
	} else {
		err = backend.RefreshSchema(ctx)
	}
	if err != nil {
		return err
	}

	sc := reproduce.Default()
	if err := sc.Seed(ctx, backend); err != nil {
		return err
	}
	res, err := sc.Run(ctx, backend)
	if err != nil {
		return err
	}

	if flagQueryLog != "" {
		if err := backend.WriteStatements(flagQueryLog); err != nil {
			return fmt.Errorf("write query log: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	params, err := json.Marshal(res.DeleteParams)
	if err != nil {
		return fmt.Errorf("marshal delete params: %w", err)
	}
	fmt.Fprintf(out, "key encoding:   %s\n", backend.Config().GetKeyEncoding())
	fmt.Fprintf(out, "delete params:  %s\n", params)
	fmt.Fprintf(out, "remaining rows: %d\n", len(res.Remaining))

	if flagMetrics {
		if err := printCounters(out, backend.Registry()); err != nil {
			return err
		}
	}

	if !res.Passed() {
		rows, err := json.MarshalIndent(res.Remaining, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal rows: %w", err)
		}
		fmt.Fprintln(out, string(rows))
		return fmt.Errorf("%w: %d row(s) left in %s", errOrphansRemain, len(res.Remaining), types.ChildTable)
	}
	fmt.Fprintln(out, "ok: orphan removal deleted every child")
	return nil
}

// printCounters writes every counter sample in reg as "name{labels} value".
func printCounters(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
			}
			fmt.Fprintf(w, "%s %g\n", name, m.GetCounter().GetValue())
		}
	}
	return nil
}
