// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/citeverify/internal/batch"
	"github.com/pdiddy/citeverify/pkg/types"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <citations-file>",
	Short: "Verify a YAML or JSON list of citations",
	Long: `Verify looks every citation up in the configured registries, scores
the agreement between the cited and canonical metadata, and groups duplicate
citations. The file holds a list of records with key, title, authors, year,
venue, and doi fields.

Output is a table by default; --format json or yaml writes the flat result
records for other tools. --fail-on makes the command exit non-zero when any
citation reaches the given status.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().String("format", "table", "output format: table, json, or yaml")
	verifyCmd.Flags().Int("workers", 0, "citations verified concurrently (default from config, 4)")
	verifyCmd.Flags().String("cache", "", "cache backend: sqlite, memory, redis, or none")
	verifyCmd.Flags().String("fail-on", "", "exit non-zero when any citation is: issue or retracted")
	verifyCmd.Flags().String("metrics-file", "", "write Prometheus metrics in text format to this file")
	verifyCmd.Flags().Bool("progress", false, "print one line per verified citation to stderr")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if !validFormat(format) {
		return fmt.Errorf("unsupported format %q: use table, json, or yaml", format)
	}
	failOn, _ := cmd.Flags().GetString("fail-on")
	if failOn != "" && failOn != "issue" && failOn != "retracted" {
		return fmt.Errorf("unsupported --fail-on %q: use issue or retracted", failOn)
	}

	cfg := appConfig
	if cmd.Flags().Changed("workers") {
		cfg.Batch.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if backend, _ := cmd.Flags().GetString("cache"); backend != "" {
		cfg.Cache.Backend = types.CacheBackend(backend)
		if err := validate(cfg); err != nil {
			return err
		}
	}
	if path, _ := cmd.Flags().GetString("metrics-file"); path != "" {
		cfg.Metrics.Textfile = path
	}

	cits, err := readCitations(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
	defer stop()

	var eng *engine
	if progress, _ := cmd.Flags().GetBool("progress"); progress {
		eng, err = newEngine(ctx, cfg, logger, cmd.ErrOrStderr())
	} else {
		eng, err = newEngine(ctx, cfg, logger, nil)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.close(); err != nil {
			logger.Warn("closing cache", zap.Error(err))
		}
	}()

	rep, runErr := eng.orch.VerifyBatch(ctx, cits)
	if err := writeReport(cmd.OutOrStdout(), format, rep); err != nil {
		return err
	}
	if format == "table" {
		writeSummary(cmd.OutOrStdout(), rep)
	} else {
		writeSummary(cmd.ErrOrStderr(), rep)
	}

	if cfg.Metrics.Textfile != "" {
		if err := eng.metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn("writing metrics", zap.String("path", cfg.Metrics.Textfile), zap.Error(err))
		}
	}

	if runErr != nil {
		return runErr
	}
	return checkFailOn(failOn, rep)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// checkFailOn returns an error when a result reaches the threshold status.
// "issue" also trips on retracted and not_found citations.
func checkFailOn(failOn string, rep *batch.Report) error {
	if failOn == "" {
		return nil
	}
	var n int
	for _, r := range rep.Results {
		switch r.Status {
		case types.StatusRetracted:
			n++
		case types.StatusIssue, types.StatusNotFound:
			if failOn == "issue" {
				n++
			}
		}
	}
	if n > 0 {
		return fmt.Errorf("%d citation(s) at or above --fail-on %s", n, failOn)
	}
	return nil
}
