// Command icereader runs a single-file Iceberg-style columnar read
// against a YAML-described job: an input Parquet file, an expected
// schema, an optional byte range, and read options.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/docopt/docopt-go"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/arrowarc/icereader/internal/config"
	"github.com/arrowarc/icereader/pkg/icereader"
	"github.com/arrowarc/icereader/pkg/predicate"
)

func main() {
	usage := `icereader: read a Parquet file as an Iceberg-reconciled columnar table.

Usage:
  icereader --config=<config.yaml> [--timeout=<minutes>]
  icereader -h | --help

Options:
  -h --help               Show this screen.
  --config=<config.yaml>  Path to the read-job YAML configuration.
  --timeout=<minutes>     Read timeout in minutes [default: 10].
`

	arguments, err := docopt.ParseDoc(usage)
	if err != nil {
		log.Fatalf("error parsing arguments: %v", err)
	}

	configPath, _ := arguments.String("--config")
	timeoutMinutes, _ := arguments.Int("--timeout")

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC, "caller", kitlog.DefaultCaller)

	if err := run(configPath, timeoutMinutes, logger); err != nil {
		level.Error(logger).Log("msg", "read failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath string, timeoutMinutes int, logger kitlog.Logger) error {
	cfg, err := config.Parse(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	expected, err := cfg.Read.ToSchema()
	if err != nil {
		return fmt.Errorf("building expected schema: %w", err)
	}

	pred, err := cfg.Read.ToPredicate(expected)
	if err != nil {
		return fmt.Errorf("building predicate: %w", err)
	}
	pred = predicate.RewriteNot(pred)

	input, err := openInput(cfg.Read.Input)
	if err != nil {
		return err
	}
	defer input.Close()

	start, end := cfg.Read.Bounds()
	opts := cfg.Read.ToOptions()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutMinutes)*time.Minute)
	defer cancel()

	driver := icereader.New(input, expected, pred, start, end, opts, memory.NewGoAllocator(), logger)

	table, err := driver.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading: %w", err)
	}
	defer table.Release()

	report := driver.Stats()
	level.Info(logger).Log(
		"msg", "read complete",
		"rows", table.NumRows(),
		"cols", table.NumCols(),
		"rg_filtering", report.RowGroupFiltering,
		"read_row_groups", report.ReadRowGroups,
		"schema_evol_proc", report.SchemaEvolProc,
		"row_groups_read", report.RowGroupsRead,
		"row_groups_kept", report.RowGroupsKept,
	)
	return nil
}

func openInput(in config.Input) (icereader.InputFile, error) {
	if in.Path != "" {
		return icereader.OpenLocalInputFile(in.Path)
	}
	return nil, fmt.Errorf("bucket-backed input requires a configured objstore.Bucket; wire one in before calling openInput for %q/%q", in.Bucket, in.Object)
}
