// energy-audit reads a CSV table of energy consumption before and after an
// efficiency measure and writes a Markdown report with the average savings
// and an audit trail of every processing step.
//
//	energy-audit [flags] <csv_file>
//
// Exit status is 0 on success, 2 when the input does not exist (or the
// command line is invalid), 3 when the input cannot be read as a table,
// 4 when --strict is set and no usable rows remain, and 1 otherwise.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/openeurope/energyaudit/internal/auditerr"
	"github.com/openeurope/energyaudit/internal/config"
	"github.com/openeurope/energyaudit/internal/findings"
	"github.com/openeurope/energyaudit/internal/pipeline"
	"github.com/openeurope/energyaudit/internal/watch"
)

const exitUsage = 2

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

type options struct {
	outputDir  string
	configPath string
	metrics    bool
	watch      bool
	strict     bool
	logLevel   string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var opts options
	flagSet := pflag.NewFlagSet("energy-audit", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&opts.outputDir, "output-dir", "o", config.DefaultOutputDir, "directory where the report will be saved")
	flagSet.StringVar(&opts.configPath, "config", "", "optional YAML config file")
	flagSet.BoolVar(&opts.metrics, "metrics", false, "also write a Prometheus textfile next to the report")
	flagSet.BoolVar(&opts.watch, "watch", false, "re-run the audit every time the input file changes")
	flagSet.BoolVar(&opts.strict, "strict", false, "fail with status 4 when no usable rows remain")
	flagSet.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage: energy-audit [flags] <csv_file>\n\n")
		fmt.Fprintf(stderr, "Computes average consumption before and after an efficiency measure\n")
		fmt.Fprintf(stderr, "from <csv_file> and writes a Markdown report with an audit trail.\n\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return exitUsage
	}
	if flagSet.NArg() != 1 {
		fmt.Fprintf(stderr, "error: expected exactly one input file, got %d\n", flagSet.NArg())
		flagSet.Usage()
		return exitUsage
	}
	input := flagSet.Arg(0)

	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		fmt.Fprintf(stderr, "error: --log-level: %v\n", err)
		return exitUsage
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return auditerr.ExitInternal
		}
		cfg = loaded
	}
	if flagSet.Changed("output-dir") {
		cfg.Audit.OutputDir = opts.outputDir
	}
	if opts.metrics {
		cfg.Audit.Metrics.Enabled = true
	}
	if opts.strict {
		cfg.Audit.FailOnEmpty = true
	}

	engine, err := findings.New(cfg.Audit.Findings)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return auditerr.ExitInternal
	}
	defer engine.Wait()

	runner := pipeline.New(cfg.Audit, engine)
	audit := func() int {
		r, err := runner.Run(ctx, pipeline.FromFile(input))
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return auditerr.ExitCode(err)
		}
		fmt.Fprintf(stdout, "Report generated at: %s\n", r.ReportPath)
		if r.MetricsPath != "" {
			fmt.Fprintf(stdout, "Metrics written to: %s\n", r.MetricsPath)
		}
		for _, f := range r.Findings {
			fmt.Fprintf(stdout, "Finding: %s\n", f.Message)
		}
		return 0
	}

	code := audit()
	if !opts.watch {
		return code
	}

	slog.Info("watching input for changes", "path", input)
	err = watch.Files(ctx, []string{input}, watch.DefaultDebounce, func(string) {
		code = audit()
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return auditerr.ExitInternal
	}
	return code
}
