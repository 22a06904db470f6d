package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/maltedev/amazon-product-agent/internal/api"
	"github.com/maltedev/amazon-product-agent/internal/config"
	"github.com/maltedev/amazon-product-agent/internal/export"
	"github.com/maltedev/amazon-product-agent/internal/logging"
	"github.com/maltedev/amazon-product-agent/internal/ratelimit"
	"github.com/maltedev/amazon-product-agent/internal/scraper"
)

type CLI struct {
	Input     string `arg:"" optional:"" help:"File with one Amazon URL or ASIN per line, or - for stdin" default:"-"`
	Output    string `short:"o" help:"CSV file to write, or - for stdout" default:"-"`
	BatchSize int    `help:"Concurrent resolutions per batch (overrides BATCH_SIZE)"`
	LogFormat string `help:"Log format: text or json" default:"text" enum:"text,json"`
	LogLevel  string `help:"Log level" default:"info"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("bulk-export"),
		kong.Description("Resolve a list of Amazon products and write a CSV report."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(cli.Run())
}

func (c *CLI) Run() error {
	// Logs go to stderr so the report can be piped from stdout.
	logger := logging.NewWithWriter(os.Stderr, c.LogLevel, c.LogFormat)
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.BatchSize > 0 {
		cfg.Batch.Size = c.BatchSize
	}
	if cfg.Scraper.InsecureSkipVerify {
		logger.Warn("outbound TLS certificate verification is disabled; set INSECURE_SKIP_VERIFY=false to enable it")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, closeIn, err := openInput(c.Input)
	if err != nil {
		return err
	}
	defer closeIn()

	out, closeOut, err := openOutput(c.Output)
	if err != nil {
		return err
	}

	agent := scraper.New(cfg.AgentOptions(), logger)
	batch := scraper.NewBatch(agent, cfg.Batch.Size, ratelimit.NewJitter(cfg.Batch.DelayMin, cfg.Batch.DelayMax), logger)

	if err := exportReport(ctx, in, out, batch, logger); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

// exportReport reads every non-blank line of in and writes the report to out.
func exportReport(ctx context.Context, in io.Reader, out io.Writer, batch api.BatchResolver, logger *slog.Logger) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	inputs := api.SplitInputs(string(raw))
	results := batch.ResolveAll(ctx, inputs)

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logger.Info("export finished", "inputs", len(inputs), "failed", failed)

	return export.WriteCSV(out, results)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
