package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"fintastic/internal/config"
	"fintastic/internal/dataprocessing"
	apperrors "fintastic/internal/errors"
	"fintastic/internal/exporter"
	"fintastic/internal/forecast"
	"fintastic/internal/infrastructure"
	"fintastic/internal/operations"
	"fintastic/internal/table"
	"fintastic/internal/validation"
	"fintastic/pkg/contracts"
)

// errUsage marks flag errors already reported by the flag set.
var errUsage = errors.New("invalid usage")

// opFlag collects repeated -op id[:json] values in order.
type opFlag []opStep

type opStep struct {
	id     string
	params operations.Params
}

func (f *opFlag) String() string {
	ids := make([]string, len(*f))
	for i, op := range *f {
		ids[i] = op.id
	}
	return strings.Join(ids, ",")
}

func (f *opFlag) Set(value string) error {
	id, raw, hasParams := strings.Cut(value, ":")
	step := opStep{id: strings.TrimSpace(id), params: operations.Params{}}
	if step.id == "" {
		return fmt.Errorf("operation id is empty")
	}
	if hasParams && strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &step.params); err != nil {
			return fmt.Errorf("operation %s: params must be a JSON object: %w", step.id, err)
		}
	}
	*f = append(*f, step)
	return nil
}

type options struct {
	file     string
	dataType string
	ops      opFlag
	model    string
	column   string
	horizon  int
	params   string
	out      string
	logLevel string
	list     bool
	version  bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("forecast", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.file, "file", "", "input .csv or .xlsx file")
	fs.StringVar(&o.dataType, "data-type", "", "template whose required columns the file must carry (sales, stocks, commodities, custom)")
	fs.Var(&o.ops, "op", "operation to apply, as id or id:{json params}; repeatable")
	fs.StringVar(&o.model, "model", "", "forecast model; without it the processed table is written")
	fs.StringVar(&o.column, "column", "", "numeric column to forecast")
	fs.IntVar(&o.horizon, "horizon", 0, "number of future points (0 uses the default)")
	fs.StringVar(&o.params, "params", "", "model params as a JSON object")
	fs.StringVar(&o.out, "out", "", "output file (.csv or .xlsx); stdout when empty")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	fs.BoolVar(&o.list, "list", false, "list operations and models, then exit")
	fs.BoolVar(&o.version, "version", false, "print version information, then exit")

	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	if o.list || o.version {
		return o, nil
	}
	if o.file == "" {
		fmt.Fprintln(stderr, "-file is required")
		fs.Usage()
		return nil, errUsage
	}
	if o.model != "" && o.column == "" {
		fmt.Fprintln(stderr, "-column is required with -model")
		return nil, errUsage
	}
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// run loads the file, applies the operations in order and writes either the
// processed table or the forecast.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if o.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	logCfg := config.Default().Logging
	logCfg.Level = o.logLevel
	logCfg.Format = "text"
	logger := infrastructure.NewLogger(stderr, logCfg)

	pipeline := operations.NewPipeline(operations.DefaultRegistry(), logger, nil)
	dispatcher := forecast.NewDispatcher(forecast.DefaultRegistry(), logger)

	if o.list {
		return printCatalog(stdout, pipeline, dispatcher)
	}

	dt, err := dataprocessing.ParseDataType(o.dataType)
	if err != nil {
		return err
	}

	files := validation.NewFileValidator(logger, config.Default().Upload.MaxBytes)
	if err := files.ValidateInputFile(o.file); err != nil {
		return err
	}
	if o.out != "" {
		if err := files.ValidateOutputPath(o.out); err != nil {
			return err
		}
	}

	f, err := os.Open(o.file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", o.file, err)
	}
	defer f.Close()

	tbl, err := dataprocessing.NewLoader(logger, nil).Load(ctx, filepath.Base(o.file), f, dt)
	if err != nil {
		return err
	}

	for _, op := range o.ops {
		res, err := pipeline.Apply(ctx, tbl, op.id, op.params)
		if err != nil {
			return fmt.Errorf("operation %s: %w", op.id, err)
		}
		logger.InfoContext(ctx, res.Message, slog.String("operation", op.id), slog.Bool("changed", res.Changed))
		for _, s := range res.Summary {
			logger.InfoContext(ctx, "column summary",
				slog.String("column", s.Column),
				slog.Int("count", s.Count),
				slog.Float64("mean", s.Mean),
				slog.Float64("std", s.Std),
				slog.Float64("min", s.Min),
				slog.Float64("max", s.Max))
		}
		if res.Changed {
			tbl = res.Table
		}
	}

	if o.model == "" {
		return writeTable(o.out, stdout, tbl)
	}

	req := forecast.Request{
		Model:   o.model,
		Column:  o.column,
		Horizon: o.horizon,
		Params:  forecast.Params{},
	}
	if o.params != "" {
		if err := json.Unmarshal([]byte(o.params), &req.Params); err != nil {
			return apperrors.NewInvalidParameterError("params", "must be a JSON object")
		}
	}

	res, err := dispatcher.Run(ctx, tbl, req)
	if err != nil {
		return err
	}
	return writeForecast(o.out, stdout, res)
}

func printCatalog(w io.Writer, pipeline *operations.Pipeline, dispatcher *forecast.Dispatcher) error {
	fmt.Fprintln(w, "Operations:")
	for _, op := range pipeline.Registry().List() {
		if _, err := fmt.Fprintf(w, "  %-18s %s\n", op.ID, op.Description); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, "Models:")
	for _, m := range dispatcher.Models() {
		if _, err := fmt.Fprintf(w, "  %-18s %s\n", m.ID, m.Description); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(path string, stdout io.Writer, tbl *table.Table) error {
	if path == "" {
		return exporter.WriteCSV(stdout, tbl, exporter.WriteOptions{})
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return writeFile(path, func(w io.Writer) error {
			return exporter.WriteXLSX(w, tbl, exporter.DefaultSheet)
		})
	}
	return exporter.WriteCSVFile(path, tbl, exporter.WriteOptions{})
}

func writeForecast(path string, stdout io.Writer, res *forecast.Result) error {
	if path == "" {
		return exporter.WriteForecastCSV(stdout, res)
	}
	return writeFile(path, func(w io.Writer) error {
		return exporter.WriteForecastCSV(w, res)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
