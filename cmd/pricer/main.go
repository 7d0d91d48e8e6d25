// Command pricer assigns scraped products to recipe ingredients and prices every
// recipe of the catalog.
//
//	pricer [flags] match|cost|run
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/recipeprice/backend/config"
	"github.com/recipeprice/backend/internal/infrastructure/filestore"
	"github.com/recipeprice/backend/internal/logging"
	"github.com/recipeprice/backend/internal/usecase"
)

const usage = `usage: pricer [flags] <command>

commands:
  match   assign an ingredient to every price record and write the match report
  cost    price every recipe from already assigned records
  run     match then cost, writing outputs only if both succeed

flags:
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], afero.NewOsFs(), os.Stderr)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		os.Exit(2)
	default:
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, fs afero.Fs, stderr io.Writer) error {
	flags := pflag.NewFlagSet("pricer", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	config.BindFlags(flags)
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return errUsage
	}
	command := flags.Arg(0)

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}
	if err := logging.Setup(cfg.Log, stderr); err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}

	ctx, _ = logging.WithRunID(ctx)
	logger := zerolog.Ctx(ctx)

	store := filestore.New(fs, filestore.Paths{
		Recipes:        cfg.Data.RecipesPath,
		Prices:         cfg.Data.PricesPath,
		AssignedPrices: cfg.Data.AssignedPath,
		Report:         cfg.Data.ReportPath,
		MatchReport:    cfg.Data.MatchReportPath,
	}, cfg.Data.ReportFormat)

	batch := usecase.NewBatchService(store, usecase.BatchConfig{
		Workers: cfg.Batch.Workers,
		Match: usecase.MatchConfig{
			MaxTruncation:      cfg.Matching.MaxTruncation,
			Suggestions:        cfg.Matching.Suggestions,
			MinSimilarity:      cfg.Matching.MinSimilarity,
			FoldAccents:        cfg.Matching.FoldAccents,
			EnableDebugLogging: cfg.Matching.EnableDebugLogging,
		},
	})

	logger.Info().Str("command", command).Msg("batch started")

	switch command {
	case "match":
		_, err = batch.Match(ctx)
	case "cost":
		_, err = batch.Cost(ctx)
	case "run":
		_, _, err = batch.Run(ctx)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		flags.Usage()
		return errUsage
	}

	if err != nil {
		logger.Error().Err(err).Str("command", command).Msg("batch failed")
		return err
	}
	logger.Info().Str("command", command).Msg("batch finished")
	return nil
}
