package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"clarisync/internal/clari"
	"clarisync/internal/config"
	"clarisync/internal/database"
	"clarisync/internal/handlers"
	"clarisync/internal/logging"
	"clarisync/internal/participants"
	"clarisync/internal/scheduler"
	"clarisync/internal/service"
	"clarisync/internal/transform"
)

type options struct {
	once            bool
	days            int
	importCSV       string
	mappingTemplate string
}

func parseFlags() options {
	var opts options
	flag.BoolVar(&opts.once, "once", false, "run one sync and exit")
	flag.IntVar(&opts.days, "days", 0, "days to look back (default from config)")
	flag.StringVar(&opts.importCSV, "import-csv", "", "import the call ids in the call_id column of this CSV file and exit")
	flag.StringVar(&opts.mappingTemplate, "mapping-template", "", "write a participant mapping template CSV to this path and exit")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logger := logging.Logger()
	logger.Info().Fields(logging.Redact(cfg.Fields())).Msg("configuration loaded")

	if opts.mappingTemplate != "" {
		if err := participants.WriteTemplateFile(opts.mappingTemplate); err != nil {
			logger.Fatal().Err(err).Msg("failed to write mapping template")
		}
		logger.Info().Str("path", opts.mappingTemplate).Msg("mapping template written")
		return
	}

	daysBack := cfg.Sync.DaysBack
	if opts.days > 0 {
		daysBack = opts.days
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, daysBack, logger); err != nil {
		logger.Error().Err(err).Str("error_type", logging.ErrorType(err)).Msg("exiting with error")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, daysBack int, logger zerolog.Logger) error {
	db, err := database.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	fieldSet, err := transform.ParseFieldSet(cfg.Sync.FieldSet)
	if err != nil {
		return err
	}

	resolver := participants.LoadFile(cfg.Participants.MappingFile, cfg.Participants.InternalMarkers)
	transformer := transform.NewTransformer(resolver, transform.WithFieldSet(fieldSet))
	client := clari.NewClient(&cfg.Clari)

	recon := service.NewReconciliationService(db, client, transformer, service.WithPacingDelay(cfg.Sync.PacingDelay))
	syncSvc := service.NewSyncService(recon, client)

	switch {
	case opts.importCSV != "":
		result, err := recon.ImportCallsFromCSV(ctx, opts.importCSV)
		if err != nil {
			return err
		}
		logger.Info().
			Int("successful", result.Successful).
			Int("failed", result.Failed).
			Int("participants", result.Participants).
			Msg("csv import finished")
		return nil

	case opts.once:
		_, err := syncSvc.SyncNewCalls(ctx, service.TriggerCLI, daysBack)
		return err
	}

	handler := handlers.NewHandler(handlers.Deps{
		Sync:        syncSvc,
		Store:       db,
		Source:      client,
		Transformer: transformer,
		Names:       resolver,
		Server:      cfg.Server,
		DaysBack:    daysBack,
	})
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handlers.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sup := scheduler.NewSupervisor(logging.Component("supervisor"), scheduler.DefaultShutdownTimeout)
	sup.Add(scheduler.NewHTTPService(server, server.Addr, scheduler.DefaultShutdownTimeout, logging.Component("api")))
	if cfg.Sync.Enabled {
		sup.Add(scheduler.NewPeriodicSync(syncSvc, cfg.Sync.Interval, daysBack, cfg.Sync.RunOnStartup))
	} else {
		logger.Info().Msg("scheduled sync disabled")
	}

	logger.Info().Str("driver", db.Driver()).Msg("server starting")
	if err := sup.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor stopped: %w", err)
	}
	logger.Info().Msg("shutdown complete")
	return nil
}
