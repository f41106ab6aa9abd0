// cmd/reconciler is the orchestrator wrapper (C10): the CLI surface
// spec.md §6 describes. Startup (flag parsing, logging the error and
// exiting with code 2 on misconfiguration, graceful shutdown on
// SIGINT/SIGTERM) follows the teacher's main.go; there is no CLI-parsing
// library anywhere in the
// example pack, so flag parsing stays on the standard library's flag
// package rather than reaching for an unwitnessed dependency.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediation-reconciler/internal/alert"
	"mediation-reconciler/internal/config"
	"mediation-reconciler/internal/export"
	"mediation-reconciler/internal/fetcher"
	"mediation-reconciler/internal/httpclient"
	"mediation-reconciler/internal/mediator"
	"mediation-reconciler/internal/networks"
	"mediation-reconciler/internal/orchestrator"
	"mediation-reconciler/internal/reconcile"
	"mediation-reconciler/internal/schema"
	"mediation-reconciler/internal/tokencache"

	"cloud.google.com/go/storage"
)

const (
	exitSuccess = 0
	exitFailure = 1
	exitConfig  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "config.yaml", "path to YAML configuration")
		startDate   = flag.String("start-date", "", "inclusive start date YYYY-MM-DD (default end-7)")
		endDate     = flag.String("end-date", "", "inclusive end date YYYY-MM-DD (default now(UTC)-1d)")
		noSlack     = flag.Bool("no-slack", false, "suppress alert emission")
		noExport    = flag.Bool("no-export", false, "suppress partition write")
		dryRun      = flag.Bool("dry-run", false, "write partitions to local FS instead of remote")
		resume      = flag.Bool("resume", false, "resume a backfill from the last successful date")
		checkpoint  = flag.String("checkpoint", "backfill_checkpoint.json", "backfill checkpoint file path")
		tokenDir    = flag.String("token-dir", "tokens", "token cache directory")
		lockPath    = flag.String("lock", "service.pid", "PID lock file path")
		schedule    = flag.Bool("schedule", false, "run as a daemon, firing a reconciliation run at each scheduling.times_of_day instead of exiting after one run")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("config error: %v", err)
		return exitConfig
	}

	end := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	if *endDate != "" {
		end, err = time.Parse("2006-01-02", *endDate)
		if err != nil {
			log.Printf("config error: invalid --end-date: %v", err)
			return exitConfig
		}
	}
	start := end.AddDate(0, 0, -cfg.Validation.DateRangeDays)
	if *startDate != "" {
		start, err = time.Parse("2006-01-02", *startDate)
		if err != nil {
			log.Printf("config error: invalid --start-date: %v", err)
			return exitConfig
		}
	}

	lock := orchestrator.NewPIDLock(*lockPath)
	if err := lock.Acquire(); err != nil {
		log.Printf("%v", err)
		return exitFailure
	}
	defer lock.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received, cancelling run...")
		cancel()
	}()

	tokens := tokencache.New(*tokenDir)
	orch, err := buildOrchestrator(ctx, cfg, tokens, *dryRun)
	if err != nil {
		log.Printf("config error: %v", err)
		return exitConfig
	}

	opts := orchestrator.Options{NoExport: *noExport, NoAlert: *noSlack}

	if *schedule {
		return runDaemon(ctx, orch, cfg, opts)
	}

	window := fetcher.DateRange{Start: start, End: end}

	if *resume {
		return runBackfill(ctx, orch, window, opts, *checkpoint)
	}

	result, err := orch.RunOnce(ctx, window, opts, time.Now())
	if err != nil {
		log.Printf("run failed: %v", err)
		return exitFailure
	}
	logResult(result)
	return exitSuccess
}

// runDaemon is C10's --schedule mode: a cron-like loop, modeled on the
// teacher's NetworkPoller.Start ticker pattern, that fires a reconciliation
// run at each scheduling.times_of_day instead of exiting after one run.
// A short ticker (rather than sleeping until the next fire time) keeps the
// loop responsive to ctx cancellation on shutdown.
func runDaemon(ctx context.Context, orch *orchestrator.Orchestrator, cfg *config.Config, opts orchestrator.Options) int {
	times, err := parseTimesOfDay(cfg.Scheduling.TimesOfDay)
	if err != nil {
		log.Printf("config error: %v", err)
		return exitConfig
	}
	if len(times) == 0 {
		log.Printf("config error: --schedule requires at least one scheduling.times_of_day entry")
		return exitConfig
	}

	loc := time.UTC
	if cfg.Scheduling.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Scheduling.Timezone)
		if err != nil {
			log.Printf("config error: invalid scheduling.timezone %q: %v", cfg.Scheduling.Timezone, err)
			return exitConfig
		}
	}

	log.Printf("[daemon] starting, firing at %v (%s)", cfg.Scheduling.TimesOfDay, loc)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	lastFired := ""
	for {
		select {
		case <-ctx.Done():
			log.Println("[daemon] shutdown signal received, stopping")
			return exitSuccess
		case now := <-ticker.C:
			local := now.In(loc)
			fireKey := local.Format("2006-01-02 15:04")
			if fireKey == lastFired || !times[local.Format("15:04")] {
				continue
			}
			lastFired = fireKey

			end := now.UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
			start := end.AddDate(0, 0, -cfg.Validation.DateRangeDays)
			window := fetcher.DateRange{Start: start, End: end}

			result, err := orch.RunOnce(ctx, window, opts, time.Now())
			if err != nil {
				log.Printf("[daemon] scheduled run failed: %v", err)
				continue
			}
			logResult(result)
		}
	}
}

// parseTimesOfDay validates each "HH:MM" entry and returns a lookup set.
func parseTimesOfDay(entries []string) (map[string]bool, error) {
	times := make(map[string]bool, len(entries))
	for _, e := range entries {
		if _, err := time.Parse("15:04", e); err != nil {
			return nil, fmt.Errorf("scheduling.times_of_day entry %q: %w", e, err)
		}
		times[e] = true
	}
	return times, nil
}

func runBackfill(ctx context.Context, orch *orchestrator.Orchestrator, window fetcher.DateRange, opts orchestrator.Options, checkpointPath string) int {
	cp, err := orchestrator.LoadCheckpoint(checkpointPath)
	if err != nil {
		log.Printf("config error: %v", err)
		return exitConfig
	}
	resumeFrom := ""
	if cp != nil {
		resumeFrom = cp.LastSuccessfulDate
	}

	for _, day := range orchestrator.BackfillDates(window.Start, window.End, resumeFrom) {
		dayWindow := fetcher.DateRange{Start: day, End: day}
		result, err := orch.RunOnce(ctx, dayWindow, opts, time.Now())
		if err != nil {
			log.Printf("backfill failed at %s: %v", day.Format("2006-01-02"), err)
			return exitFailure
		}
		logResult(result)

		if err := orchestrator.SaveCheckpoint(checkpointPath, orchestrator.Checkpoint{
			LastSuccessfulDate: day.Format("2006-01-02"),
			UpdatedAt:          time.Now(),
		}); err != nil {
			log.Printf("checkpoint write failed: %v", err)
			return exitFailure
		}
	}
	return exitSuccess
}

func logResult(result orchestrator.Result) {
	log.Printf("run %s complete: state=%s rows=%d unresolved_mediator_rows=%d failed_networks=%d",
		result.Summary.RunID, result.Summary.State, len(result.Rows), result.Summary.UnresolvedMediatorRows, len(result.Summary.FailedNetworks))
	if result.Payload != nil {
		log.Printf("alert: header=%s breached_networks=%d breached_rows=%d",
			result.Payload.Header, result.Payload.BreachedNetworkCount, result.Payload.BreachedRowCount)
	}
}

// buildOrchestrator wires config into concrete fetchers, the exporter
// target, and the alert formatter.
func buildOrchestrator(ctx context.Context, cfg *config.Config, tokens *tokencache.Cache, dryRun bool) (*orchestrator.Orchestrator, error) {
	client := httpclient.New()

	mediatorFetcher := mediator.New(mediator.Config{
		APIKey:       cfg.Mediator.APIKey,
		Applications: cfg.Mediator.Applications,
		PackageName:  cfg.Mediator.PackageName,
	}, client)

	fetchers, err := buildNetworkFetchers(cfg, tokens)
	if err != nil {
		return nil, err
	}

	target, err := buildExportTarget(ctx, cfg, dryRun)
	if err != nil {
		return nil, err
	}

	return &orchestrator.Orchestrator{
		Mediator: mediatorFetcher,
		Networks: fetchers,
		Engine:   reconcile.New(),
		Exporter: export.NewWriter(target, "network_data"),
		Alerter:  alert.New(alert.Config{ThresholdPct: cfg.Validation.ThresholdPct, MinRevenueFloor: cfg.Validation.MinRevenueFloor}),
		Delivery: alert.NewDelivery(client, cfg.Alerting.Webhook),
	}, nil
}

func buildExportTarget(ctx context.Context, cfg *config.Config, dryRun bool) (export.Target, error) {
	if dryRun || cfg.Export.Bucket == "" {
		root := cfg.Export.LocalRoot
		if root == "" {
			root = "./export"
		}
		return export.NewLocalTarget(root), nil
	}
	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return export.NewGCSTarget(gcsClient, cfg.Export.Bucket, cfg.Export.Prefix), nil
}

func buildNetworkFetchers(cfg *config.Config, tokens *tokencache.Cache) (map[schema.Network]fetcher.Fetcher, error) {
	fetchers := make(map[schema.Network]fetcher.Fetcher)

	for _, net := range schema.AllNetworks() {
		nc, ok := cfg.Networks[net.Info().IconTag]
		if !ok || !nc.Enabled {
			continue
		}
		// Each network fetcher owns its own Client for the run.
		client := httpclient.New()

		switch net {
		case schema.NetworkAdMob:
			keyJSON, err := os.ReadFile(nc.ServiceAccountJSON)
			if err != nil {
				return nil, fmt.Errorf("admob service account: %w", err)
			}
			fetchers[net] = networks.NewAdMob(networks.AdMobConfig{ServiceAccountJSON: keyJSON, PublisherID: nc.AccountID}, client)
		case schema.NetworkAdjust:
			fetchers[net] = networks.NewAdjust(networks.AdjustConfig{APIToken: nc.APIKey, AppToken: nc.AppID}, client)
		case schema.NetworkBidMachine:
			fetchers[net] = networks.NewBidMachine(networks.BidMachineConfig{Username: nc.Username, Password: nc.Password}, client)
		case schema.NetworkChartboost:
			fetchers[net] = networks.NewChartboost(networks.ChartboostConfig{ClientID: nc.ClientID, ClientSecret: nc.ClientSecret, AppPlatformMap: nc.AppPlatformMap}, client)
		case schema.NetworkDTExchange:
			fetchers[net] = networks.NewDTExchange(networks.DTExchangeConfig{ClientID: nc.ClientID, ClientSecret: nc.ClientSecret, TokenURL: nc.TokenURL}, client)
		case schema.NetworkInMobi:
			fetchers[net] = networks.NewInMobi(networks.InMobiConfig{AccountID: nc.AccountID, APISecret: nc.APISecret}, client, tokens)
		case schema.NetworkIronSource:
			fetchers[net] = networks.NewIronSource(networks.IronSourceConfig{SecretKey: nc.SecretKey, RefreshToken: nc.RefreshToken}, client, tokens)
		case schema.NetworkLiftoff:
			fetchers[net] = networks.NewLiftoff(networks.LiftoffConfig{APIKey: nc.APIKey, AppID: nc.AppID}, client)
		case schema.NetworkMeta:
			fetchers[net] = networks.NewMeta(networks.MetaConfig{AccessToken: nc.AccessToken, AccountID: nc.AccountID}, client)
		case schema.NetworkMintegral:
			fetchers[net] = networks.NewMintegral(networks.MintegralConfig{SKey: nc.SKey, APIKey: nc.APIKey}, client)
		case schema.NetworkMoloco:
			fetchers[net] = networks.NewMoloco(networks.MolocoConfig{APIKey: nc.APIKey}, client)
		case schema.NetworkPangle:
			fetchers[net] = networks.NewPangle(networks.PangleConfig{APIKey: nc.APIKey, AppID: nc.AppID})
		case schema.NetworkUnity:
			fetchers[net] = networks.NewUnity(networks.UnityConfig{APIKey: nc.APIKey, OrgCoreID: nc.OrgCoreID}, client)
		}
	}
	return fetchers, nil
}
