package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/MoovFleet/MoovFleet/internal/api"
	"github.com/MoovFleet/MoovFleet/internal/common/config"
	"github.com/MoovFleet/MoovFleet/internal/common/db"
	"github.com/MoovFleet/MoovFleet/internal/common/logger"
	"github.com/MoovFleet/MoovFleet/internal/common/server"
	"github.com/MoovFleet/MoovFleet/internal/common/tracing"
	"github.com/MoovFleet/MoovFleet/internal/fleet"
	"github.com/MoovFleet/MoovFleet/internal/platform"
	"github.com/MoovFleet/MoovFleet/internal/syncer"
)

var (
	configPath   = flag.String("config", "configs/sync-service.json", "config file path")
	consulAddr   = flag.String("consul-addr", "localhost:8500", "consul agent address for -consul-config-key")
	consulCfgKey = flag.String("consul-config-key", "", "load config from this Consul KV key instead of the file")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	_, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}

	gormDB, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}
	if err := gormDB.AutoMigrate(&fleet.Driver{}, &fleet.ActivityRecord{}, &fleet.FleetSettings{}); err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}

	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		log.Warnf("invalid timezone %q, falling back to local: %v", cfg.Sync.Timezone, err)
		loc = time.Local
	}

	client := platform.NewClient(
		cfg.Platform.BaseURL,
		platform.Credentials{
			ClientID: cfg.Platform.ClientID,
			APIKey:   cfg.Platform.APIKey,
			ParkID:   cfg.Platform.ParkID,
		},
		time.Duration(cfg.Platform.TimeoutSeconds)*time.Second,
	)
	fetcher := platform.NewFetcher(client, cfg.Platform.PageSize, cfg.Platform.MaxPages, log)

	driverRepo := fleet.NewDriverRepo(gormDB)
	activityRepo := fleet.NewActivityRepo(gormDB)
	settingsRepo := fleet.NewSettingsRepo(gormDB)

	orch := syncer.NewOrchestrator(
		fetcher,
		driverRepo,
		activityRepo,
		settingsRepo,
		log,
		loc,
		cfg.Sync.ObjectiveMinutes,
		cfg.Sync.Workers,
	)
	orch.Preflight = cfg.Platform.Validate
	if cfg.Sync.WorkRuleFilter != "" {
		orch.WorkRules = platform.NewWorkRuleCache(fetcher.FetchWorkRules, time.Hour)
		orch.WorkRuleName = cfg.Sync.WorkRuleFilter
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := syncer.NewScheduler(orch, cfg.Sync.Hour, loc, log)
	go scheduler.Start(ctx)

	mux := http.NewServeMux()
	api.NewHandler(orch, activityRepo, settingsRepo, log, loc).Register(mux)

	if err := server.RunHTTPServer(cfg, log, mux); err != nil {
		log.Fatalf("sync-service exited with error: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	if *consulCfgKey == "" {
		return config.LoadConfig(*configPath)
	}
	host, port, err := splitHostPort(*consulAddr)
	if err != nil {
		return nil, err
	}
	return config.LoadConfigFromConsulKV(host, port, *consulCfgKey)
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid consul address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid consul port %q: %w", portStr, err)
	}
	return host, port, nil
}
