package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	apiserver "github.com/dcm-project/instance-dashboard/internal/api_server"
	"github.com/dcm-project/instance-dashboard/internal/config"
	"github.com/dcm-project/instance-dashboard/internal/credentials"
	"github.com/dcm-project/instance-dashboard/internal/gateway"
	"github.com/dcm-project/instance-dashboard/internal/handlers"
	"github.com/dcm-project/instance-dashboard/internal/healthcheck"
	"github.com/dcm-project/instance-dashboard/internal/instances"
	"github.com/dcm-project/instance-dashboard/internal/service"
	"github.com/dcm-project/instance-dashboard/internal/store"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

func main() {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.WithPrefix(logger, "ts", log.DefaultTimestampUTC)
	logger = log.WithPrefix(logger, "caller", log.DefaultCaller)

	cfg, err := config.Load()
	if err != nil {
		level.Error(logger).Log("msg", "failed to load config", "err", err)
		os.Exit(1)
	}
	logger = level.NewFilter(logger, level.Allow(level.ParseDefault(cfg.Service.LogLevel, level.InfoValue())))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backend, closeBackend, err := newCredentialsBackend(ctx, cfg, logger)
	if err != nil {
		level.Error(logger).Log("msg", "failed to initialize credentials backend", "backend", cfg.Credentials.Backend, "err", err)
		os.Exit(1)
	}
	defer closeBackend()

	credStore := credentials.NewStore(backend, cfg.Credentials.Scope, logger)
	gw := gateway.NewGateway(cfg.Gateway, logger)
	gate := service.NewGate(credStore, gw, instances.NewList(), logger)

	snap := gate.Start(ctx)
	level.Info(logger).Log("msg", "dashboard started", "state", snap.State, "instances", snap.InstanceCount)

	var upstream handlers.UpstreamStatus
	if cfg.HealthCheck.Enabled {
		monitor := healthcheck.NewMonitor(cfg.Gateway.BaseURL, cfg.HealthCheck, logger)
		monitor.Start(ctx)
		defer monitor.Stop()
		upstream = monitor
	}

	handler := handlers.NewHandler(gate, credStore, upstream, logger)

	listener, err := net.Listen("tcp", cfg.Service.Address)
	if err != nil {
		level.Error(logger).Log("msg", "failed to listen", "address", cfg.Service.Address, "err", err)
		os.Exit(1)
	}

	srv := apiserver.New(cfg, listener, handler, logger)
	if err := srv.Run(ctx); err != nil {
		level.Error(logger).Log("msg", "server failed", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "server stopped")
}

// newCredentialsBackend opens the configured persistence for credentials.
func newCredentialsBackend(ctx context.Context, cfg *config.Config, logger log.Logger) (credentials.Backend, func(), error) {
	if cfg.Credentials.Backend == config.BackendRedis {
		client, err := store.NewRedisClient(cfg.Credentials.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		level.Info(logger).Log("msg", "connected to redis", "addr", cfg.Credentials.RedisAddr)
		return store.NewRedisSettings(client, cfg.Credentials.RedisPrefix), func() { client.Close() }, nil
	}

	db, err := store.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	dataStore := store.NewStore(db)
	level.Info(logger).Log("msg", "database initialized", "type", cfg.Database.Type)
	return dataStore.Settings(), func() { dataStore.Close() }, nil
}
