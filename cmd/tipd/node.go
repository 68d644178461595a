package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"tipchain/config"
	"tipchain/core"
	"tipchain/core/genesis"
	"tipchain/eventlog"
	gatewayconfig "tipchain/gateway/config"
	"tipchain/gateway/middleware"
	"tipchain/gateway/routes"
	"tipchain/integrations/indexer"
	"tipchain/observability"
	"tipchain/storage"
)

// node owns every long-lived resource of the daemon.
type node struct {
	db      storage.Database
	events  *eventlog.Log
	indexer *indexer.Indexer
	ledger  *core.Ledger
	logger  *slog.Logger
}

// openNode opens the state database, bootstrapping it from the genesis file on
// first start, and attaches the configured event sinks.
func openNode(cfg *config.Config, logger *slog.Logger) (*node, error) {
	db, err := storage.NewLevelDB(cfg.StateDir())
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	n := &node{db: db, logger: logger}

	if _, ok, err := storage.ReadHeadRoot(db); err != nil {
		n.Close()
		return nil, err
	} else if !ok {
		if strings.TrimSpace(cfg.GenesisFile) == "" {
			n.Close()
			return nil, fmt.Errorf("state db is empty and no GenesisFile is configured")
		}
		spec, err := genesis.LoadSpec(cfg.GenesisFile)
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("load genesis: %w", err)
		}
		root, err := genesis.Build(spec, db)
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("build genesis: %w", err)
		}
		logger.Info("genesis state written", "root", root.Hex(), "genesis", cfg.GenesisFile)
	}

	n.events, err = eventlog.Open(cfg.EventLogDir)
	if err != nil {
		n.Close()
		return nil, err
	}
	sinks := []core.EventSink{n.events}
	if dsn := strings.TrimSpace(cfg.Indexer.DSN); dsn != "" {
		n.indexer, err = indexer.Open(dsn)
		if err != nil {
			n.Close()
			return nil, err
		}
		sinks = append(sinks, n.indexer)
	}

	n.ledger, err = core.Open(db, core.Options{
		Logger:              logger,
		Sinks:               sinks,
		Metrics:             observability.Tipping(),
		AllowStateMigration: cfg.AllowStateMigration,
	})
	if err != nil {
		n.Close()
		if errors.Is(err, core.ErrNoGenesis) {
			return nil, fmt.Errorf("genesis was not persisted: %w", err)
		}
		return nil, err
	}
	logger.Info("ledger opened", "root", n.ledger.Root().Hex(), "event_seq", n.events.LastSeq())
	return n, nil
}

// handler builds the HTTP surface for the node.
func (n *node) handler(cfg *config.Config, gw gatewayconfig.Config) (http.Handler, error) {
	limits := make(map[string]middleware.RateLimit, len(gw.RateLimits))
	for _, entry := range gw.RateLimits {
		limits[entry.ID] = middleware.RateLimit{RequestsPerMinute: entry.RequestsPerMinute, Burst: entry.Burst}
	}
	var faucet *big.Int
	if cfg.DevFaucet.Enabled {
		amount, err := cfg.DevFaucet.ParseAmount()
		if err != nil {
			return nil, err
		}
		faucet = amount
		n.logger.Warn("dev faucet enabled", "amount", amount.String())
	}
	routeCfg := routes.Config{
		Ledger: n.ledger,
		Events: n.events,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:    gw.Auth.Enabled,
			HMACSecret: gw.Auth.Secret(),
			Issuer:     gw.Auth.Issuer,
			Audience:   gw.Auth.Audience,
			ClockSkew:  gw.Auth.ClockSkew,
		}, n.logger),
		RateLimiter: middleware.NewRateLimiter(limits, n.logger),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{
			ServiceName:   gw.Observability.ServiceName,
			MetricsPrefix: gw.Observability.MetricsPrefix,
			LogRequests:   gw.Observability.LogRequests,
			Metrics:       gw.Observability.Metrics,
			Tracing:       gw.Observability.Tracing,
		}, nil, n.logger),
		CORS: middleware.CORSConfig{
			AllowedOrigins:   gw.CORS.AllowedOrigins,
			AllowCredentials: gw.CORS.AllowCredentials,
		},
		FaucetAmount: faucet,
		Logger:       n.logger,
	}
	if n.indexer != nil {
		routeCfg.Leaderboard = n.indexer
	}
	return routes.New(routeCfg), nil
}

func (n *node) Close() {
	if n.indexer != nil {
		if err := n.indexer.Close(); err != nil {
			n.logger.Warn("close indexer", "error", err)
		}
	}
	if n.events != nil {
		if err := n.events.Close(); err != nil {
			n.logger.Warn("close event log", "error", err)
		}
	}
	if n.db != nil {
		n.db.Close()
	}
}
