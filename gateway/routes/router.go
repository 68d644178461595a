package routes

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tipchain/eventlog"
	"tipchain/gateway/middleware"
	"tipchain/integrations/indexer"
	"tipchain/native/tipping"
)

// Rate limit keys applied to the route groups.
const (
	RateLimitRead  = "read"
	RateLimitWrite = "write"
)

// Ledger is the subset of core.Ledger served over HTTP.
type Ledger interface {
	Platform(ctx context.Context) (*tipping.PlatformConfig, error)
	Stats(ctx context.Context) (*tipping.PlatformStats, error)
	Creator(ctx context.Context, handle string) (*tipping.Creator, error)
	Creators(ctx context.Context, limit int) ([]*tipping.Creator, error)
	Agent(ctx context.Context, owner [20]byte) (*tipping.Agent, error)
	Balance(ctx context.Context, addr [20]byte) (*big.Int, error)

	RegisterCreator(ctx context.Context, caller [20]byte, handle, displayName, avatarURI string) (*tipping.Creator, error)
	UpdateCreator(ctx context.Context, caller [20]byte, handle string, displayName, avatarURI *string) (*tipping.Creator, error)
	RegisterAgent(ctx context.Context, caller [20]byte, name, agentType string) (*tipping.Agent, error)
	Tip(ctx context.Context, req tipping.TipRequest) (*tipping.TipReceipt, error)
	SetPaused(ctx context.Context, caller [20]byte, paused bool) (*tipping.PlatformConfig, error)
	UpdatePlatformFee(ctx context.Context, caller [20]byte, feeBps uint16) (*tipping.PlatformConfig, error)
	UpdateMinTip(ctx context.Context, caller [20]byte, minTip *big.Int) (*tipping.PlatformConfig, error)
	Mint(ctx context.Context, addr [20]byte, amount *big.Int) error
}

// EventLog serves the event history.
type EventLog interface {
	Query(ctx context.Context, filter eventlog.Filter) ([]eventlog.Record, error)
}

// Leaderboard serves the SQL projection of tip history.
type Leaderboard interface {
	TopCreators(ctx context.Context, limit int) ([]indexer.CreatorVolume, error)
	TopTippers(ctx context.Context, limit int) ([]indexer.TipperVolume, error)
	TipsByCreator(ctx context.Context, handle string, limit int) ([]indexer.Tip, error)
}

type Config struct {
	Ledger        Ledger
	Events        EventLog
	Leaderboard   Leaderboard
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	// FaucetAmount enables POST /v1/dev/faucet when non-nil.
	FaucetAmount *big.Int
	Logger       *slog.Logger
}

type api struct {
	ledger      Ledger
	events      EventLog
	leaderboard Leaderboard
	faucet      *big.Int
	logger      *slog.Logger
}

func New(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &api{
		ledger:      cfg.Ledger,
		events:      cfg.Events,
		leaderboard: cfg.Leaderboard,
		faucet:      cfg.FaucetAmount,
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Observability != nil {
		r.Use(cfg.Observability.Middleware)
		r.Handle("/metrics", cfg.Observability.MetricsHandler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(read chi.Router) {
			if cfg.RateLimiter != nil {
				read.Use(cfg.RateLimiter.Middleware(RateLimitRead))
			}
			read.Get("/platform", a.getPlatform)
			read.Get("/stats", a.getStats)
			read.Get("/creators", a.listCreators)
			read.Get("/creators/{handle}", a.getCreator)
			read.Get("/creators/{handle}/tips", a.creatorTips)
			read.Get("/agents/{address}", a.getAgent)
			read.Get("/accounts/{address}/balance", a.getBalance)
			read.Get("/events", a.listEvents)
			read.Get("/leaderboard/creators", a.topCreators)
			read.Get("/leaderboard/tippers", a.topTippers)
		})
		v1.Group(func(write chi.Router) {
			if cfg.Authenticator != nil {
				write.Use(cfg.Authenticator.Middleware())
			}
			if cfg.RateLimiter != nil {
				write.Use(cfg.RateLimiter.Middleware(RateLimitWrite))
			}
			write.Post("/creators", a.registerCreator)
			write.Patch("/creators/{handle}", a.updateCreator)
			write.Post("/agents", a.registerAgent)
			write.Post("/tips", a.sendTip)
			write.Post("/admin/pause", a.setPaused)
			write.Post("/admin/fee", a.updateFee)
			write.Post("/admin/min-tip", a.updateMinTip)
			if cfg.FaucetAmount != nil {
				write.Post("/dev/faucet", a.faucetDrip)
			}
		})
	})
	return r
}
