package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Polytraders/polytraders/api"
	"github.com/Polytraders/polytraders/config"
	"github.com/Polytraders/polytraders/logging"
	"github.com/Polytraders/polytraders/models"
	"github.com/Polytraders/polytraders/storage"
)

var (
	// ErrInvalidPnL is returned when an entered profit/loss is not a finite number.
	ErrInvalidPnL = errors.New("profit/loss must be a finite number")
	// ErrTradeNotFound is returned when a trade is not in the live window.
	ErrTradeNotFound = errors.New("trade not found in live window")
)

// LiveWindow is the part of the live feed the service reads from.
type LiveWindow interface {
	FindTrade(idKey string) (models.NormalizedTrade, bool)
	Rank(address string) (models.RankInfo, bool)
}

// Service handles business logic and coordinates between the upstream
// gateway, the live feed, storage and the analyzer.
type Service struct {
	store   storage.DataStore
	gateway api.Gateway
	live    LiveWindow
	cfg     *config.Config
	logger  zerolog.Logger

	// ledgerMu serializes read-modify-write of ledger documents.
	ledgerMu sync.Mutex
	now      func() time.Time
}

// NewService creates a new service. live may be nil, in which case trades
// cannot be tracked by id and every trader is unranked.
func NewService(store storage.DataStore, cfg *config.Config, gateway api.Gateway, live LiveWindow) *Service {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	return &Service{
		store:   store,
		gateway: gateway,
		live:    live,
		cfg:     cfg,
		logger:  logging.Component("service"),
		now:     time.Now,
	}
}

// LeaderboardJSON relays the upstream leaderboard body.
func (s *Service) LeaderboardJSON(ctx context.Context) ([]byte, error) {
	return s.gateway.LeaderboardJSON(ctx)
}

// TradesJSON relays the upstream trades body.
func (s *Service) TradesJSON(ctx context.Context, traders string, limit int) ([]byte, error) {
	return s.gateway.TradesJSON(ctx, traders, limit)
}
