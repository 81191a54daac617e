package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Polytraders/polytraders/models"
)

const (
	ledgerNamespace = "polytraders_tracked_v1"
	ledgerVersion   = 1

	minPnLExponent = -18
	maxPnLExponent = 18
)

// maxPnL bounds the magnitude of an entered P&L.
var maxPnL = decimal.New(1, 15)

// ledgerDocument is the persisted form of a profile's tracked trades.
type ledgerDocument struct {
	Version int                            `json:"version"`
	Trades  map[string]models.TrackedTrade `json:"trades"`
}

// LedgerKey returns the storage key of a profile's ledger document.
func LedgerKey(profileID string) string {
	return ledgerNamespace + ":" + profileID
}

// ParseProfitLoss parses a user-entered P&L. Empty, non-numeric and
// out-of-range input is rejected with ErrInvalidPnL.
func ParseProfitLoss(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, ErrInvalidPnL
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidPnL
	}
	// Exponent first: comparing against the cap rescales d.
	if exp := d.Exponent(); exp < minPnLExponent || exp > maxPnLExponent {
		return decimal.Zero, ErrInvalidPnL
	}
	if d.Abs().GreaterThan(maxPnL) {
		return decimal.Zero, ErrInvalidPnL
	}
	return d, nil
}

// TrackByID tracks the live window trade with the given idKey.
func (s *Service) TrackByID(ctx context.Context, profileID, tradeID, enteredPnL string) (models.TrackedTrade, error) {
	if s.live == nil {
		return models.TrackedTrade{}, ErrTradeNotFound
	}
	trade, ok := s.live.FindTrade(tradeID)
	if !ok {
		return models.TrackedTrade{}, ErrTradeNotFound
	}
	return s.Track(ctx, profileID, trade, enteredPnL)
}

// Track records trade with the entered P&L in the profile's ledger,
// replacing any earlier entry for the same trade.
func (s *Service) Track(ctx context.Context, profileID string, trade models.NormalizedTrade, enteredPnL string) (models.TrackedTrade, error) {
	pnl, err := ParseProfitLoss(enteredPnL)
	if err != nil {
		return models.TrackedTrade{}, err
	}

	tracked := models.TrackedTrade{
		TradeID:     trade.IDKey,
		EventTitle:  trade.EventTitle,
		Side:        trade.Side,
		Outcome:     trade.Outcome,
		Shares:      trade.Shares,
		EntryAmount: trade.Value,
		ProfitLoss:  pnl,
		MarketSlug:  trade.MarketSlug,
		TraderName:  trade.TraderDisplayName,
		Icon:        trade.Icon,
		SavedAt:     s.now().UnixMilli(),
	}

	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	trades, err := s.loadLedger(ctx, profileID)
	if err != nil {
		return models.TrackedTrade{}, err
	}
	trades[tracked.TradeID] = tracked

	if err := s.saveLedger(ctx, profileID, trades); err != nil {
		return models.TrackedTrade{}, err
	}

	s.logger.Info().
		Str("profile", profileID).
		Str("trade_id", tracked.TradeID).
		Str("pnl", pnl.String()).
		Msg("trade tracked")
	return tracked, nil
}

// ListTracked returns the profile's tracked trades, newest first.
func (s *Service) ListTracked(ctx context.Context, profileID string) ([]models.TrackedTrade, error) {
	trades, err := s.loadLedger(ctx, profileID)
	if err != nil {
		return nil, err
	}

	list := make([]models.TrackedTrade, 0, len(trades))
	for _, t := range trades {
		list = append(list, t)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].SavedAt != list[j].SavedAt {
			return list[i].SavedAt > list[j].SavedAt
		}
		return list[i].TradeID < list[j].TradeID
	})
	return list, nil
}

// TrackedSet returns the profile's tracked trades keyed by trade id.
func (s *Service) TrackedSet(ctx context.Context, profileID string) (map[string]models.TrackedTrade, error) {
	return s.loadLedger(ctx, profileID)
}

// ClearTracked deletes the profile's ledger.
func (s *Service) ClearTracked(ctx context.Context, profileID string) error {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()

	if err := s.store.Delete(ctx, LedgerKey(profileID)); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	s.logger.Info().Str("profile", profileID).Msg("ledger cleared")
	return nil
}

// Stats aggregates the profile's tracked trades.
func (s *Service) Stats(ctx context.Context, profileID string) (models.ProfileStats, error) {
	trades, err := s.ListTracked(ctx, profileID)
	if err != nil {
		return models.ProfileStats{}, err
	}
	return ComputeStats(trades), nil
}

// ComputeStats sums P&L and counts wins (P&L > 0) over trades.
func ComputeStats(trades []models.TrackedTrade) models.ProfileStats {
	stats := models.ProfileStats{TotalTrades: len(trades), TotalPnL: decimal.Zero}
	for _, t := range trades {
		stats.TotalPnL = stats.TotalPnL.Add(t.ProfitLoss)
		if t.ProfitLoss.IsPositive() {
			stats.Wins++
		}
	}
	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.TotalTrades) * 100
	}
	return stats
}

// loadLedger reads the profile's ledger. A document that cannot be parsed
// reads as empty so a corrupt blob never blocks the ledger.
func (s *Service) loadLedger(ctx context.Context, profileID string) (map[string]models.TrackedTrade, error) {
	raw, found, err := s.store.Get(ctx, LedgerKey(profileID))
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if !found || strings.TrimSpace(raw) == "" {
		return make(map[string]models.TrackedTrade), nil
	}

	trades, err := decodeLedger([]byte(raw))
	if err != nil {
		s.logger.Warn().Err(err).Str("profile", profileID).Msg("ignoring unreadable ledger document")
		return make(map[string]models.TrackedTrade), nil
	}
	return trades, nil
}

// decodeLedger accepts the versioned document and the legacy bare map of
// trade id to tracked trade.
func decodeLedger(data []byte) (map[string]models.TrackedTrade, error) {
	var probe struct {
		Version *int            `json:"version"`
		Trades  json.RawMessage `json:"trades"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}

	trades := make(map[string]models.TrackedTrade)
	if probe.Version != nil {
		if len(probe.Trades) == 0 || string(probe.Trades) == "null" {
			return trades, nil
		}
		if err := json.Unmarshal(probe.Trades, &trades); err != nil {
			return nil, fmt.Errorf("decode ledger v%d: %w", *probe.Version, err)
		}
		return trades, nil
	}

	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, fmt.Errorf("decode legacy ledger: %w", err)
	}
	return trades, nil
}

func (s *Service) saveLedger(ctx context.Context, profileID string, trades map[string]models.TrackedTrade) error {
	data, err := json.Marshal(ledgerDocument{Version: ledgerVersion, Trades: trades})
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.store.Put(ctx, LedgerKey(profileID), string(data)); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}
