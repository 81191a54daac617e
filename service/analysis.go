package service

import (
	"context"

	"github.com/Polytraders/polytraders/analyzer"
	"github.com/Polytraders/polytraders/api"
	"github.com/Polytraders/polytraders/models"
	"github.com/Polytraders/polytraders/utils"
)

// AnalyzeTrader fetches a small sample of the trader's recent trades and runs
// the heuristic analysis. A failed fetch degrades to an empty sample.
func (s *Service) AnalyzeTrader(ctx context.Context, address string) models.AnalysisResult {
	address = utils.NormalizeAddress(address)
	trader := models.TraderRef{Address: address, DisplayName: utils.ShortAddress(address)}
	if s.live != nil {
		if info, ok := s.live.Rank(address); ok {
			trader.Rank = info.Rank
			trader.DisplayName = info.DisplayName
			trader.Profit = info.Profit
		}
	}

	limit := s.cfg.Live.AnalysisTradeLimit
	if limit <= 0 {
		limit = 20
	}

	trades, err := api.FetchTrades(ctx, s.gateway, []string{address}, limit)
	if err != nil {
		s.logger.Warn().Err(err).Str("trader", address).Msg("analysis sample unavailable, analyzing zero trades")
		trades = nil
	}

	return analyzer.Analyze(trader, trades)
}
