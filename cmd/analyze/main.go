// Command analyze prints the heuristic analysis of one leaderboard trader as
// JSON, fetching the same data the server uses.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Polytraders/polytraders/analyzer"
	"github.com/Polytraders/polytraders/api"
	"github.com/Polytraders/polytraders/config"
	"github.com/Polytraders/polytraders/logging"
	"github.com/Polytraders/polytraders/middleware"
	"github.com/Polytraders/polytraders/models"
	"github.com/Polytraders/polytraders/utils"
)

func main() {
	rank := flag.Int("rank", 0, "leaderboard rank of the trader to analyze")
	address := flag.String("address", "", "wallet address of the trader to analyze")
	cfgPath := flag.String("config", os.Getenv("POLYTRADERS_CONFIG"), "config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log)
	logger := logging.Component("analyze")

	if (*rank > 0) == (*address != "") {
		fmt.Fprintln(os.Stderr, "exactly one of -rank or -address is required")
		flag.Usage()
		os.Exit(2)
	}
	if *address != "" && !middleware.IsValidEthAddress(*address) {
		fmt.Fprintf(os.Stderr, "invalid address %q\n", *address)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := api.NewClient(cfg.Upstream)
	entries, err := api.FetchLeaderboard(ctx, client)
	if err != nil {
		logger.Warn().Err(err).Msg("leaderboard unavailable, trader will be unranked")
	}
	index, candidates := analyzer.NewRanker(cfg.Live.Candidates).Build(entries)

	trader, ok := resolveTrader(index, candidates, *rank, *address)
	if !ok {
		fmt.Fprintf(os.Stderr, "no trader at rank %d\n", *rank)
		os.Exit(1)
	}

	trades, err := api.FetchTrades(ctx, client, []string{trader.Address}, cfg.Live.AnalysisTradeLimit)
	if err != nil {
		logger.Warn().Err(err).Str("trader", trader.Address).Msg("trades unavailable, analyzing zero trades")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(analyzer.Analyze(trader, trades)); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}

func resolveTrader(index analyzer.RankingIndex, candidates []models.Candidate, rank int, address string) (models.TraderRef, bool) {
	if rank > 0 {
		for _, c := range candidates {
			if c.Rank == rank {
				info, _ := index.Lookup(c.Address)
				return models.TraderRef{Address: c.Address, DisplayName: c.DisplayName, Rank: c.Rank, Profit: info.Profit}, true
			}
		}
		return models.TraderRef{}, false
	}

	address = utils.NormalizeAddress(address)
	trader := models.TraderRef{Address: address, DisplayName: utils.ShortAddress(address)}
	if info, ok := index.Lookup(address); ok {
		trader.Rank = info.Rank
		trader.DisplayName = info.DisplayName
		trader.Profit = info.Profit
	}
	return trader, true
}
