package analyzer

import (
	"github.com/Polytraders/polytraders/models"
	"github.com/Polytraders/polytraders/utils"
)

// RankingIndex maps a lowercase wallet address to its leaderboard standing.
type RankingIndex map[string]models.RankInfo

// Lookup returns the rank info for address, if ranked.
func (idx RankingIndex) Lookup(address string) (models.RankInfo, bool) {
	if idx == nil {
		return models.RankInfo{}, false
	}
	info, ok := idx[utils.NormalizeAddress(address)]
	return info, ok
}

// Ranker builds the ranking index and filter candidates from a leaderboard
// snapshot.
type Ranker struct {
	topN int
}

// NewRanker creates a ranker keeping the first topN leaderboard entries.
func NewRanker(topN int) *Ranker {
	if topN <= 0 {
		topN = 100
	}
	return &Ranker{topN: topN}
}

// Build takes the first topN entries in upstream order and returns the index
// and the candidate list derived from the same entries. Entries without an
// address are skipped.
func (r *Ranker) Build(entries []models.LeaderboardEntry) (RankingIndex, []models.Candidate) {
	if len(entries) > r.topN {
		entries = entries[:r.topN]
	}

	index := make(RankingIndex, len(entries))
	candidates := make([]models.Candidate, 0, len(entries))
	for _, e := range entries {
		address := utils.NormalizeAddress(e.Address)
		if address == "" {
			continue
		}
		if _, dup := index[address]; dup {
			continue
		}
		index[address] = models.RankInfo{
			Rank:        e.Rank,
			DisplayName: e.DisplayName,
			Profit:      e.Profit,
		}
		candidates = append(candidates, models.Candidate{
			Address:     address,
			DisplayName: e.DisplayName,
			Rank:        e.Rank,
		})
	}
	return index, candidates
}
