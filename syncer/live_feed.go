// Package syncer runs the live trade feed: leaderboard rankings refresh,
// periodic trade polling, window merging and subscriber fan-out.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/Polytraders/polytraders/analyzer"
	"github.com/Polytraders/polytraders/api"
	"github.com/Polytraders/polytraders/config"
	"github.com/Polytraders/polytraders/logging"
	"github.com/Polytraders/polytraders/models"
	"github.com/Polytraders/polytraders/utils"
)

// LiveTrade is a window trade annotated with its trader's leaderboard rank.
// Rank is 0 when the trader is not in the current ranking index.
type LiveTrade struct {
	models.NormalizedTrade
	Rank int `json:"rank,omitempty"`
}

// Snapshot is a consistent copy of the feed state.
type Snapshot struct {
	Trades            []LiveTrade `json:"trades"`
	Selected          []string    `json:"selected"`
	Candidates        int         `json:"candidates"`
	Loading           bool        `json:"loading"`
	Error             string      `json:"error,omitempty"`
	NextPollInSeconds int         `json:"nextPollInSeconds"`
	LastPollAt        *time.Time  `json:"lastPollAt,omitempty"`
	Running           bool        `json:"running"`
}

// LiveFeed polls recent trades for the selected traders and keeps a bounded,
// deduplicated, newest-first window of them.
type LiveFeed struct {
	gateway api.Gateway
	ranker  *analyzer.Ranker
	metrics *MetricsStore
	logger  zerolog.Logger

	pollInterval     time.Duration
	countdownTick    time.Duration
	rankingsInterval time.Duration
	countdownMax     int
	windowSize       int
	tradeLimit       int

	mu                  sync.RWMutex
	window              []models.NormalizedTrade
	selection           Selection
	selectionSeeded     bool
	index               analyzer.RankingIndex
	candidates          []models.Candidate
	loading             bool
	lastErr             string
	countdown           int
	lastPollAt          time.Time
	generation          uint64
	inFlight            bool
	candidatesReady     chan struct{}
	candidatesReadyOnce sync.Once

	subsMu sync.Mutex
	subs   map[chan Snapshot]struct{}

	runMu     sync.Mutex
	running   atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	pollNow   chan struct{}
	startedAt time.Time
}

// NewLiveFeed creates a stopped feed. metrics may be nil.
func NewLiveFeed(gateway api.Gateway, cfg config.LiveConfig, metrics *MetricsStore) *LiveFeed {
	if metrics == nil {
		metrics = NewMetricsStore(nil)
	}
	f := &LiveFeed{
		gateway:          gateway,
		ranker:           analyzer.NewRanker(cfg.Candidates),
		metrics:          metrics,
		logger:           logging.Component("live-feed"),
		pollInterval:     cfg.PollInterval(),
		countdownTick:    cfg.CountdownTick(),
		rankingsInterval: cfg.RankingsInterval(),
		countdownMax:     cfg.PollSeconds,
		windowSize:       cfg.WindowSize,
		tradeLimit:       cfg.TradeLimit,
		candidatesReady:  make(chan struct{}),
		subs:             make(map[chan Snapshot]struct{}),
		pollNow:          make(chan struct{}, 1),
	}
	if f.pollInterval <= 0 {
		f.pollInterval = 30 * time.Second
	}
	if f.countdownTick <= 0 {
		f.countdownTick = time.Second
	}
	if f.countdownMax <= 0 {
		f.countdownMax = 30
	}
	if f.windowSize <= 0 {
		f.windowSize = DefaultWindowSize
	}
	if f.tradeLimit <= 0 {
		f.tradeLimit = 50
	}
	f.countdown = f.countdownMax
	return f
}

// Start launches the rankings refresh loop and the poll loop. The poll loop
// waits until the candidate list is non-empty. Calling Start on a running
// feed is a no-op.
func (f *LiveFeed) Start(ctx context.Context) {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	if f.running.Load() {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.running.Store(true)
	f.startedAt = time.Now()

	// A poll started outside a run belongs to the previous generation and
	// must not block this run's polls.
	f.mu.Lock()
	f.generation++
	f.inFlight = false
	f.loading = false
	f.mu.Unlock()

	f.logger.Info().
		Dur("poll_interval", f.pollInterval).
		Dur("rankings_interval", f.rankingsInterval).
		Msg("starting live feed")

	startLoop(runCtx, &f.wg, f.logger, "rankings-refresh", f.rankingsInterval, f.RefreshRankings)

	f.wg.Add(1)
	go f.pollLoop(runCtx)
}

// Stop cancels both timers and waits for in-flight work. Results of polls
// started before Stop are discarded.
func (f *LiveFeed) Stop() {
	f.runMu.Lock()
	defer f.runMu.Unlock()
	if !f.running.Load() {
		return
	}

	f.cancel()

	f.mu.Lock()
	f.generation++
	f.inFlight = false
	f.loading = false
	f.mu.Unlock()

	f.wg.Wait()
	f.running.Store(false)
	f.logger.Info().Dur("uptime", time.Since(f.startedAt)).Msg("live feed stopped")
	f.publish()
}

func (f *LiveFeed) pollLoop(ctx context.Context) {
	defer f.wg.Done()

	select {
	case <-ctx.Done():
		return
	case <-f.candidatesReady:
	}

	pollTicker := time.NewTicker(f.pollInterval)
	defer pollTicker.Stop()
	countdownTicker := time.NewTicker(f.countdownTick)
	defer countdownTicker.Stop()

	f.triggerPoll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			f.triggerPoll(ctx)
		case <-f.pollNow:
			pollTicker.Reset(f.pollInterval)
			f.triggerPoll(ctx)
		case <-countdownTicker.C:
			f.tickCountdown()
		}
	}
}

// triggerPoll resets the countdown and runs a poll in the background so the
// countdown keeps ticking while the request is in flight.
func (f *LiveFeed) triggerPoll(ctx context.Context) {
	f.mu.Lock()
	f.countdown = f.countdownMax
	f.mu.Unlock()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if err := f.PollOnce(ctx); err != nil && ctx.Err() == nil {
			f.logger.Warn().Err(err).Msg("poll failed")
		}
	}()
}

func (f *LiveFeed) tickCountdown() {
	f.mu.Lock()
	if f.countdown > 0 {
		f.countdown--
	} else {
		f.countdown = f.countdownMax
	}
	f.mu.Unlock()
	f.publish()
}

// requestPoll asks a running poll loop for an immediate poll.
func (f *LiveFeed) requestPoll() {
	select {
	case f.pollNow <- struct{}{}:
	default:
	}
}

// PollOnce fetches recent trades for the effective targets and merges them
// into the window. It is a no-op when there are no targets or another poll
// is in flight. On failure the window is kept and the error is recorded in
// the state until the next successful poll.
func (f *LiveFeed) PollOnce(ctx context.Context) error {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		f.metrics.RecordSkip()
		f.logger.Debug().Msg("poll already in flight, skipping")
		return nil
	}
	targets := EffectiveTargets(f.selection, f.candidates)
	if len(targets) == 0 {
		f.mu.Unlock()
		return nil
	}
	f.inFlight = true
	gen := f.generation
	if len(f.window) == 0 {
		f.loading = true
	}
	f.mu.Unlock()
	f.publish()

	start := time.Now()
	raws, err := api.FetchTrades(ctx, f.gateway, targets, f.tradeLimit)
	latency := time.Since(start)

	f.mu.Lock()
	if gen != f.generation {
		f.mu.Unlock()
		f.logger.Debug().Uint64("generation", gen).Msg("discarding stale poll result")
		return nil
	}
	f.inFlight = false
	f.loading = false

	added := 0
	if err != nil {
		f.lastErr = err.Error()
	} else {
		previous := f.window
		f.window = MergeWindow(previous, NormalizeTrades(raws), f.windowSize)
		added = countAdded(previous, f.window)
		f.lastErr = ""
		f.lastPollAt = time.Now()
	}
	f.mu.Unlock()

	if mErr := f.metrics.RecordPoll(ctx, latency, added, err != nil); mErr != nil {
		f.logger.Debug().Err(mErr).Msg("failed to mirror feed metrics")
	}
	f.publish()

	if err != nil {
		return fmt.Errorf("fetch trades for %d traders: %w", len(targets), err)
	}
	f.logger.Debug().
		Int("targets", len(targets)).
		Int("fetched", len(raws)).
		Int("added", added).
		Dur("latency", latency).
		Msg("poll complete")
	return nil
}

func countAdded(previous, merged []models.NormalizedTrade) int {
	seen := make(map[string]struct{}, len(previous))
	for _, t := range previous {
		seen[t.IDKey] = struct{}{}
	}
	added := 0
	for _, t := range merged {
		if _, ok := seen[t.IDKey]; !ok {
			added++
		}
	}
	return added
}

// RefreshRankings rebuilds the ranking index and candidate list from the
// leaderboard. On failure the previous index is kept.
func (f *LiveFeed) RefreshRankings(ctx context.Context) error {
	entries, err := api.FetchLeaderboard(ctx, f.gateway)
	if err != nil {
		return fmt.Errorf("refresh rankings: %w", err)
	}
	index, candidates := f.ranker.Build(entries)

	f.mu.Lock()
	f.index = index
	f.candidates = candidates
	if !f.selectionSeeded && len(candidates) > 0 {
		if f.selection.Len() == 0 {
			f.selection = SelectAll(candidates)
		}
		f.selectionSeeded = true
	}
	f.mu.Unlock()

	if len(candidates) > 0 {
		f.candidatesReadyOnce.Do(func() { close(f.candidatesReady) })
	}
	f.logger.Info().Int("entries", len(entries)).Int("candidates", len(candidates)).Msg("rankings refreshed")
	f.publish()
	return nil
}

// Toggle flips one trader in the selection and returns the new selection.
func (f *LiveFeed) Toggle(address string) []string {
	return f.updateSelection(func(s Selection, _ []models.Candidate) Selection {
		return s.Toggle(address)
	})
}

// SelectAll selects every candidate.
func (f *LiveFeed) SelectAll() []string {
	return f.updateSelection(func(_ Selection, c []models.Candidate) Selection {
		return SelectAll(c)
	})
}

// ClearAll empties the selection, which polls every candidate.
func (f *LiveFeed) ClearAll() []string {
	return f.updateSelection(func(Selection, []models.Candidate) Selection {
		return ClearAll()
	})
}

func (f *LiveFeed) updateSelection(fn func(Selection, []models.Candidate) Selection) []string {
	f.mu.Lock()
	f.selection = fn(f.selection, f.candidates)
	selected := f.selection.Addresses()
	f.mu.Unlock()

	f.publish()
	f.requestPoll()
	return selected
}

// Selected returns the current selection.
func (f *LiveFeed) Selected() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.selection.Addresses()
}

// Candidates returns the current candidate list.
func (f *LiveFeed) Candidates() []models.Candidate {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Candidate, len(f.candidates))
	copy(out, f.candidates)
	return out
}

// Rank looks up a trader in the current ranking index.
func (f *LiveFeed) Rank(address string) (models.RankInfo, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.index.Lookup(address)
}

// FindTrade returns the window trade with the given idKey.
func (f *LiveFeed) FindTrade(idKey string) (models.NormalizedTrade, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, t := range f.window {
		if t.IDKey == idKey {
			return t, true
		}
	}
	return models.NormalizedTrade{}, false
}

// Metrics returns the feed metrics.
func (f *LiveFeed) Metrics(ctx context.Context) (FeedMetrics, error) {
	return f.metrics.GetMetrics(ctx)
}

// Snapshot returns a copy of the current state.
func (f *LiveFeed) Snapshot() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshotLocked(f.running.Load())
}

func (f *LiveFeed) snapshotLocked(running bool) Snapshot {
	trades := make([]LiveTrade, 0, len(f.window))
	for _, t := range f.window {
		lt := LiveTrade{NormalizedTrade: t}
		if info, ok := f.index.Lookup(utils.NormalizeAddress(t.TraderAddress)); ok {
			lt.Rank = info.Rank
		}
		trades = append(trades, lt)
	}

	snap := Snapshot{
		Trades:            trades,
		Selected:          f.selection.Addresses(),
		Candidates:        len(f.candidates),
		Loading:           f.loading,
		Error:             f.lastErr,
		NextPollInSeconds: f.countdown,
		Running:           running,
	}
	if !f.lastPollAt.IsZero() {
		at := f.lastPollAt
		snap.LastPollAt = &at
	}
	return snap
}

// Subscribe registers a subscriber that receives a snapshot after every
// state change. Slow subscribers only see the latest snapshot. The returned
// func unsubscribes and closes the channel.
func (f *LiveFeed) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	f.subsMu.Lock()
	f.subs[ch] = struct{}{}
	f.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.subsMu.Lock()
			delete(f.subs, ch)
			f.subsMu.Unlock()
			close(ch)
		})
	}
}

func (f *LiveFeed) publish() {
	f.subsMu.Lock()
	defer f.subsMu.Unlock()
	if len(f.subs) == 0 {
		return
	}

	snap := f.Snapshot()
	for ch := range f.subs {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot in favor of the new one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
