package syncer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Polytraders/polytraders/api"
	"github.com/Polytraders/polytraders/config"
)

func testLiveConfig() config.LiveConfig {
	return config.Default().Live
}

func leaderboardBody(addresses ...string) []byte {
	entries := make([]string, 0, len(addresses))
	for i, a := range addresses {
		entries = append(entries, fmt.Sprintf(`{"rank":%d,"address":%q,"displayName":"trader %d","profit":"%d"}`, i+1, a, i+1, 1000-i))
	}
	return []byte(`{"data":{"entries":[` + strings.Join(entries, ",") + `]}}`)
}

func tradesBody(ids ...string) []byte {
	records := make([]string, 0, len(ids))
	for _, id := range ids {
		records = append(records, fmt.Sprintf(`{"id":%q,"side":"BUY","amount":"10","traderAddress":"0xA"}`, id))
	}
	return []byte(`{"data":{"trades":[` + strings.Join(records, ",") + `]}}`)
}

func newTestFeed(t *testing.T, client *api.MockClient) *LiveFeed {
	t.Helper()
	feed := NewLiveFeed(client, testLiveConfig(), nil)
	require.NoError(t, feed.RefreshRankings(context.Background()))
	return feed
}

func TestLiveFeedRefreshRankings(t *testing.T) {
	t.Run("seeds empty selection with all candidates", func(t *testing.T) {
		client := api.NewMockClient()
		client.LeaderboardBody = leaderboardBody("0xA", "0xB")
		feed := newTestFeed(t, client)

		assert.Equal(t, []string{"0xa", "0xb"}, feed.Selected())
		assert.Len(t, feed.Candidates(), 2)
		info, ok := feed.Rank("0xA")
		require.True(t, ok)
		assert.Equal(t, 1, info.Rank)
	})

	t.Run("failure keeps previous index", func(t *testing.T) {
		client := api.NewMockClient()
		client.LeaderboardBody = leaderboardBody("0xA")
		feed := newTestFeed(t, client)

		client.ErrorOnNext["LeaderboardJSON"] = &api.UpstreamError{Status: 502}
		assert.Error(t, feed.RefreshRankings(context.Background()))

		_, ok := feed.Rank("0xa")
		assert.True(t, ok)
		assert.Len(t, feed.Candidates(), 1)
	})

	t.Run("cleared selection is not reseeded", func(t *testing.T) {
		client := api.NewMockClient()
		client.LeaderboardBody = leaderboardBody("0xA", "0xB")
		feed := newTestFeed(t, client)

		feed.ClearAll()
		require.NoError(t, feed.RefreshRankings(context.Background()))
		assert.Empty(t, feed.Selected())
	})
}

func TestLiveFeedPollOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("merges and dedups across polls", func(t *testing.T) {
		client := api.NewMockClient()
		client.LeaderboardBody = leaderboardBody("0xA")
		client.TradesBody = tradesBody("t1", "t2")
		feed := newTestFeed(t, client)

		require.NoError(t, feed.PollOnce(ctx))
		client.SetTradesBody(tradesBody("t3", "t1"))
		require.NoError(t, feed.PollOnce(ctx))

		snap := feed.Snapshot()
		require.Len(t, snap.Trades, 3)
		assert.Equal(t, "t3", snap.Trades[0].IDKey)
		assert.Equal(t, 1, snap.Trades[0].Rank)
		assert.False(t, snap.Loading)
		assert.NotNil(t, snap.LastPollAt)

		traders, limit := client.LastRequest()
		assert.Equal(t, "0xa", traders)
		assert.Equal(t, 50, limit)
	})

	t.Run("clear-all polls every candidate", func(t *testing.T) {
		client := api.NewMockClient()
		client.LeaderboardBody = leaderboardBody("0xA", "0xB", "0xC")
		client.TradesBody = tradesBody()
		feed := newTestFeed(t, client)

		feed.Toggle("0xb")
		require.NoError(t, feed.PollOnce(ctx))
		traders, _ := client.LastRequest()
		assert.Equal(t, "0xa,0xc", traders)

		feed.ClearAll()
		require.NoError(t, feed.PollOnce(ctx))
		traders, _ = client.LastRequest()
		assert.Equal(t, "0xa,0xb,0xc", traders)
	})

	t.Run("no candidates is a no-op", func(t *testing.T) {
		client := api.NewMockClient()
		feed := NewLiveFeed(client, testLiveConfig(), nil)

		require.NoError(t, feed.PollOnce(ctx))
		assert.Equal(t, 0, client.CallCount("TradesJSON"))
	})

	t.Run("upstream failure keeps window and next success clears error", func(t *testing.T) {
		client := api.NewMockClient()
		client.LeaderboardBody = leaderboardBody("0xA")
		client.TradesBody = tradesBody("t1")
		feed := newTestFeed(t, client)
		require.NoError(t, feed.PollOnce(ctx))

		client.ErrorOnNext["TradesJSON"] = &api.UpstreamError{Status: 502}
		assert.Error(t, feed.PollOnce(ctx))

		snap := feed.Snapshot()
		assert.Len(t, snap.Trades, 1)
		assert.Contains(t, snap.Error, "502")

		require.NoError(t, feed.PollOnce(ctx))
		assert.Empty(t, feed.Snapshot().Error)

		metrics := feed.metrics.Local()
		assert.EqualValues(t, 3, metrics.Polls)
		assert.EqualValues(t, 1, metrics.Failures)
		assert.EqualValues(t, 1, metrics.Merged)
	})

	t.Run("find trade in window", func(t *testing.T) {
		client := api.NewMockClient()
		client.LeaderboardBody = leaderboardBody("0xA")
		client.TradesBody = tradesBody("t1")
		feed := newTestFeed(t, client)
		require.NoError(t, feed.PollOnce(ctx))

		trade, ok := feed.FindTrade("t1")
		require.True(t, ok)
		assert.Equal(t, "BUY", trade.Side)
		_, ok = feed.FindTrade("missing")
		assert.False(t, ok)
	})
}

func TestLiveFeedSubscribe(t *testing.T) {
	client := api.NewMockClient()
	client.LeaderboardBody = leaderboardBody("0xA")
	client.TradesBody = tradesBody("t1")
	feed := newTestFeed(t, client)

	updates, unsubscribe := feed.Subscribe()
	require.NoError(t, feed.PollOnce(context.Background()))

	select {
	case snap := <-updates:
		assert.Len(t, snap.Trades, 1)
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}

	unsubscribe()
	unsubscribe()
	_, open := <-updates
	assert.False(t, open)
}

// blockingGateway holds trade requests until the context is cancelled and then
// still returns a body, like a response arriving after shutdown.
type blockingGateway struct {
	*api.MockClient
	entered chan struct{}
	once    sync.Once
}

func (g *blockingGateway) TradesJSON(ctx context.Context, traders string, limit int) ([]byte, error) {
	g.once.Do(func() { close(g.entered) })
	<-ctx.Done()
	return tradesBody("late"), nil
}

func TestLiveFeedStopDiscardsInFlightPoll(t *testing.T) {
	client := api.NewMockClient()
	client.LeaderboardBody = leaderboardBody("0xA")
	gw := &blockingGateway{MockClient: client, entered: make(chan struct{})}

	feed := NewLiveFeed(gw, testLiveConfig(), nil)
	feed.Start(context.Background())

	select {
	case <-gw.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("poll never started")
	}

	feed.Stop()

	snap := feed.Snapshot()
	assert.Empty(t, snap.Trades)
	assert.False(t, snap.Loading)
	assert.False(t, snap.Running)
}

// heldGateway holds trade requests until release is closed.
type heldGateway struct {
	*api.MockClient
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newHeldGateway(client *api.MockClient) *heldGateway {
	return &heldGateway{MockClient: client, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *heldGateway) TradesJSON(ctx context.Context, traders string, limit int) ([]byte, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.MockClient.TradesJSON(ctx, traders, limit)
}

func TestLiveFeedSkipsOverlappingPoll(t *testing.T) {
	client := api.NewMockClient()
	client.LeaderboardBody = leaderboardBody("0xA")
	client.TradesBody = tradesBody("t1")
	gw := newHeldGateway(client)
	feed := newTestFeed(t, client)
	feed.gateway = gw

	done := make(chan error, 1)
	go func() { done <- feed.PollOnce(context.Background()) }()

	select {
	case <-gw.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first poll never reached the gateway")
	}

	require.NoError(t, feed.PollOnce(context.Background()))
	assert.Equal(t, 0, client.CallCount("TradesJSON"))
	assert.EqualValues(t, 1, feed.metrics.Local().Skipped)

	close(gw.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, client.CallCount("TradesJSON"))
	assert.Len(t, feed.Snapshot().Trades, 1)

	require.NoError(t, feed.PollOnce(context.Background()))
	assert.Equal(t, 2, client.CallCount("TradesJSON"))
	assert.EqualValues(t, 1, feed.metrics.Local().Skipped)
	assert.EqualValues(t, 2, feed.metrics.Local().Polls)
}

func TestLiveFeedStartClearsPollFromBeforeRun(t *testing.T) {
	client := api.NewMockClient()
	client.LeaderboardBody = leaderboardBody("0xA")
	client.TradesBody = tradesBody("t1")
	gw := newHeldGateway(client)
	feed := newTestFeed(t, client)
	feed.gateway = gw
	feed.pollInterval = 20 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- feed.PollOnce(context.Background()) }()
	select {
	case <-gw.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("poll never reached the gateway")
	}

	feed.Start(context.Background())
	defer feed.Stop()

	close(gw.release)
	require.NoError(t, <-done)

	assert.Eventually(t, func() bool {
		return client.CallCount("TradesJSON") >= 2 && len(feed.Snapshot().Trades) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLiveFeedTimers(t *testing.T) {
	client := api.NewMockClient()
	client.LeaderboardBody = leaderboardBody("0xA")
	client.TradesBody = tradesBody("t1")

	feed := NewLiveFeed(client, testLiveConfig(), nil)
	feed.pollInterval = 40 * time.Millisecond
	feed.countdownTick = 5 * time.Millisecond

	feed.Start(context.Background())
	defer feed.Stop()

	assert.Eventually(t, func() bool {
		return client.CallCount("TradesJSON") >= 3
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return feed.Snapshot().NextPollInSeconds < feed.countdownMax
	}, time.Second, 5*time.Millisecond)

	assert.Len(t, feed.Snapshot().Trades, 1)
	assert.True(t, feed.Snapshot().Running)
}

func TestLiveFeedFilterChangeTriggersPoll(t *testing.T) {
	client := api.NewMockClient()
	client.LeaderboardBody = leaderboardBody("0xA", "0xB")
	client.TradesBody = tradesBody()

	feed := NewLiveFeed(client, testLiveConfig(), nil)
	feed.Start(context.Background())
	defer feed.Stop()

	require.Eventually(t, func() bool {
		return feed.Snapshot().LastPollAt != nil
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 1, client.CallCount("TradesJSON"))

	feed.Toggle("0xA")

	assert.Eventually(t, func() bool {
		traders, _ := client.LastRequest()
		return client.CallCount("TradesJSON") == 2 && traders == "0xb"
	}, 2*time.Second, 10*time.Millisecond)
}
