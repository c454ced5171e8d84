package redisstream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	arbDomain "github.com/KPR-V/stellar/business/arbitrage/domain"
	"github.com/KPR-V/stellar/business/execution/domain"
	"github.com/KPR-V/stellar/internal/asset"
)

func newPublisher(t *testing.T, maxLen int64) (*Publisher, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	p := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "arb:executions", maxLen)
	t.Cleanup(func() { p.Close() })
	return p, mr
}

func execution(status domain.Status, profit asset.Amount) domain.Execution {
	return domain.Execution{
		Opportunity:    arbDomain.Opportunity{Pair: arbDomain.TradingPair{FiatSymbol: "EUR", StableSymbol: "EURC"}},
		ExecutedAmount: asset.Units(100),
		Profit:         profit,
		Timestamp:      time.Unix(1_700_000_000, 0).UTC(),
		Status:         status,
		Mode:           domain.ModePool,
	}
}

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	p, mr := newPublisher(t, 0)
	require.NoError(t, p.Ping(ctx))

	require.NoError(t, p.Publish(ctx, execution(domain.StatusSuccess, asset.Units(2))))
	require.NoError(t, p.Publish(ctx, execution(domain.StatusSwapFailed, 0)))

	entries, err := p.rdb.XRange(ctx, "arb:executions", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "SUCCESS", entries[0].Values["status"])
	assert.Equal(t, "2.0000000", entries[0].Values["profit"])

	var decoded domain.Execution
	require.NoError(t, json.Unmarshal([]byte(entries[1].Values["payload"].(string)), &decoded))
	assert.Equal(t, domain.StatusSwapFailed, decoded.Status)

	assert.Equal(t, "SWAP_FAILED", mr.HGet("execution:latest:EURC/EUR", "status"))
}

func TestPublisher_Unavailable(t *testing.T) {
	p, mr := newPublisher(t, 10)
	mr.Close()

	err := p.Publish(context.Background(), execution(domain.StatusSuccess, 1))
	require.Error(t, err)
}
