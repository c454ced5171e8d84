package ethereum

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KPR-V/stellar/internal/apperror"
	"github.com/KPR-V/stellar/internal/logger"
)

type fakeNode struct {
	number uint64
	err    error
	calls  int
}

func (f *fakeNode) BlockNumber(context.Context) (uint64, error) {
	f.calls++
	return f.number, f.err
}

func TestSource_LatestCaches(t *testing.T) {
	node := &fakeNode{number: 50_000}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	src, err := New(node, Config{CacheTTL: time.Minute, Now: func() time.Time { return now }}, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	seq, err := src.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if seq.Number != 50_000 || !seq.ObservedAt.Equal(now) {
		t.Fatalf("seq = %+v", seq)
	}

	node.number = 50_001
	seq, _ = src.Latest(ctx)
	if seq.Number != 50_000 {
		t.Fatalf("cached seq = %d, want 50000", seq.Number)
	}
	if node.calls != 1 {
		t.Fatalf("calls = %d, want 1", node.calls)
	}
}

func TestSource_Errors(t *testing.T) {
	node := &fakeNode{err: errors.New("connection refused")}
	src, err := New(node, Config{}, logger.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := src.Latest(ctx); !apperror.HasCode(err, apperror.CodeRPCError) {
			t.Fatalf("call %d: err = %v, want RPC_ERROR", i, err)
		}
	}
	if _, err := src.Latest(ctx); !apperror.HasCode(err, apperror.CodeCircuitOpen) {
		t.Fatalf("err = %v, want CIRCUIT_OPEN", err)
	}
	if node.calls != 5 {
		t.Fatalf("calls = %d, want 5", node.calls)
	}
}

func TestNew_RequiresClient(t *testing.T) {
	if _, err := New(nil, Config{}, logger.NewNop()); !apperror.HasCode(err, apperror.CodeConfigurationError) {
		t.Fatalf("err = %v", err)
	}
}
