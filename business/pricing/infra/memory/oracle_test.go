package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KPR-V/stellar/internal/asset"
)

func TestOracle_LastPriceAndTWAP(t *testing.T) {
	ctx := context.Background()
	o := New()
	ref := asset.Symbol("XLM")
	ts := time.Unix(1_700_000_000, 0)

	if _, ok, _ := o.LastPrice(ctx, ref); ok {
		t.Fatal("empty oracle should have no price")
	}
	if _, ok, _ := o.TWAP(ctx, ref, 5); ok {
		t.Fatal("empty oracle should have no twap")
	}

	o.SetPrice(ref, 1_000_000, ts)
	o.SetPrice(ref, 1_200_000, ts.Add(time.Minute))
	o.SetPrice(ref, 1_400_000, ts.Add(2*time.Minute))

	q, ok, err := o.LastPrice(ctx, ref)
	if err != nil || !ok || q.Price != 1_400_000 {
		t.Fatalf("LastPrice = %v %v %v", q, ok, err)
	}

	twap, ok, _ := o.TWAP(ctx, ref, 2)
	if !ok || twap != 1_300_000 {
		t.Fatalf("TWAP(2) = %d", twap)
	}
	twap, _, _ = o.TWAP(ctx, ref, 0)
	if twap != 1_200_000 {
		t.Fatalf("TWAP(all) = %d", twap)
	}
}

func TestOracle_Errors(t *testing.T) {
	ctx := context.Background()
	o := New()
	ref := asset.Symbol("EUR")
	o.SetPrice(ref, 1, time.Now())
	o.SetError(ref, errors.New("down"))

	if _, _, err := o.LastPrice(ctx, ref); err == nil {
		t.Fatal("expected error")
	}
	o.SetError(ref, nil)
	if _, ok, err := o.LastPrice(ctx, ref); err != nil || !ok {
		t.Fatal("error should be cleared")
	}
}

func TestOracle_CrossPrice(t *testing.T) {
	ctx := context.Background()
	o := New()
	ts := time.Unix(1_700_000_000, 0)
	usdc, eur := asset.Symbol("USDC"), asset.Symbol("EUR")

	if _, ok, _ := o.CrossPrice(ctx, usdc, eur); ok {
		t.Fatal("no data should mean no cross price")
	}

	o.SetPrice(usdc, 10_000_000, ts)
	o.SetPrice(eur, 10_800_000, ts.Add(-time.Second))

	q, ok, err := o.CrossPrice(ctx, usdc, eur)
	if err != nil || !ok {
		t.Fatalf("CrossPrice: %v %v", ok, err)
	}
	if q.Price != 9_259_259 || !q.Timestamp.Equal(ts.Add(-time.Second)) {
		t.Fatalf("derived cross = %+v", q)
	}

	o.SetCross(usdc, eur, 9_000_000, ts)
	q, _, _ = o.CrossPrice(ctx, usdc, eur)
	if q.Price != 9_000_000 {
		t.Fatalf("pinned cross = %d", q.Price)
	}
}
