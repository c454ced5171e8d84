package local

import (
	"context"
	"testing"
	"time"
)

func TestCounter_Latest(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(1_000, 5*time.Second, func() time.Time { return now })

	tests := []struct {
		name    string
		elapsed time.Duration
		want    uint64
	}{
		{"at start", 0, 1_000},
		{"within first close", 4 * time.Second, 1_000},
		{"one close", 5 * time.Second, 1_001},
		{"many closes", time.Hour, 1_720},
		{"clock went back", -time.Minute, 1_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.now = func() time.Time { return now.Add(tt.elapsed) }
			seq, err := c.Latest(context.Background())
			if err != nil {
				t.Fatalf("Latest: %v", err)
			}
			if seq.Number != tt.want {
				t.Fatalf("number = %d, want %d", seq.Number, tt.want)
			}
		})
	}
}
