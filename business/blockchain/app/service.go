package app

import (
	"context"
	"sync"
	"time"

	"github.com/KPR-V/stellar/business/blockchain/domain"
	"github.com/KPR-V/stellar/internal/logger"
)

// SequenceService tracks the ledger sequence for the executor and the scanner.
type SequenceService struct {
	source  SequenceSource
	offline bool
	log     logger.LoggerInterface

	mu     sync.RWMutex
	status domain.ConnectionStatus
}

// NewSequenceService creates a SequenceService over source. offline marks a
// service backed by the local counter.
func NewSequenceService(source SequenceSource, offline bool, log logger.LoggerInterface) *SequenceService {
	return &SequenceService{
		source:  source,
		offline: offline,
		log:     log,
		status: domain.ConnectionStatus{
			State:   domain.StateDisconnected,
			Offline: offline,
		},
	}
}

// Sequence returns the current ledger sequence number.
func (s *SequenceService) Sequence(ctx context.Context) (uint64, error) {
	seq, err := s.observe(ctx)
	if err != nil {
		return 0, err
	}
	return seq.Number, nil
}

// Watch polls the source every interval and emits each sequence that differs
// from the previous one. The channel closes when ctx is cancelled.
func (s *SequenceService) Watch(ctx context.Context, interval time.Duration) <-chan domain.Sequence {
	out := make(chan domain.Sequence, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last uint64
		poll := func() bool {
			seq, err := s.observe(ctx)
			if err != nil {
				s.log.Warn(ctx, "sequence poll failed", "error", err)
				return true
			}
			if seq.Number == last {
				return true
			}
			last = seq.Number
			select {
			case out <- seq:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !poll() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !poll() {
					return
				}
			}
		}
	}()

	return out
}

// Status returns the current source status.
func (s *SequenceService) Status() domain.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *SequenceService) observe(ctx context.Context) (domain.Sequence, error) {
	start := time.Now()
	seq, err := s.source.Latest(ctx)
	latency := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.status.Failures++
		s.status.State = domain.StateDegraded
		return domain.Sequence{}, err
	}
	s.status = domain.ConnectionStatus{
		State:      domain.StateConnected,
		Latency:    latency,
		LastNumber: seq.Number,
		LastUpdate: seq.ObservedAt,
		Offline:    s.offline,
	}
	return seq, nil
}
