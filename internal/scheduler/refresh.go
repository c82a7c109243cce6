package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kjannette/btc-backtest-backend/internal/notifications"
)

// Refresher pulls fresh price data into the local cache. Satisfied by
// prices.Service; abstracted so the scheduler can be tested without a
// database or upstream API.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

type RefreshSchedulerConfig struct {
	Interval  time.Duration // e.g. 12*time.Hour
	OnRefresh func(closesWritten int)
}

// RefreshScheduler keeps the daily-close cache current: one fetch at
// startup, then one per interval. The web UI is told about new data via the
// OnRefresh callback (wired to the websocket hub in main).
type RefreshScheduler struct {
	svc    Refresher
	notify *notifications.Sender
	cfg    RefreshSchedulerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewRefreshScheduler(svc Refresher, notify *notifications.Sender, cfg RefreshSchedulerConfig) *RefreshScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 12 * time.Hour
	}
	return &RefreshScheduler{
		svc:    svc,
		notify: notify,
		cfg:    cfg,
	}
}

func (s *RefreshScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		fmt.Println("[SCHEDULER] Already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	// Initial fetch on startup (fire-and-forget)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		if err := s.fetchAndProcess(ctx); err != nil {
			fmt.Printf("[SCHEDULER] Initial price refresh failed: %v\n", err)
		}
	}()

	// Recurring ticker
	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
				if err := s.fetchAndProcess(ctx); err != nil {
					fmt.Printf("[SCHEDULER] Price refresh failed: %v\n", err)
				}
				cancel()
			}
		}
	}()

	fmt.Printf("[SCHEDULER] Started (refresh every %s)\n", s.cfg.Interval)
}

func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	fmt.Println("[SCHEDULER] Stopped")
}

func (s *RefreshScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// FetchNow manually triggers a refresh outside the normal schedule.
func (s *RefreshScheduler) FetchNow(ctx context.Context) error {
	fmt.Println("[SCHEDULER] Manual price refresh triggered")
	return s.fetchAndProcess(ctx)
}

func (s *RefreshScheduler) fetchAndProcess(ctx context.Context) error {
	n, err := s.svc.Refresh(ctx)
	if err != nil {
		if s.notify != nil && s.notify.Enabled() {
			s.notify.Send(fmt.Sprintf("Price refresh failed: %v", err))
		}
		return err
	}

	fmt.Printf("[SCHEDULER] Price data refreshed (%d daily closes)\n", n)
	if s.notify != nil {
		s.notify.Send(fmt.Sprintf("Price data refreshed: %d daily closes", n))
	}
	if s.cfg.OnRefresh != nil {
		s.cfg.OnRefresh(n)
	}
	return nil
}
