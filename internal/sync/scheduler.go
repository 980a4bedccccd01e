package sync

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Scheduler drives periodic sync cycles while the device is online. A tick
// that cannot run (offline, cycle in flight) is skipped silently; the next
// tick performs a full catch-up through the checkpoint, so missed ticks
// are never queued.
type Scheduler struct {
	engine   *Engine
	probe    ConnectivityProbe
	tenantID string
	interval time.Duration

	mu        sync.Mutex
	isRunning bool
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewScheduler creates a scheduler for one tenant's background sync
func NewScheduler(engine *Engine, probe ConnectivityProbe, tenantID string, interval time.Duration) *Scheduler {
	return &Scheduler{
		engine:   engine,
		probe:    probe,
		tenantID: tenantID,
		interval: interval,
	}
}

// Start launches the background loop. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	log.Printf("⏱️ Sync scheduler started (interval %v)", s.interval)
}

// Stop halts background sync without touching queued data. Safe to call
// repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("⏱️ Sync scheduler stopped")
}

// Running reports whether the background loop is active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.probe.IsOnline() {
		return
	}

	_, err := s.engine.SyncCycle(ctx, s.tenantID)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress), errors.Is(err, ErrDeviceOffline):
		// Skip this tick; the checkpoint catches us up next time
	default:
		log.Printf("⚠️ Scheduled sync failed: %v", err)
	}
}
