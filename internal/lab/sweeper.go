package lab

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/kamathanirudh/labstack/internal/store"
)

// Sweeper periodically reconciles pending lab records against real VM state
// through the same path a status read takes. Without it a lab that is never
// polled stays pending in the store forever, even after its VM shut down on
// TTL. Disabled by default; enable via LABSTACK_SWEEP_INTERVAL_SEC.
type Sweeper struct {
	controller *Controller
	store      store.RecordStore
	interval   time.Duration
	stop       chan struct{}
	wg         sync.WaitGroup
}

// NewSweeper creates a sweeper reconciling every interval.
func NewSweeper(c *Controller, st store.RecordStore, interval time.Duration) *Sweeper {
	return &Sweeper{
		controller: c,
		store:      st,
		interval:   interval,
		stop:       make(chan struct{}),
	}
}

// Start begins the reconciliation loop.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// Sweep reconciles all pending records once. Per-record failures are logged
// and do not abort the pass.
func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pending, err := s.store.ListPending(ctx)
	if err != nil {
		log.Printf("sweeper: list pending labs: %v", err)
		return
	}

	for _, rec := range pending {
		if _, err := s.controller.Status(ctx, rec.LabID); err != nil {
			log.Printf("sweeper: reconcile lab %s: %v", rec.LabID, err)
		}
	}
}
