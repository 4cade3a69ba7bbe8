package sync

import (
	"context"
	"log"
	"time"
)

// Scheduler drives periodic sync passes over all linked accounts.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewScheduler(engine *Engine, interval time.Duration) *Scheduler {
	return &Scheduler{
		engine:   engine,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs an immediate pass and then one per interval until Stop.
func (s *Scheduler) Start() {
	go func() {
		defer close(s.done)
		log.Printf("[Sync] Scheduler started, interval %s", s.interval)

		s.engine.SyncAll(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.engine.SyncAll(context.Background())
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
	log.Println("[Sync] Scheduler stopped")
}
