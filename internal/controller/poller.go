package controller

import (
	"context"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"vidtutor/internal/client"
)

const (
	StatusComplete = "complete"
	StatusUnknown  = "unknown"
	StatusFailed   = "failed"
)

// IsTerminal reports whether a progress status ends polling.
func IsTerminal(status string) bool {
	return status == StatusComplete || status == StatusUnknown || status == StatusFailed
}

// Percent rounds progress half away from zero and clamps it to 0..100.
func Percent(progress float64) int {
	if math.IsNaN(progress) {
		return 0
	}
	p := math.Round(progress)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(p)
}

type ProgressFunc func(ctx context.Context) (client.ProgressSnapshot, error)

// Poller fetches progress on a fixed period. At most one request is in
// flight; ticks that land while one is running are skipped.
type Poller struct {
	fetch      ProgressFunc
	interval   time.Duration
	onSnapshot func(client.ProgressSnapshot)
	onTerminal func(client.ProgressSnapshot)

	inFlight atomic.Bool
	skipped  atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

func NewPoller(interval time.Duration, fetch ProgressFunc, onSnapshot, onTerminal func(client.ProgressSnapshot)) *Poller {
	return &Poller{
		fetch:      fetch,
		interval:   interval,
		onSnapshot: onSnapshot,
		onTerminal: onTerminal,
		stop:       make(chan struct{}),
	}
}

// Run polls until ctx is done, Stop is called or a terminal status
// arrives. It returns after any in-flight request has finished.
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			p.tick(ctx, &wg)
		}
	}
}

// Stop ends polling. It reports whether this call was the one that
// stopped the poller.
func (p *Poller) Stop() bool {
	stopped := false
	p.stopOnce.Do(func() {
		close(p.stop)
		stopped = true
	})
	return stopped
}

func (p *Poller) Stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

// Skipped counts ticks dropped because a request was still running.
func (p *Poller) Skipped() int64 {
	return p.skipped.Load()
}

func (p *Poller) tick(ctx context.Context, wg *sync.WaitGroup) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer p.inFlight.Store(false)

		snap, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() == nil && !p.Stopped() {
				log.Printf("[UI] Progress poll failed: %v", err)
			}
			return
		}
		if p.Stopped() {
			return
		}

		if IsTerminal(snap.Status) {
			if p.Stop() && p.onTerminal != nil {
				p.onTerminal(snap)
			}
			return
		}
		if p.onSnapshot != nil {
			p.onSnapshot(snap)
		}
	}()
}
