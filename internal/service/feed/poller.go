// internal/service/feed/poller.go

package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"membitpulse/internal/domain/trend"
)

// PollerConfig contains configuration for the poller
type PollerConfig struct {
	Interval time.Duration
}

// Poller refreshes trends on a schedule and fans each snapshot out to
// subscribers. A new run cancels the one in flight, and only the most
// recently started run may publish.
type Poller struct {
	detector trend.Detector
	config   PollerConfig
	cron     *cron.Cron

	mu         sync.Mutex
	generation uint64
	cancelRun  context.CancelFunc
	latest     *trend.Response
	subs       map[uint64]chan trend.Response
	nextSub    uint64
	stopped    bool
}

// NewPoller creates a new poller
func NewPoller(detector trend.Detector, config PollerConfig) *Poller {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	return &Poller{
		detector: detector,
		config:   config,
		cron:     cron.New(),
		subs:     make(map[uint64]chan trend.Response),
	}
}

// Start schedules periodic polls and runs the first one immediately
func (p *Poller) Start() error {
	schedule := fmt.Sprintf("@every %s", p.config.Interval)
	if _, err := p.cron.AddFunc(schedule, func() { p.Poll(context.Background()) }); err != nil {
		return fmt.Errorf("failed to schedule trend poll: %w", err)
	}

	slog.Info("[Poller] starting", "schedule", schedule)
	p.cron.Start()
	go p.Poll(context.Background())
	return nil
}

// Stop halts the schedule, cancels the in-flight run and closes all
// subscriptions. The returned context is done once running jobs finish.
func (p *Poller) Stop() context.Context {
	ctx := p.cron.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.cancelRun != nil {
		p.cancelRun()
	}
	for id, ch := range p.subs {
		close(ch)
		delete(p.subs, id)
	}
	slog.Info("[Poller] stopped")
	return ctx
}

// Poll runs one refresh. It reports whether its result was published.
func (p *Poller) Poll(ctx context.Context) bool {
	gen, runCtx, ok := p.begin(ctx)
	if !ok {
		return false
	}

	resp := p.detector.GetTrends(runCtx)
	return p.publish(gen, resp)
}

func (p *Poller) begin(ctx context.Context) (uint64, context.Context, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return 0, nil, false
	}
	if p.cancelRun != nil {
		p.cancelRun()
	}

	runCtx, cancel := context.WithTimeout(ctx, p.config.Interval)
	p.generation++
	p.cancelRun = cancel
	return p.generation, runCtx, true
}

func (p *Poller) publish(gen uint64, resp trend.Response) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || gen != p.generation {
		slog.Debug("[Poller] dropping superseded run", "generation", gen, "current", p.generation)
		return false
	}

	p.cancelRun()
	p.cancelRun = nil
	p.latest = &resp

	for _, ch := range p.subs {
		offer(ch, resp)
	}
	return true
}

// offer delivers resp without blocking, replacing an unread snapshot
func offer(ch chan trend.Response, resp trend.Response) {
	select {
	case ch <- resp:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- resp:
	default:
	}
}

// Latest returns the most recently published snapshot
func (p *Poller) Latest() (trend.Response, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.latest == nil {
		return trend.Response{}, false
	}
	return *p.latest, true
}

// Subscribe registers for published snapshots. The channel holds at most one
// pending snapshot and is closed by the returned cancel func or by Stop.
func (p *Poller) Subscribe() (<-chan trend.Response, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan trend.Response, 1)
	if p.stopped {
		close(ch)
		return ch, func() {}
	}

	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	if p.latest != nil {
		ch <- *p.latest
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if c, ok := p.subs[id]; ok {
				close(c)
				delete(p.subs, id)
			}
		})
	}
}
