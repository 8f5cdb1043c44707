package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"membitpulse/internal/domain/trend"
)

// scriptedDetector answers run n with responses[n]. Runs listed in block wait
// for their context to be cancelled or for release to be closed.
type scriptedDetector struct {
	mu        sync.Mutex
	calls     int
	block     map[int]bool
	started   chan int
	release   chan struct{}
	responses []trend.Response
}

func (d *scriptedDetector) GetTrends(ctx context.Context) trend.Response {
	d.mu.Lock()
	n := d.calls
	d.calls++
	d.mu.Unlock()

	if d.started != nil {
		d.started <- n
	}
	if d.block[n] {
		select {
		case <-ctx.Done():
		case <-d.release:
		}
	}
	return d.responses[n]
}

func response(source string, ts int64) trend.Response {
	return trend.Response{Topics: []trend.Topic{}, Source: source, TS: ts}
}

func TestPollPublishesToSubscribers(t *testing.T) {
	d := &scriptedDetector{responses: []trend.Response{response(trend.SourceMock, 1)}}
	p := NewPoller(d, PollerConfig{Interval: time.Minute})

	ch, cancel := p.Subscribe()
	defer cancel()

	assert.True(t, p.Poll(context.Background()))

	got := <-ch
	assert.Equal(t, int64(1), got.TS)

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, trend.SourceMock, latest.Source)
}

func TestLatestInitiatedRunWins(t *testing.T) {
	d := &scriptedDetector{
		block:     map[int]bool{0: true},
		started:   make(chan int, 2),
		release:   make(chan struct{}),
		responses: []trend.Response{response("stale", 1), response("fresh", 2)},
	}
	p := NewPoller(d, PollerConfig{Interval: time.Minute})

	firstDone := make(chan bool)
	go func() { firstDone <- p.Poll(context.Background()) }()
	require.Equal(t, 0, <-d.started)

	assert.True(t, p.Poll(context.Background()))
	assert.Equal(t, 1, <-d.started)

	close(d.release)
	assert.False(t, <-firstDone)

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, "fresh", latest.Source)
}

func TestNewRunCancelsPrevious(t *testing.T) {
	d := &scriptedDetector{
		block:     map[int]bool{0: true},
		started:   make(chan int, 2),
		release:   make(chan struct{}),
		responses: []trend.Response{response("stale", 1), response("fresh", 2)},
	}
	p := NewPoller(d, PollerConfig{Interval: time.Minute})

	firstDone := make(chan bool)
	go func() { firstDone <- p.Poll(context.Background()) }()
	<-d.started

	// the second run cancels the first, so the first returns without release
	assert.True(t, p.Poll(context.Background()))
	select {
	case published := <-firstDone:
		assert.False(t, published)
	case <-time.After(2 * time.Second):
		t.Fatal("first run was not cancelled")
	}
}

func TestSubscribeReceivesLatestImmediately(t *testing.T) {
	d := &scriptedDetector{responses: []trend.Response{response(trend.SourceAPI, 5)}}
	p := NewPoller(d, PollerConfig{})
	p.Poll(context.Background())

	ch, cancel := p.Subscribe()
	defer cancel()

	select {
	case got := <-ch:
		assert.Equal(t, trend.SourceAPI, got.Source)
	default:
		t.Fatal("expected buffered snapshot")
	}
}

func TestSlowSubscriberKeepsNewest(t *testing.T) {
	d := &scriptedDetector{responses: []trend.Response{response("a", 1), response("b", 2), response("c", 3)}}
	p := NewPoller(d, PollerConfig{})

	ch, cancel := p.Subscribe()
	defer cancel()

	for i := 0; i < 3; i++ {
		p.Poll(context.Background())
	}
	assert.Equal(t, "c", (<-ch).Source)
}

func TestStopClosesSubscriptions(t *testing.T) {
	p := NewPoller(&scriptedDetector{}, PollerConfig{})
	ch, cancel := p.Subscribe()

	<-p.Stop().Done()
	_, open := <-ch
	assert.False(t, open)

	cancel()
	assert.False(t, p.Poll(context.Background()))
}

func TestStartSchedulesInitialPoll(t *testing.T) {
	d := &scriptedDetector{responses: []trend.Response{response(trend.SourceMock, 1), response(trend.SourceMock, 2)}}
	p := NewPoller(d, PollerConfig{Interval: time.Hour})

	ch, cancel := p.Subscribe()
	defer cancel()

	require.NoError(t, p.Start())
	defer p.Stop()

	select {
	case got := <-ch:
		assert.Equal(t, int64(1), got.TS)
	case <-time.After(2 * time.Second):
		t.Fatal("initial poll did not publish")
	}
}
