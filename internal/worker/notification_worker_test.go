package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubCounter struct {
	mu    sync.Mutex
	count int64
	err   error
	calls int
}

func (s *stubCounter) CountPending(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.count, s.err
}

type recordingGauge struct {
	mu   sync.Mutex
	last int64
	sets int
}

func (g *recordingGauge) SetPendingNotifications(n int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = n
	g.sets++
}

func (g *recordingGauge) snapshot() (int64, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.sets
}

func TestPendingMonitorExportsAndWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	counter := &stubCounter{count: 12}
	gauge := &recordingGauge{}
	m := NewPendingMonitor(counter, gauge, 10*time.Millisecond, 10, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, sets := gauge.snapshot()
		return sets >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	last, _ := gauge.snapshot()
	assert.Equal(t, int64(12), last)
	assert.NotZero(t, logs.FilterMessage("pending notifications need attention").Len())
}

func TestPendingMonitorSkipsGaugeOnError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	counter := &stubCounter{err: errors.New("db down")}
	gauge := &recordingGauge{}
	m := NewPendingMonitor(counter, gauge, time.Hour, 10, zap.New(core))

	m.check(context.Background())

	_, sets := gauge.snapshot()
	assert.Zero(t, sets)
	assert.Equal(t, 1, logs.FilterMessage("pending notification count failed").Len())
}

func TestStartNotificationWorkerToleratesNil(t *testing.T) {
	assert.NotPanics(t, func() { StartNotificationWorker(nil) })
}
