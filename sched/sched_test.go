package sched

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfox/foxbox/spc"
)

type captureSink struct {
	mu        sync.Mutex
	snapshots []spc.Health
	fail      bool
}

func (c *captureSink) RecordHealth(h spc.Health) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return assert.AnError
	}
	c.snapshots = append(c.snapshots, h)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snapshots)
}

func newMonitor(t *testing.T) *spc.Monitor {
	t.Helper()
	store := spc.NewMemoryStore()
	mon := spc.NewMonitor(store, zerolog.Nop())

	spec := spc.Spec{Target: 25, USL: 50, LSL: 0, Unit: "ms"}
	for _, v := range []float64{22, 26, 31} {
		require.NoError(t, mon.Record(spc.NewMeasurement(spc.ProcSignalLatency, v, spec, "")))
	}
	return mon
}

func TestRunHealthNow(t *testing.T) {
	sink := &captureSink{}
	s := New(newMonitor(t), sink, time.Hour, spc.DefaultWindow, zerolog.Nop())

	s.RunHealthNow()

	require.Equal(t, 1, sink.count())
	assert.Equal(t, spc.HealthHealthy, sink.snapshots[0].Level)
	assert.Equal(t, 3, sink.snapshots[0].SampleCount)
}

func TestSinkFailureIsNonFatal(t *testing.T) {
	sink := &captureSink{fail: true}
	s := New(newMonitor(t), sink, time.Hour, spc.DefaultWindow, zerolog.Nop())

	// Must not panic or propagate.
	s.RunHealthNow()
	assert.Zero(t, sink.count())
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	s := New(newMonitor(t), &captureSink{}, time.Hour, spc.DefaultWindow, zerolog.Nop())

	assert.Error(t, s.Register("not a cron spec", ""))
	assert.NoError(t, s.Register("*/5 * * * *", "0 * * * *"))
}

func TestWindowDefaults(t *testing.T) {
	s := New(newMonitor(t), &captureSink{}, 0, 0, zerolog.Nop())

	assert.Equal(t, spc.DefaultHealthWindow, s.healthWindow)
	assert.Equal(t, spc.DefaultWindow, s.reportWindow)
}

func TestStartStop(t *testing.T) {
	sink := &captureSink{}
	s := New(newMonitor(t), sink, time.Hour, spc.DefaultWindow, zerolog.Nop())
	require.NoError(t, s.Register("* * * * *", ""))

	s.Start()
	s.Stop()
}
