package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type result struct {
	v  float64
	ok bool
}

// scriptedWind returns the scripted results in order, then absent forever.
type scriptedWind struct {
	script []result
	calls  int
}

func (w *scriptedWind) ReadWind() (float64, bool) {
	w.calls++
	if len(w.script) == 0 {
		return 0, false
	}
	r := w.script[0]
	w.script = w.script[1:]
	return r.v, r.ok
}

type scriptedTemp struct {
	script []result
	calls  int
}

func (s *scriptedTemp) ReadTemperature() (float64, bool) {
	s.calls++
	if len(s.script) == 0 {
		return 0, false
	}
	r := s.script[0]
	s.script = s.script[1:]
	return r.v, r.ok
}

type debugRec struct{ ms, c float64 }

type recorder struct {
	wind  []float64
	temp  []float64
	debug []debugRec
}

func (r *recorder) PublishWind(ms float64)       { r.wind = append(r.wind, ms) }
func (r *recorder) PublishTemperature(c float64) { r.temp = append(r.temp, c) }
func (r *recorder) EmitDebug(ms, c float64)      { r.debug = append(r.debug, debugRec{ms, c}) }

func ok(v float64) result { return result{v: v, ok: true} }

var absent = result{}

func TestTick_FirstTickAttemptsTemperature(t *testing.T) {
	clock := newFakeClock()
	temp := &scriptedTemp{script: []result{ok(21.5)}}
	rec := &recorder{}
	s := New(DefaultConfig(), &scriptedWind{}, temp, rec, WithClock(clock.Now))

	res := s.Tick()

	assert.True(t, res.TempAttempted)
	assert.True(t, res.TempRefreshed)
	assert.Equal(t, 1, temp.calls)
	assert.Equal(t, []float64{21.5}, rec.temp)
	assert.Empty(t, rec.wind)
	assert.Empty(t, rec.debug, "no wind this tick, so no combined record")
}

func TestTick_WindIsNotCarriedOver(t *testing.T) {
	clock := newFakeClock()
	wind := &scriptedWind{script: []result{ok(3.2), absent, ok(4.1)}}
	rec := &recorder{}
	s := New(DefaultConfig(), wind, &scriptedTemp{}, rec, WithClock(clock.Now))

	r1 := s.Tick()
	clock.Advance(50 * time.Millisecond)
	r2 := s.Tick()
	clock.Advance(50 * time.Millisecond)
	r3 := s.Tick()

	assert.True(t, r1.HaveWind)
	assert.False(t, r2.HaveWind)
	assert.True(t, r3.HaveWind)
	assert.Equal(t, []float64{3.2, 4.1}, rec.wind)
}

func TestTick_FailedReadKeepsLastTemperature(t *testing.T) {
	clock := newFakeClock()
	temp := &scriptedTemp{script: []result{ok(19.25), absent, absent}}
	wind := &scriptedWind{script: []result{ok(1), ok(2), ok(3)}}
	rec := &recorder{}
	s := New(DefaultConfig(), wind, temp, rec, WithClock(clock.Now))
	readAt := clock.Now()

	s.Tick()
	clock.Advance(time.Second)
	r2 := s.Tick()
	clock.Advance(time.Second)
	r3 := s.Tick()

	assert.True(t, r2.TempAttempted)
	assert.False(t, r2.TempRefreshed)
	assert.True(t, r3.TempAttempted)
	assert.Equal(t, 3, temp.calls)

	assert.Equal(t, []float64{19.25, 19.25, 19.25}, rec.temp)
	assert.Equal(t, []debugRec{{1, 19.25}, {2, 19.25}, {3, 19.25}}, rec.debug)

	c, have := s.Temperature()
	assert.True(t, have)
	assert.Equal(t, 19.25, c)

	stats := s.Stats()
	assert.Equal(t, 3, stats.DebugRecords)
	assert.Equal(t, 1, stats.TempSuccesses)
	assert.Equal(t, readAt, stats.LastTemperatureAt, "failed reads do not move the last success time")
}

func TestTick_NewerReadSupersedes(t *testing.T) {
	clock := newFakeClock()
	temp := &scriptedTemp{script: []result{ok(10), ok(11)}}
	rec := &recorder{}
	s := New(DefaultConfig(), &scriptedWind{}, temp, rec, WithClock(clock.Now))

	s.Tick()
	clock.Advance(500 * time.Millisecond)
	s.Tick()
	clock.Advance(500 * time.Millisecond)
	s.Tick()

	assert.Equal(t, []float64{10, 10, 11}, rec.temp)
}

func TestTick_NoTemperatureEver(t *testing.T) {
	clock := newFakeClock()
	wind := &scriptedWind{}
	for iter := 0; iter < 100; iter++ {
		wind.script = append(wind.script, ok(2.5))
	}
	temp := &scriptedTemp{}
	rec := &recorder{}
	s := New(DefaultConfig(), wind, temp, rec, WithClock(clock.Now))

	for iter := 0; iter < 100; iter++ {
		s.Tick()
		clock.Advance(50 * time.Millisecond)
	}

	assert.Len(t, rec.wind, 100)
	assert.Empty(t, rec.temp)
	assert.Empty(t, rec.debug)
	assert.Zero(t, s.Stats().DebugRecords)
	assert.True(t, s.Stats().LastTemperatureAt.IsZero())
	assert.Equal(t, 5, temp.calls, "one attempt per second over 5s")
}

func TestTick_AttemptCadenceResetsOnFailure(t *testing.T) {
	clock := newFakeClock()
	temp := &scriptedTemp{}
	s := New(Config{TemperaturePeriod: time.Second, TickSleep: 50 * time.Millisecond},
		&scriptedWind{}, temp, &recorder{}, WithClock(clock.Now))

	var attemptsAt []time.Duration
	start := clock.Now()
	for iter := 0; iter < 60; iter++ {
		if s.Tick().TempAttempted {
			attemptsAt = append(attemptsAt, clock.Now().Sub(start))
		}
		clock.Advance(50 * time.Millisecond)
	}

	assert.Equal(t, []time.Duration{0, time.Second, 2 * time.Second}, attemptsAt)
	assert.Equal(t, 3, s.Stats().TempAttempts)
	assert.Zero(t, s.Stats().TempSuccesses)
}

func TestTick_UnevenTicksMeasureFromLastAttempt(t *testing.T) {
	clock := newFakeClock()
	temp := &scriptedTemp{}
	s := New(DefaultConfig(), &scriptedWind{}, temp, &recorder{}, WithClock(clock.Now))

	s.Tick() // t=0
	clock.Advance(1300 * time.Millisecond)
	s.Tick() // t=1.3, attempt
	clock.Advance(900 * time.Millisecond)
	s.Tick() // t=2.2, only 0.9s since last attempt
	clock.Advance(100 * time.Millisecond)
	s.Tick() // t=2.3, attempt

	assert.Equal(t, 3, temp.calls)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	clock := newFakeClock()
	ticks := 0
	s := New(DefaultConfig(), &scriptedWind{}, &scriptedTemp{}, &recorder{},
		WithClock(clock.Now),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			ticks++
			clock.Advance(d)
			if ticks == 7 {
				cancel()
			}
			return ctx.Err()
		}),
	)

	err := s.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 7, s.Stats().Ticks)
}

func TestRun_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	wind := &scriptedWind{}
	s := New(DefaultConfig(), wind, &scriptedTemp{}, &recorder{})

	require.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Zero(t, wind.calls)
}

// timeoutWind simulates a silent serial device: every read costs the full timeout.
type timeoutWind struct {
	clock   *fakeClock
	timeout time.Duration
}

func (w *timeoutWind) ReadWind() (float64, bool) {
	w.clock.Advance(w.timeout)
	return 0, false
}

func TestRun_TickCountWithSilentDevice(t *testing.T) {
	const (
		window  = 10 * time.Second
		timeout = 200 * time.Millisecond
		sleep   = 50 * time.Millisecond
	)
	clock := newFakeClock()
	start := clock.Now()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(Config{TemperaturePeriod: time.Second, TickSleep: sleep},
		&timeoutWind{clock: clock, timeout: timeout}, &scriptedTemp{}, &recorder{},
		WithClock(clock.Now),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			clock.Advance(d)
			if clock.Now().Sub(start) >= window {
				cancel()
			}
			return ctx.Err()
		}),
	)

	require.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Equal(t, int(window/(timeout+sleep)), s.Stats().Ticks)
}

// blockingWind really blocks for its timeout, like a serial read with no data.
type blockingWind struct {
	timeout time.Duration
}

func (w blockingWind) ReadWind() (float64, bool) {
	time.Sleep(w.timeout)
	return 0, false
}

func TestRun_RealTimeTickRate(t *testing.T) {
	const (
		window  = 600 * time.Millisecond
		timeout = 40 * time.Millisecond
		sleep   = 20 * time.Millisecond
	)
	s := New(Config{TemperaturePeriod: time.Second, TickSleep: sleep},
		blockingWind{timeout: timeout}, &scriptedTemp{}, &recorder{})

	ctx, cancel := context.WithTimeout(context.Background(), window)
	defer cancel()

	start := time.Now()
	require.ErrorIs(t, s.Run(ctx), context.DeadlineExceeded)
	elapsed := time.Since(start)

	expected := int(window / (timeout + sleep)) // 10
	ticks := s.Stats().Ticks
	assert.LessOrEqual(t, ticks, expected+1)
	assert.GreaterOrEqual(t, ticks, expected/2)
	assert.Less(t, elapsed, window+timeout+100*time.Millisecond, "loop must stop within one read timeout of cancellation")
}
