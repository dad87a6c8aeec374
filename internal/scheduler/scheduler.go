// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package scheduler runs the acquisition loop that interleaves the wind and
// temperature readers and decides what is published on each tick.
//
// Per tick:
//
//	READ_WIND -> MAYBE_READ_TEMP -> PUBLISH -> SLEEP
//
// Wind is never carried over between ticks. Temperature is attempted at
// most once per period and the last good value is kept until a newer read
// succeeds.
package scheduler

import (
	"context"
	"io"
	"log/slog"
	"time"
)

type WindReader interface {
	ReadWind() (ms float64, ok bool)
}

type TemperatureReader interface {
	ReadTemperature() (celsius float64, ok bool)
}

// Publisher is the sink for one tick's output. Calls must not block on the broker.
type Publisher interface {
	PublishWind(ms float64)
	PublishTemperature(celsius float64)
	EmitDebug(ms, celsius float64)
}

// Config holds the two cadence parameters of the loop.
type Config struct {
	TemperaturePeriod time.Duration // minimum spacing of temperature read attempts
	TickSleep         time.Duration // pause after each tick
}

// DefaultConfig is 1s between temperature attempts and 50ms between ticks.
func DefaultConfig() Config {
	return Config{TemperaturePeriod: time.Second, TickSleep: 50 * time.Millisecond}
}

// TickResult is what one tick observed and published.
type TickResult struct {
	Wind            float64
	HaveWind        bool
	Temperature     float64 // retained value, possibly from an earlier tick
	HaveTemperature bool
	TempAttempted   bool
	TempRefreshed   bool
}

// Stats counts loop activity since construction.
type Stats struct {
	Ticks             int
	WindSamples       int
	TempAttempts      int
	TempSuccesses     int
	DebugRecords      int
	LastTemperatureAt time.Time
}

type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithSleep replaces the context-aware sleep between ticks.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scheduler) { s.sleep = sleep }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// Scheduler owns the retained temperature; it is not safe for concurrent use.
type Scheduler struct {
	cfg  Config
	wind WindReader
	temp TemperatureReader
	pub  Publisher

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger

	lastAttempt time.Time
	attempted   bool
	temperature float64
	haveTemp    bool

	stats Stats
}

func New(cfg Config, wind WindReader, temp TemperatureReader, pub Publisher, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:    cfg,
		wind:   wind,
		temp:   temp,
		pub:    pub,
		now:    time.Now,
		sleep:  sleepContext,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run ticks until ctx is cancelled and returns ctx.Err().
// Reader failures never end the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("acquisition loop started",
		"temperature_period", s.cfg.TemperaturePeriod,
		"tick_sleep", s.cfg.TickSleep,
	)
	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("acquisition loop stopping",
				"ticks", s.stats.Ticks,
				"wind_samples", s.stats.WindSamples,
				"temp_attempts", s.stats.TempAttempts,
				"temp_successes", s.stats.TempSuccesses,
				"debug_records", s.stats.DebugRecords,
				"last_temperature_at", s.stats.LastTemperatureAt,
			)
			return err
		}

		s.Tick()

		// a cancelled sleep is reported at the top of the loop
		_ = s.sleep(ctx, s.cfg.TickSleep)
	}
}

// Tick runs one iteration without sleeping.
func (s *Scheduler) Tick() TickResult {
	var res TickResult
	s.stats.Ticks++

	res.Wind, res.HaveWind = s.wind.ReadWind()
	if res.HaveWind {
		s.stats.WindSamples++
	}

	now := s.now()
	if !s.attempted || now.Sub(s.lastAttempt) >= s.cfg.TemperaturePeriod {
		res.TempAttempted = true
		s.stats.TempAttempts++
		if c, ok := s.temp.ReadTemperature(); ok {
			s.temperature, s.haveTemp = c, true
			res.TempRefreshed = true
			s.stats.TempSuccesses++
			s.stats.LastTemperatureAt = now
		} else {
			s.logger.Debug("temperature read failed, keeping last value", "have_last", s.haveTemp)
		}
		// reset on every attempt so a failing sensor is retried once per period
		s.lastAttempt = now
		s.attempted = true
	}
	res.Temperature, res.HaveTemperature = s.temperature, s.haveTemp

	if res.HaveWind {
		s.pub.PublishWind(res.Wind)
	}
	if res.HaveTemperature {
		s.pub.PublishTemperature(res.Temperature)
	}
	if res.HaveWind && res.HaveTemperature {
		s.pub.EmitDebug(res.Wind, res.Temperature)
		s.stats.DebugRecords++
	}
	return res
}

// Temperature returns the retained last-known-good temperature.
func (s *Scheduler) Temperature() (float64, bool) {
	return s.temperature, s.haveTemp
}

func (s *Scheduler) Stats() Stats {
	return s.stats
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
