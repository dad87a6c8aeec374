// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"
)

// MockWind generates a smoothly gusting wind speed, with a missed reading
// every dropEvery calls to mimic a silent tick on the serial link.
type MockWind struct {
	start     time.Time
	now       func() time.Time
	calls     int
	dropEvery int
}

// NewMockWind creates a mock wind source. dropEvery <= 0 never drops.
func NewMockWind(dropEvery int) *MockWind {
	return &MockWind{start: time.Now(), now: time.Now, dropEvery: dropEvery}
}

func (m *MockWind) ReadWind() (float64, bool) {
	m.calls++
	if m.dropEvery > 0 && m.calls%m.dropEvery == 0 {
		return 0, false
	}
	elapsed := m.now().Sub(m.start).Seconds()
	return 4 + 3*math.Sin(elapsed*0.7) + 0.5*math.Sin(elapsed*5.3), true
}

// MockTemperature generates a slow daily-looking temperature swing.
type MockTemperature struct {
	start time.Time
	now   func() time.Time
}

// NewMockTemperature creates a mock temperature source.
func NewMockTemperature() *MockTemperature {
	return &MockTemperature{start: time.Now(), now: time.Now}
}

func (m *MockTemperature) ReadTemperature() (float64, bool) {
	elapsed := m.now().Sub(m.start).Seconds()
	return 18 + 4*math.Cos(elapsed/600), true
}
