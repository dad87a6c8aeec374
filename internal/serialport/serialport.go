// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package serialport opens the anemometer's USB serial link with a bounded
// read timeout and exposes input-buffer flushing.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"time"

	jserial "github.com/jacobsa/go-serial/serial"
	"go.bug.st/serial"
)

// ErrUnsupported is returned by ResetInputBuffer and ReadBuffered when the
// driver cannot reach the kernel input queue.
var ErrUnsupported = errors.New("not supported by serial driver")

// Port is what the wind reader needs from a serial device.
// Read must return (0, nil) or an error once the read timeout elapses with no data.
// ReadBuffered returns only bytes already received and never waits.
type Port interface {
	io.ReadCloser
	ReadBuffered(p []byte) (int, error)
	ResetInputBuffer() error
}

// Options describes the serial connection. Data format is fixed at 8N1.
type Options struct {
	Path        string
	BaudRate    int
	ReadTimeout time.Duration
}

// Open opens the port at opts.Path with the named driver ("bugst" or "jacobsa").
func Open(driver string, opts Options) (Port, error) {
	if opts.ReadTimeout <= 0 {
		return nil, fmt.Errorf("serial %s: read timeout must be positive, got %v", opts.Path, opts.ReadTimeout)
	}
	switch driver {
	case "bugst", "":
		return openBugst(opts)
	case "jacobsa":
		return openJacobsa(opts)
	default:
		return nil, fmt.Errorf("unknown serial driver %q", driver)
	}
}

func openBugst(opts Options) (Port, error) {
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(opts.Path, mode)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", opts.Path, err)
	}
	if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("serial %s: set read timeout: %w", opts.Path, err)
	}
	return &bugstPort{Port: port, timeout: opts.ReadTimeout}, nil
}

// bugstPort polls by dropping the read timeout to zero for a single Read.
type bugstPort struct {
	serial.Port
	timeout time.Duration
}

func (p *bugstPort) ReadBuffered(b []byte) (int, error) {
	if err := p.SetReadTimeout(0); err != nil {
		return 0, fmt.Errorf("set poll timeout: %w", err)
	}
	n, err := p.Read(b)
	if terr := p.SetReadTimeout(p.timeout); terr != nil && err == nil {
		err = fmt.Errorf("restore read timeout: %w", terr)
	}
	return n, err
}

// jacobsaPort adapts jacobsa/go-serial, which has no flush or poll call of its own.
type jacobsaPort struct {
	io.ReadWriteCloser
}

func (p jacobsaPort) ResetInputBuffer() error {
	return flushInput(p.ReadWriteCloser)
}

func (p jacobsaPort) ReadBuffered(b []byte) (int, error) {
	queued, err := inputQueued(p.ReadWriteCloser)
	if err != nil || queued == 0 {
		return 0, err
	}
	// queued bytes are already in the kernel buffer, so this Read does not wait
	return p.Read(b[:min(queued, len(b))])
}

func openJacobsa(opts Options) (Port, error) {
	serialOpts := jserial.OpenOptions{
		PortName:              opts.Path,
		BaudRate:              uint(opts.BaudRate),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            jserial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: interCharacterTimeout(opts.ReadTimeout),
	}
	rwc, err := jserial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", opts.Path, err)
	}
	return jacobsaPort{rwc}, nil
}

// interCharacterTimeout converts d to the termios VTIME granularity jacobsa
// expects: milliseconds in whole tenths of a second, 100ms to 25.5s.
func interCharacterTimeout(d time.Duration) uint {
	ms := (d.Milliseconds() + 99) / 100 * 100
	switch {
	case ms < 100:
		ms = 100
	case ms > 25500:
		ms = 25500
	}
	return uint(ms)
}
