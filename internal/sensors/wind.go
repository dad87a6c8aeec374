package sensors

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/relabs-tech/weather_station/internal/env"
	"github.com/relabs-tech/weather_station/internal/serialport"
)

// maxLineBytes caps how much unterminated data is kept; a stream with no
// newline (wrong baud rate, binary noise) is dropped rather than grown.
const maxLineBytes = 1024

// maxDrainReads bounds how much backlog one ReadWind consumes before reading.
const maxDrainReads = 16

// WindReader provides at most one wind speed per call.
type WindReader interface {
	ReadWind() (ms float64, ok bool)
}

// DecodeWindRecord decodes one anemometer line such as {"ws_ms": 1.57}.
// Blank lines, non-JSON, non-objects and a missing, null or non-numeric
// ws_ms field all report ok=false.
func DecodeWindRecord(line []byte) (float64, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return 0, false
	}
	var rec env.WindRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return 0, false
	}
	if rec.WindSpeed == nil {
		return 0, false
	}
	return *rec.WindSpeed, true
}

// SerialWindReader reads newline-delimited wind records from a serial port.
//
// With drain on, each ReadWind first consumes whatever the port has already
// received and keeps only the newest complete line; older lines are stale.
// Only when nothing complete is buffered does it wait, at most timeout, for
// the next line. The port's own read timeout bounds each underlying Read,
// so a silent or unplugged device never stalls the caller.
type SerialWindReader struct {
	port    serialport.Port
	timeout time.Duration
	drain   bool
	logger  *slog.Logger
	now     func() time.Time

	pending []byte
	scratch [256]byte
}

// NewSerialWindReader wraps port. timeout bounds one ReadWind call.
func NewSerialWindReader(port serialport.Port, timeout time.Duration, drain bool, logger *slog.Logger) *SerialWindReader {
	return &SerialWindReader{
		port:    port,
		timeout: timeout,
		drain:   drain,
		logger:  logger,
		now:     time.Now,
	}
}

func (r *SerialWindReader) ReadWind() (float64, bool) {
	var line []byte
	ok := false
	if r.drain {
		line, ok = r.latestBuffered()
	}
	if !ok {
		line, ok = r.readLine()
	}
	if !ok {
		return 0, false
	}

	ms, ok := DecodeWindRecord(line)
	if !ok && len(bytes.TrimSpace(line)) > 0 {
		r.logger.Debug("wind record rejected", "line", string(line))
	}
	return ms, ok
}

// latestBuffered consumes the bytes already received without waiting and
// returns the newest non-blank complete line. An unterminated tail stays in
// pending for readLine to finish.
func (r *SerialWindReader) latestBuffered() ([]byte, bool) {
	var latest []byte
	for iter := 0; iter < maxDrainReads; iter++ {
		n, err := r.port.ReadBuffered(r.scratch[:])
		if err != nil {
			if errors.Is(err, serialport.ErrUnsupported) {
				r.discardBacklog()
			} else {
				r.logger.Debug("serial poll failed", "error", err)
			}
			break
		}
		if n == 0 {
			break
		}
		r.pending = append(r.pending, r.scratch[:n]...)

		line, rest := splitLatest(r.pending)
		if line != nil {
			latest = line
		}
		r.pending = append(r.pending[:0], rest...)
		if len(r.pending) > maxLineBytes {
			r.pending = r.pending[:0]
		}
	}
	return latest, latest != nil
}

// discardBacklog is the fallback for drivers that cannot poll: everything
// received so far is thrown away and the next line is awaited.
func (r *SerialWindReader) discardBacklog() {
	r.pending = r.pending[:0]
	if err := r.port.ResetInputBuffer(); err != nil && !errors.Is(err, serialport.ErrUnsupported) {
		r.logger.Debug("serial input flush failed", "error", err)
	}
}

// splitLatest returns a copy of the last non-blank newline-terminated line
// in buf (nil if none) and the bytes after the last newline.
func splitLatest(buf []byte) (line, rest []byte) {
	end := bytes.LastIndexByte(buf, '\n')
	if end < 0 {
		return nil, buf
	}
	rest = buf[end+1:]
	complete := buf[:end]
	for {
		start := bytes.LastIndexByte(complete, '\n') + 1
		if cand := complete[start:]; len(bytes.TrimSpace(cand)) > 0 {
			return append([]byte(nil), cand...), rest
		}
		if start == 0 {
			return nil, rest
		}
		complete = complete[:start-1]
	}
}

// readLine returns the next line without its terminator.
func (r *SerialWindReader) readLine() ([]byte, bool) {
	deadline := r.now().Add(r.timeout)
	for {
		if i := bytes.IndexByte(r.pending, '\n'); i >= 0 {
			line := append([]byte(nil), r.pending[:i]...)
			r.pending = append(r.pending[:0], r.pending[i+1:]...)
			return line, true
		}
		if len(r.pending) > maxLineBytes {
			r.pending = r.pending[:0]
		}
		if !r.now().Before(deadline) {
			return nil, false
		}

		n, err := r.port.Read(r.scratch[:])
		r.pending = append(r.pending, r.scratch[:n]...)
		if err != nil {
			r.logger.Debug("serial read failed", "error", err)
			return nil, false
		}
		if n == 0 {
			// read timeout
			return nil, false
		}
	}
}
