package serialport

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterCharacterTimeout(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want uint
	}{
		{in: 200 * time.Millisecond, want: 200},
		{in: 150 * time.Millisecond, want: 200},
		{in: 10 * time.Millisecond, want: 100},
		{in: time.Nanosecond, want: 100},
		{in: time.Minute, want: 25500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, interCharacterTimeout(tt.in), "timeout %v", tt.in)
	}
}

type nopRWC struct {
	io.ReadWriter
}

func (nopRWC) Close() error { return nil }

func TestJacobsaPort_FlushWithoutFd(t *testing.T) {
	p := jacobsaPort{nopRWC{&bytes.Buffer{}}}
	assert.ErrorIs(t, p.ResetInputBuffer(), ErrUnsupported)

	n, err := p.ReadBuffered(make([]byte, 16))
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Zero(t, n)
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open("bugst", Options{Path: "/dev/null", BaudRate: 115200})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read timeout")

	_, err = Open("pyserial", Options{Path: "/dev/null", BaudRate: 115200, ReadTimeout: time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown serial driver")
}
