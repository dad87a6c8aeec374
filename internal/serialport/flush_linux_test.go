//go:build linux

package serialport

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJacobsaPort_ReadBufferedDoesNotWait(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	p := jacobsaPort{r}
	buf := make([]byte, 8)

	start := time.Now()
	n, err := p.ReadBuffered(buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	_, err = w.WriteString("{\"ws_ms\":1.5}\n")
	require.NoError(t, err)

	n, err = p.ReadBuffered(buf)
	require.NoError(t, err)
	assert.Equal(t, "{\"ws_ms\"", string(buf[:n]), "capped at the buffer size")

	n, err = p.ReadBuffered(buf)
	require.NoError(t, err)
	assert.Equal(t, ":1.5}\n", string(buf[:n]))
}
