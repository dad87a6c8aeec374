package publish

import (
	"io"
	"math"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/weather_station/internal/env"
)

// Broker sends a payload to a topic without waiting for acknowledgement.
type Broker interface {
	Publish(topic string, payload []byte)
}

// Topics names the two output channels.
type Topics struct {
	Wind        string
	Temperature string
}

// Round2 rounds v to 2 decimals, halves away from zero on the scaled value:
// 3.456 -> 3.46, 22.875 -> 22.88, -1.125 -> -1.13.
func Round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0 // no "-0" on the wire
	}
	return r
}

// FormatValue renders the rounded value as bare decimal text, e.g. "3.46", "22".
func FormatValue(v float64) []byte {
	return strconv.AppendFloat(nil, Round2(v), 'f', -1, 64)
}

// Trace writes the combined debug record, one JSON object per line.
type Trace struct {
	logger zerolog.Logger
}

// NewTrace writes level-less, timestamp-less JSON lines to w.
func NewTrace(w io.Writer) *Trace {
	return &Trace{logger: zerolog.New(w)}
}

// Emit writes {"ws_ms":..,"temp_c":..}.
func (t *Trace) Emit(rec env.Combined) {
	t.logger.Log().
		Float64("ws_ms", rec.WindSpeed).
		Float64("temp_c", rec.Temperature).
		Msg("")
}

// Publisher normalizes readings and hands them to the broker and the trace.
type Publisher struct {
	broker Broker
	topics Topics
	trace  *Trace
}

// New returns a Publisher. A nil trace disables the debug record.
func New(broker Broker, topics Topics, trace *Trace) *Publisher {
	return &Publisher{broker: broker, topics: topics, trace: trace}
}

func (p *Publisher) PublishWind(ms float64) {
	p.broker.Publish(p.topics.Wind, FormatValue(ms))
}

func (p *Publisher) PublishTemperature(c float64) {
	p.broker.Publish(p.topics.Temperature, FormatValue(c))
}

func (p *Publisher) EmitDebug(ms, c float64) {
	if p.trace == nil {
		return
	}
	p.trace.Emit(env.Combined{WindSpeed: Round2(ms), Temperature: Round2(c)})
}
