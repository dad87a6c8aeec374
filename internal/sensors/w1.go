package sensors

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/relabs-tech/weather_station/internal/devices"
)

// TemperatureReader provides one Celsius reading per call; ok is false when
// the sensor could not be read or its output was not valid.
type TemperatureReader interface {
	ReadTemperature() (celsius float64, ok bool)
}

// ParseW1Slave parses the two-line w1_slave text the w1-therm driver exposes:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
//
// The first line must end with the YES token (CRC ok); the second carries
// the temperature in milli-degrees Celsius after "t=".
func ParseW1Slave(content string) (float64, bool) {
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return 0, false
	}

	status := strings.Fields(lines[0])
	if len(status) == 0 || status[len(status)-1] != "YES" {
		return 0, false
	}

	pos := strings.Index(lines[1], "t=")
	if pos < 0 {
		return 0, false
	}
	field := strings.Fields(lines[1][pos+2:])
	if len(field) == 0 {
		return 0, false
	}
	milli, err := strconv.Atoi(field[0])
	if err != nil {
		return 0, false
	}
	return float64(milli) / 1000.0, true
}

// W1Reader reads a DS18B20 through the kernel's sysfs w1_slave file.
//
// The file is located through discovery on first use and again after any
// read error, so a sensor that appears late or is re-plugged is picked up
// without restarting.
type W1Reader struct {
	pattern string
	strict  bool
	logger  *slog.Logger

	path     string
	readFile func(string) ([]byte, error)
}

// NewW1Reader returns a reader for the first w1_slave file matching pattern.
func NewW1Reader(pattern string, strict bool, logger *slog.Logger) *W1Reader {
	return &W1Reader{
		pattern:  pattern,
		strict:   strict,
		logger:   logger,
		readFile: os.ReadFile,
	}
}

// Path returns the currently resolved w1_slave path, empty if none yet.
func (r *W1Reader) Path() string {
	return r.path
}

func (r *W1Reader) ReadTemperature() (float64, bool) {
	if r.path == "" && !r.resolve() {
		return 0, false
	}

	data, err := r.readFile(r.path)
	if err != nil {
		r.logger.Debug("w1 read failed", "path", r.path, "error", err)
		r.path = ""
		return 0, false
	}

	c, ok := ParseW1Slave(string(data))
	if !ok {
		r.logger.Debug("w1 reading rejected", "path", r.path, "content", string(data))
	}
	return c, ok
}

func (r *W1Reader) resolve() bool {
	path, all, err := devices.Discover([]string{r.pattern}, r.strict)
	if err != nil {
		r.logger.Debug("w1 sensor not found", "pattern", r.pattern, "error", err)
		return false
	}
	if len(all) > 1 {
		r.logger.Warn("several w1 sensors found, using the first", "path", path, "candidates", all)
	} else {
		r.logger.Info("w1 sensor found", "path", path)
	}
	r.path = path
	return true
}
