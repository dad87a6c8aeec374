package sensors

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// W1Modules are the kernel modules that expose a DS18B20 under /sys/bus/w1.
var W1Modules = []string{"w1-gpio", "w1-therm"}

// modprobe is replaced in tests.
var modprobe = func(ctx context.Context, module string) error {
	out, err := exec.CommandContext(ctx, "modprobe", module).CombinedOutput()
	if err != nil {
		return fmt.Errorf("modprobe %s: %w: %s", module, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// LoadW1Modules loads the one-wire kernel modules. Modules already loaded
// are a no-op for modprobe. Every module is attempted; the first error is
// returned so the caller can log it and carry on without temperature.
func LoadW1Modules(ctx context.Context, logger *slog.Logger) error {
	var firstErr error
	for _, m := range W1Modules {
		if err := modprobe(ctx, m); err != nil {
			logger.Warn("could not load kernel module", "module", m, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logger.Debug("kernel module loaded", "module", m)
	}
	return firstErr
}
