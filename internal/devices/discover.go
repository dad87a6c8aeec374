package devices

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrNoDevice is returned when no pattern matches any device node.
	ErrNoDevice = errors.New("no matching device found")
	// ErrAmbiguousDevice is returned in strict mode when more than one device matches.
	ErrAmbiguousDevice = errors.New("more than one matching device found")
)

// Discover returns the first device node matching patterns.
//
// Patterns are tried in order and each pattern's matches are sorted
// lexically, so with several candidates the choice is stable across boots
// (e.g. /dev/ttyACM0 before /dev/ttyACM1 before /dev/ttyUSB0). With strict
// set, more than one candidate returns ErrAmbiguousDevice and the matches.
func Discover(patterns []string, strict bool) (string, []string, error) {
	matches, err := Matches(patterns)
	if err != nil {
		return "", nil, err
	}
	if len(matches) == 0 {
		return "", nil, fmt.Errorf("%w (patterns: %s)", ErrNoDevice, strings.Join(patterns, ", "))
	}
	if strict && len(matches) > 1 {
		return "", matches, fmt.Errorf("%w: %s", ErrAmbiguousDevice, strings.Join(matches, ", "))
	}
	return matches[0], matches, nil
}

// Matches expands patterns in order, dropping duplicates.
func Matches(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range patterns {
		// filepath.Glob returns matches in lexical order.
		m, err := filepath.Glob(p)
		if err != nil {
			return nil, fmt.Errorf("bad device pattern %q: %w", p, err)
		}
		for _, path := range m {
			if !seen[path] {
				seen[path] = true
				out = append(out, path)
			}
		}
	}
	return out, nil
}
