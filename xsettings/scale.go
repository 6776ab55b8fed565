package xsettings

import (
	"os"
	"strconv"
	"strings"
)

// DefaultScaleEnv is the environment variable that overrides the scale.
const DefaultScaleEnv = "GDK_SCALE"

// Scale is the desktop-wide integer UI scale. A valid environment override
// wins over anything the settings manager publishes.
type Scale struct {
	value    int
	override int
}

// NewScale reads the override from envVar. An empty name disables the
// override.
func NewScale(envVar string) *Scale {
	s := &Scale{value: 1}
	if envVar == "" {
		return s
	}
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(envVar))); err == nil && v > 0 {
		s.override = v
		s.value = v
	}
	return s
}

// Value is always at least 1.
func (s *Scale) Value() int {
	return s.value
}

// Overridden reports whether the environment fixed the scale, in which case
// the settings property need not be read at all.
func (s *Scale) Overridden() bool {
	return s.override > 0
}

// Update reads the scale from a settings property. On any error the last
// known value is kept. It reports whether the value changed.
func (s *Scale) Update(blob []byte) (bool, error) {
	if s.Overridden() {
		return false, nil
	}
	v, err := FindInt(blob, ScaleSetting)
	if err != nil {
		return false, err
	}
	if v < 1 {
		v = 1
	}
	if int(v) == s.value {
		return false, nil
	}
	s.value = int(v)
	return true, nil
}
