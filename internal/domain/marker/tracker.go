package marker

import (
	"fmt"
	"strings"
	"time"
)

// Accuracy is the requested positioning accuracy tier.
type Accuracy int

// Accuracy tiers, from the cheapest to the most precise.
const (
	AccuracyLowest Accuracy = iota + 1
	AccuracyLow
	AccuracyBalanced
	AccuracyHigh
	AccuracyHighest
	AccuracyBestForNavigation
)

//nolint:gochecknoglobals // Lookup table for the enum.
var accuracyNames = map[Accuracy]string{
	AccuracyLowest:            "lowest",
	AccuracyLow:               "low",
	AccuracyBalanced:          "balanced",
	AccuracyHigh:              "high",
	AccuracyHighest:           "highest",
	AccuracyBestForNavigation: "best-for-navigation",
}

// String returns the config name of the tier.
func (a Accuracy) String() string {
	if name, ok := accuracyNames[a]; ok {
		return name
	}

	return fmt.Sprintf("accuracy(%d)", int(a))
}

// ParseAccuracy converts a config name into an Accuracy tier.
func ParseAccuracy(s string) (Accuracy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, name := range accuracyNames {
		if name == s {
			return a, nil
		}
	}

	return 0, fmt.Errorf("unknown accuracy %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Accuracy) MarshalText() ([]byte, error) {
	if _, ok := accuracyNames[a]; !ok {
		return nil, fmt.Errorf("unknown accuracy %d", int(a))
	}

	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Accuracy) UnmarshalText(text []byte) error {
	parsed, err := ParseAccuracy(string(text))
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}

const (
	// DefaultMinTimeInterval is the default minimum delay between two fixes.
	DefaultMinTimeInterval = 5 * time.Second
	// DefaultMinDistanceInterval is the default minimum movement between two fixes, in meters.
	DefaultMinDistanceInterval = 20.0
)

// TrackerConfig governs how often the backend may deliver position updates.
type TrackerConfig struct {
	// Accuracy is the requested accuracy tier.
	Accuracy Accuracy `yaml:"accuracy"`
	// MinTimeInterval is the minimum delay between two delivered fixes.
	MinTimeInterval time.Duration `yaml:"min_time_interval"`
	// MinDistanceInterval is the minimum movement in meters between two delivered fixes.
	MinDistanceInterval float64 `yaml:"min_distance_interval"`
}

// DefaultTrackerConfig returns balanced accuracy, 5 s and 20 m.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		Accuracy:            AccuracyBalanced,
		MinTimeInterval:     DefaultMinTimeInterval,
		MinDistanceInterval: DefaultMinDistanceInterval,
	}
}

// WithDefaults fills zero fields from DefaultTrackerConfig.
func (c TrackerConfig) WithDefaults() TrackerConfig {
	defaults := DefaultTrackerConfig()

	if c.Accuracy == 0 {
		c.Accuracy = defaults.Accuracy
	}

	if c.MinTimeInterval <= 0 {
		c.MinTimeInterval = defaults.MinTimeInterval
	}

	if c.MinDistanceInterval <= 0 {
		c.MinDistanceInterval = defaults.MinDistanceInterval
	}

	return c
}
