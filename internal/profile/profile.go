// Package profile defines the export profiles driving series generation:
// which bin width and lookback window each published series uses.
package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile describes one exported series variant per sensor.
type Profile struct {
	// Name keys output files ("series_<name>_<sensor>.json") and cache
	// entries.
	Name string `yaml:"name"`
	// IntervalMinutes is the bin width handed to the resample engine.
	IntervalMinutes int `yaml:"interval_minutes"`
	// LookbackDays bounds how far back readings are considered.
	LookbackDays float64 `yaml:"lookback_days"`
	// SkipZeros treats zero counts-per-minute readings as missing data.
	SkipZeros bool `yaml:"skip_zeros"`
}

type fileFormat struct {
	Profiles []Profile `yaml:"profiles"`
}

// Defaults returns the built-in profiles: a two-day series in 15-minute bins
// and a thirty-day series in 6-hour bins.
func Defaults() []Profile {
	return []Profile{
		{Name: "day", IntervalMinutes: 15, LookbackDays: 2, SkipZeros: true},
		{Name: "month", IntervalMinutes: 360, LookbackDays: 30, SkipZeros: true},
	}
}

// Load reads profiles from a YAML file. A missing file yields the defaults;
// a present but invalid file is an error.
func Load(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse profiles file: %w", err)
	}
	if len(f.Profiles) == 0 {
		return Defaults(), nil
	}

	for i, p := range f.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile %d: name is required", i)
		}
		if p.IntervalMinutes <= 0 {
			return nil, fmt.Errorf("profile %q: interval_minutes must be positive", p.Name)
		}
		if p.LookbackDays < 0 {
			return nil, fmt.Errorf("profile %q: lookback_days must not be negative", p.Name)
		}
	}
	return f.Profiles, nil
}
