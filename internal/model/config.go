package model

// Thresholds configures the alert rules.
type Thresholds struct {
	TemperatureCelsius   float64 `yaml:"temperature_celsius"`
	MemoryUsedPercent    int     `yaml:"memory_used_percent"`
	TrafficBitsPerSecond float64 `yaml:"traffic_bits_per_second"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		TemperatureCelsius:   65,
		MemoryUsedPercent:    85,
		TrafficBitsPerSecond: 90_000_000,
	}
}

// Normalize replaces non-positive values with defaults.
func (t Thresholds) Normalize() Thresholds {
	defaults := DefaultThresholds()
	if t.TemperatureCelsius <= 0 {
		t.TemperatureCelsius = defaults.TemperatureCelsius
	}
	if t.MemoryUsedPercent <= 0 {
		t.MemoryUsedPercent = defaults.MemoryUsedPercent
	}
	if t.TrafficBitsPerSecond <= 0 {
		t.TrafficBitsPerSecond = defaults.TrafficBitsPerSecond
	}
	return t
}
