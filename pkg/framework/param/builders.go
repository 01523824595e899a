package param

import (
	"fmt"
	"strings"
)

// Choice creates a list parameter whose plain value is the option index.
func Choice(id uint32, name string, options ...string) *Builder {
	b := New(id, name).
		Range(0, float64(len(options)-1)).
		Steps(int32(len(options) - 1))
	b.param.Kind = KindEnum
	b.param.Choices = options
	b.param.Flags |= IsList
	return b
}

// GainParameter creates a decibel gain parameter; the bottom of the range reads -∞.
func GainParameter(id uint32, name string, minDB, maxDB, defaultDB float64) *Builder {
	return New(id, name).
		Range(minDB, maxDB).
		Default(defaultDB).
		Unit("dB").
		Formatter(func(v float64) string {
			if v <= minDB {
				return "-∞ dB"
			}
			return fmt.Sprintf("%.1f dB", v)
		}, func(s string) (float64, error) {
			if strings.Contains(strings.ToLower(s), "inf") || strings.Contains(s, "∞") {
				return minDB, nil
			}
			return DecibelParser(s)
		})
}

// PercentParameter creates a 0-100% parameter
func PercentParameter(id uint32, name string, defaultPct float64) *Builder {
	return New(id, name).
		Range(0, 100).
		Default(defaultPct).
		Unit("%").
		Formatter(PercentFormatter, PercentParser)
}

// FrequencyParameter creates a frequency parameter in Hz
func FrequencyParameter(id uint32, name string, min, max, defaultVal float64) *Builder {
	return New(id, name).
		Range(min, max).
		Default(defaultVal).
		Unit("Hz").
		Formatter(FrequencyFormatter, FrequencyParser)
}

// TimeParameter creates a time parameter in milliseconds
func TimeParameter(id uint32, name string, minMs, maxMs, defaultMs float64) *Builder {
	return New(id, name).
		Range(minMs, maxMs).
		Default(defaultMs).
		Unit("ms").
		Formatter(TimeFormatter, TimeParser)
}

// RateParameter creates an LFO-style rate parameter in Hz
func RateParameter(id uint32, name string, minHz, maxHz, defaultHz float64) *Builder {
	return New(id, name).
		Range(minHz, maxHz).
		Default(defaultHz).
		Unit("Hz").
		Formatter(func(v float64) string {
			if v < 1.0 {
				return fmt.Sprintf("%.3f Hz", v)
			}
			return fmt.Sprintf("%.2f Hz", v)
		}, FrequencyParser)
}

// SemitoneParameter creates a pitch offset parameter in semitones
func SemitoneParameter(id uint32, name string, rng, defaultSt float64) *Builder {
	return New(id, name).
		Range(-rng, rng).
		Default(defaultSt).
		Unit("st").
		Formatter(func(v float64) string {
			return fmt.Sprintf("%+.2f st", v)
		}, func(s string) (float64, error) {
			return parseFloat(strings.TrimSuffix(strings.TrimSpace(s), "st"))
		})
}

// BipolarParameter creates a -1..1 amount parameter
func BipolarParameter(id uint32, name string, defaultVal float64) *Builder {
	return New(id, name).
		Range(-1, 1).
		Default(defaultVal).
		Formatter(func(v float64) string {
			return fmt.Sprintf("%+.0f%%", v*100)
		}, func(s string) (float64, error) {
			v, err := PercentParser(s)
			return v / 100, err
		})
}

// ToggleParameter creates an On/Off switch
func ToggleParameter(id uint32, name string, on bool) *Builder {
	def := 0.0
	if on {
		def = 1
	}
	return New(id, name).Toggle().Default(def)
}

// BypassParameter creates a bypass on/off switch
func BypassParameter(id uint32, name string) *Builder {
	return New(id, name).Toggle().Bypass().
		Formatter(func(v float64) string {
			if v > 0.5 {
				return "Bypassed"
			}
			return "Active"
		}, func(s string) (float64, error) {
			if equalFold(strings.TrimSpace(s), "bypassed") {
				return 1, nil
			}
			if equalFold(strings.TrimSpace(s), "active") {
				return 0, nil
			}
			return OnOffParser(s)
		})
}

func parseFloat(s string) (float64, error) {
	var value float64
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &value); err != nil {
		return 0, fmt.Errorf("invalid number: %s", s)
	}
	return value, nil
}
