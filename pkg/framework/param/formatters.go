package param

import (
	"fmt"
	"strconv"
	"strings"
)

// FrequencyFormatter formats frequency values with Hz/kHz
func FrequencyFormatter(hz float64) string {
	if hz >= 1000 {
		return fmt.Sprintf("%.2f kHz", hz/1000)
	}
	return fmt.Sprintf("%.1f Hz", hz)
}

// FrequencyParser parses "440", "440 Hz" and "2.5 kHz"
func FrequencyParser(str string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(str))
	if strings.HasSuffix(s, "khz") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "khz")), 64)
		if err != nil {
			return 0, err
		}
		return v * 1000, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "hz")), 64)
}

// DecibelFormatter formats dB values
func DecibelFormatter(db float64) string {
	if db <= -60 {
		return "-∞ dB"
	}
	return fmt.Sprintf("%.1f dB", db)
}

// DecibelParser parses dB strings
func DecibelParser(str string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(str))
	if strings.Contains(s, "∞") || strings.Contains(s, "inf") {
		return -96.0, nil
	}
	return strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "db")), 64)
}

// PercentFormatter formats percentage values
func PercentFormatter(value float64) string {
	return fmt.Sprintf("%.0f%%", value)
}

// PercentParser parses percentage strings
func PercentParser(str string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(str), "%")), 64)
}

// TimeFormatter formats milliseconds as ms or s
func TimeFormatter(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2f s", ms/1000)
	}
	return fmt.Sprintf("%.1f ms", ms)
}

// TimeParser parses "250", "250 ms" or "1.5 s" into milliseconds
func TimeParser(str string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(str))
	if strings.HasSuffix(s, "ms") {
		return strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "ms")), 64)
	}
	if strings.HasSuffix(s, "s") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "s")), 64)
		if err != nil {
			return 0, err
		}
		return v * 1000, nil
	}
	return strconv.ParseFloat(s, 64)
}

// OnOffFormatter formats boolean as On/Off
func OnOffFormatter(value float64) string {
	if value > 0.5 {
		return "On"
	}
	return "Off"
}

// OnOffParser parses On/Off strings
func OnOffParser(str string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "on", "yes", "true", "1":
		return 1, nil
	case "off", "no", "false", "0":
		return 0, nil
	default:
		return 0, fmt.Errorf("expected 'on' or 'off', got: %s", str)
	}
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func trimUnit(text, unit string) string {
	s := strings.TrimSpace(text)
	if unit != "" {
		s = strings.TrimSpace(strings.TrimSuffix(s, unit))
	}
	return s
}
