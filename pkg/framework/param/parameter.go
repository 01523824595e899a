// Package param holds the engine's parameter table: atomically stored values
// with static metadata, shared between the audio thread and host/UI threads.
package param

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

// Kind describes how a parameter's value is quantized and displayed.
type Kind uint8

const (
	KindFloat Kind = iota
	KindInt
	KindBool
	KindEnum
)

// Flags for parameters
const (
	CanAutomate   uint32 = 1 << 0
	IsReadOnly    uint32 = 1 << 1
	IsList        uint32 = 1 << 3
	IsHidden      uint32 = 1 << 4
	IsModulatable uint32 = 1 << 5
	IsBypass      uint32 = 1 << 16
)

// Parameter is one entry of the parameter table. Metadata is immutable after
// Build; the value is a plain (unnormalized) float64 held in an atomic.
type Parameter struct {
	ID           uint32
	Name         string
	ShortName    string
	Unit         string
	Group        string
	Min          float64
	Max          float64
	DefaultValue float64
	StepCount    int32
	Flags        uint32
	Kind         Kind
	Choices      []string

	value atomic.Uint64

	formatFunc func(float64) string
	parseFunc  func(string) (float64, error)
}

// Value returns the current plain value.
func (p *Parameter) Value() float64 {
	return math.Float64frombits(p.value.Load())
}

// SetValue stores a plain value, clamped to the range and quantized for
// discrete kinds.
func (p *Parameter) SetValue(plain float64) {
	p.value.Store(math.Float64bits(p.Clamp(plain)))
}

// Normalized returns the current value mapped to 0-1.
func (p *Parameter) Normalized() float64 {
	return p.Normalize(p.Value())
}

// SetNormalized stores a 0-1 value.
func (p *Parameter) SetNormalized(normalized float64) {
	p.SetValue(p.Denormalize(normalized))
}

// Int returns the value rounded to the nearest integer.
func (p *Parameter) Int() int {
	return int(math.Round(p.Value()))
}

// Bool reports whether the value is in the upper half of its range.
func (p *Parameter) Bool() bool {
	return p.Value() >= p.Min+(p.Max-p.Min)*0.5
}

// Reset restores the default value.
func (p *Parameter) Reset() {
	p.SetValue(p.DefaultValue)
}

// Clamp bounds a plain value to the parameter range. NaN maps to the default.
func (p *Parameter) Clamp(plain float64) float64 {
	if math.IsNaN(plain) {
		plain = p.DefaultValue
	}
	if plain < p.Min {
		plain = p.Min
	} else if plain > p.Max {
		plain = p.Max
	}
	if p.Kind != KindFloat {
		plain = math.Round(plain)
	}
	return plain
}

// Normalize converts a plain value to 0-1
func (p *Parameter) Normalize(plain float64) float64 {
	if p.Max <= p.Min {
		return 0
	}
	n := (p.Clamp(plain) - p.Min) / (p.Max - p.Min)
	return math.Max(0, math.Min(1, n))
}

// Denormalize converts 0-1 to a plain value
func (p *Parameter) Denormalize(normalized float64) float64 {
	normalized = math.Max(0, math.Min(1, normalized))
	return p.Clamp(p.Min + normalized*(p.Max-p.Min))
}

// Format renders a plain value for display.
func (p *Parameter) Format(plain float64) string {
	plain = p.Clamp(plain)
	if p.formatFunc != nil {
		return p.formatFunc(plain)
	}
	switch p.Kind {
	case KindEnum:
		if i := int(plain - p.Min); i >= 0 && i < len(p.Choices) {
			return p.Choices[i]
		}
		return strconv.Itoa(int(plain))
	case KindBool:
		return OnOffFormatter(plain)
	case KindInt:
		return fmt.Sprintf("%d%s", int(plain), unitSuffix(p.Unit))
	}
	return fmt.Sprintf("%.2f%s", plain, unitSuffix(p.Unit))
}

// Parse converts display text back to a plain value.
func (p *Parameter) Parse(text string) (float64, error) {
	if p.parseFunc != nil {
		v, err := p.parseFunc(text)
		if err != nil {
			return 0, fmt.Errorf("parameter %d (%s): %w", p.ID, p.Name, err)
		}
		return p.Clamp(v), nil
	}
	if p.Kind == KindEnum {
		for i, c := range p.Choices {
			if equalFold(c, text) {
				return p.Min + float64(i), nil
			}
		}
	}
	if p.Kind == KindBool {
		v, err := OnOffParser(text)
		if err == nil {
			return v, nil
		}
	}
	v, err := strconv.ParseFloat(trimUnit(text, p.Unit), 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %d (%s): %w", p.ID, p.Name, err)
	}
	return p.Clamp(v), nil
}

func unitSuffix(unit string) string {
	if unit == "" {
		return ""
	}
	return " " + unit
}
