//go:build linux

package sensor

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads a digital light module using the Linux GPIO character device.
type RealReader struct {
	chip   *gpiocdev.Chip
	line   *gpiocdev.Line
	levels Levels
}

// NewRealReader requests pin on chip as an input.
func NewRealReader(chipName string, pin int, levels Levels) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	// Pull-down matches the Pi boot default for the pin.
	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request light pin %d: %w", pin, err)
	}

	return &RealReader{chip: chip, line: line, levels: levels}, nil
}

// Read returns the light level for the current line value.
func (r *RealReader) Read() (int, error) {
	raw, err := r.line.Value()
	if err != nil {
		return 0, fmt.Errorf("read light pin: %w", err)
	}
	return r.levels.Level(raw), nil
}

// Close releases GPIO resources.
// The line is reconfigured to input with pull-down (the Pi boot default)
// before it is released.
func (r *RealReader) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure light pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close light pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
