// Package sensor provides light sensor reading with hardware abstraction.
// The real implementation reads the digital output of a photoresistor module
// through the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package sensor

// Reader reads the ambient light level.
type Reader interface {
	// Read returns the current light level. Larger is brighter.
	Read() (int, error)

	// Close releases sensor resources.
	Close() error
}

// Defaults for a digital light module on a Raspberry Pi.
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17 // BCM numbering

	// DefaultHigh and DefaultLow are the levels reported for a lit and dark
	// digital input, chosen to straddle a 10-bit ADC midpoint.
	DefaultHigh = 1023
	DefaultLow  = 0
)

// Levels maps a digital input onto light levels.
type Levels struct {
	High int
	Low  int
	// ActiveLow means the module pulls the line low when lit.
	ActiveLow bool
}

// DefaultLevels returns the levels for an active-low module, the common
// LM393 comparator board.
func DefaultLevels() Levels {
	return Levels{High: DefaultHigh, Low: DefaultLow, ActiveLow: true}
}

// Level converts a raw line value into a light level.
func (l Levels) Level(raw int) int {
	lit := raw != 0
	if l.ActiveLow {
		lit = !lit
	}
	if lit {
		return l.High
	}
	return l.Low
}
