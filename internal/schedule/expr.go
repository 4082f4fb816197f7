// Package schedule resolves named daily events against a circadian clock.
// Events are written as time expressions: a fixed time of day ("22:15",
// "06:30:15") or an offset from the learned dawn or dusk ("@dawn",
// "@dusk - 30m", "@dawn + 1h15m").
package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/circadian-clock/internal/circadian"
)

// ErrInvalidExpr is returned for expressions that cannot be parsed.
var ErrInvalidExpr = errors.New("invalid time expression")

// Base is the anchor an expression is relative to.
type Base int

const (
	BaseFixed Base = iota
	BaseDawn
	BaseDusk
)

func (b Base) String() string {
	switch b {
	case BaseFixed:
		return "fixed"
	case BaseDawn:
		return "dawn"
	case BaseDusk:
		return "dusk"
	}
	return fmt.Sprintf("Base(%d)", int(b))
}

// Triggerer is the part of the clock an expression is evaluated against.
type Triggerer interface {
	Trigger(t int) bool
	TriggerDawn(dt int) bool
	TriggerDusk(dt int) bool
	TimeDawn() int
	TimeDusk() int
}

// Expr is a parsed time expression.
type Expr struct {
	Raw  string
	Base Base
	// At is the day-second of a fixed expression.
	At int
	// Offset is the signed offset in seconds from dawn or dusk.
	Offset int
}

var (
	// "@dawn", "@dusk + 30m", "@dusk-1h30m"
	astroPattern = regexp.MustCompile(`^@(\w+)\s*(?:([+-])\s*(\S+))?$`)
	// "22:15", "06:30:15"
	fixedPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
)

// ParseExpr parses a time expression.
func ParseExpr(s string) (Expr, error) {
	s = strings.TrimSpace(s)

	if m := fixedPattern.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		sec := 0
		if m[3] != "" {
			sec, _ = strconv.Atoi(m[3])
		}
		if hour > 23 {
			return Expr{}, fmt.Errorf("%w: hour %d out of range in %q", ErrInvalidExpr, hour, s)
		}
		if min > 59 {
			return Expr{}, fmt.Errorf("%w: minute %d out of range in %q", ErrInvalidExpr, min, s)
		}
		if sec > 59 {
			return Expr{}, fmt.Errorf("%w: second %d out of range in %q", ErrInvalidExpr, sec, s)
		}
		return Expr{Raw: s, Base: BaseFixed, At: circadian.DayTime(hour, min, sec)}, nil
	}

	m := astroPattern.FindStringSubmatch(s)
	if m == nil {
		return Expr{}, fmt.Errorf("%w: %q", ErrInvalidExpr, s)
	}

	var base Base
	switch strings.ToLower(m[1]) {
	case "dawn":
		base = BaseDawn
	case "dusk":
		base = BaseDusk
	default:
		return Expr{}, fmt.Errorf("%w: unknown anchor %q", ErrInvalidExpr, m[1])
	}

	var offset int
	if m[3] != "" {
		d, err := time.ParseDuration(m[3])
		if err != nil {
			return Expr{}, fmt.Errorf("%w: offset in %q: %v", ErrInvalidExpr, s, err)
		}
		if d%time.Second != 0 || d >= 24*time.Hour {
			return Expr{}, fmt.Errorf("%w: offset %v must be whole seconds under 24h", ErrInvalidExpr, d)
		}
		offset = int(d / time.Second)
		if m[2] == "-" {
			offset = -offset
		}
	}

	return Expr{Raw: s, Base: base, Offset: offset}, nil
}

// Fired reports whether the expression fell in the clock's current trigger
// window.
func (e Expr) Fired(c Triggerer) bool {
	switch e.Base {
	case BaseDawn:
		return c.TriggerDawn(e.Offset)
	case BaseDusk:
		return c.TriggerDusk(e.Offset)
	}
	return c.Trigger(e.At)
}

// Resolve returns the time of day the expression currently denotes.
func (e Expr) Resolve(c Triggerer) int {
	switch e.Base {
	case BaseDawn:
		return circadian.DayTime(0, 0, c.TimeDawn()+e.Offset)
	case BaseDusk:
		return circadian.DayTime(0, 0, c.TimeDusk()+e.Offset)
	}
	return e.At
}

func (e Expr) String() string {
	return e.Raw
}
