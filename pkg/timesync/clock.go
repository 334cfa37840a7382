package timesync

import (
	"fmt"
	"time"

	"github.com/AndrewLester/timesync/internal/system/adjtime"
	"github.com/AndrewLester/timesync/internal/system/settimeofday"
	"github.com/jonboulle/clockwork"
)

// StepThreshold is the offset at and above which the clock is stepped
// instead of slewed.
const StepThreshold = 128 * time.Millisecond

type Adjustment int

const (
	AdjustNone Adjustment = iota
	AdjustSlew
	AdjustStep
)

func (a Adjustment) String() string {
	switch a {
	case AdjustNone:
		return "none"
	case AdjustSlew:
		return "slew"
	case AdjustStep:
		return "step"
	default:
		return "unknown"
	}
}

// DecideAdjustment returns how an offset would be applied to the clock.
func DecideAdjustment(offset time.Duration) Adjustment {
	switch {
	case offset == 0:
		return AdjustNone
	case offset.Abs() >= StepThreshold:
		return AdjustStep
	default:
		return AdjustSlew
	}
}

// ClockAdjuster applies a measured offset to the local clock.
type ClockAdjuster interface {
	Adjust(offset time.Duration) (Adjustment, error)
}

// SystemClock adjusts the operating system clock. Step and Slew default to
// settimeofday(2) and adjtime(3) and require elevated privileges.
type SystemClock struct {
	Clock clockwork.Clock
	Step  func(t time.Time) error
	Slew  func(offset time.Duration) error
}

func NewSystemClock(clock clockwork.Clock) *SystemClock {
	return &SystemClock{
		Clock: clock,
		Step:  settimeofday.Settimeofday,
		Slew:  adjtime.Adjtime,
	}
}

func (c *SystemClock) Adjust(offset time.Duration) (Adjustment, error) {
	adj := DecideAdjustment(offset)
	switch adj {
	case AdjustStep:
		target := c.Clock.Now().Add(offset)
		if err := c.Step(target); err != nil {
			return adj, fmt.Errorf("failed to step clock to %s: %w", target.Format(time.RFC3339Nano), err)
		}
	case AdjustSlew:
		if err := c.Slew(offset); err != nil {
			return adj, fmt.Errorf("failed to slew clock by %s: %w", offset, err)
		}
	}
	return adj, nil
}

// DryRunClock reports the adjustment that would be made and leaves the clock
// untouched.
type DryRunClock struct{}

func (DryRunClock) Adjust(offset time.Duration) (Adjustment, error) {
	return DecideAdjustment(offset), nil
}
