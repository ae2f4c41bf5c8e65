package frame

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mcoot/callclock/internal/dependencies/clock"
	"github.com/mcoot/callclock/internal/model"
	"github.com/mcoot/callclock/internal/services/dial"
)

// FixedTime pins every sample to hh:mm:00.000, for screenshots and social previews
type FixedTime struct {
	Hour   int
	Minute int
}

// ParseFixedTime parses an "HH:MM" override. An empty string means no override.
func ParseFixedTime(s string) (*FixedTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q is not HH:MM", model.ErrInvalidFixedTime, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return nil, fmt.Errorf("%w: hour %q out of range", model.ErrInvalidFixedTime, hh)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("%w: minute %q out of range", model.ErrInvalidFixedTime, mm)
	}

	return &FixedTime{Hour: hour, Minute: minute}, nil
}

// String formats the fixed time as HH:MM
func (f FixedTime) String() string {
	return fmt.Sprintf("%02d:%02d", f.Hour, f.Minute)
}

// Sampler reads the wall clock, or the fixed override when one is configured
type Sampler struct {
	clock clock.Clock
	fixed *FixedTime
	loc   *time.Location
}

// NewSampler creates a new Sampler. fixed may be nil.
func NewSampler(clk clock.Clock, fixed *FixedTime) *Sampler {
	return &Sampler{clock: clk, fixed: fixed}
}

// In returns a copy of the sampler that reads wall time in loc
func (s *Sampler) In(loc *time.Location) *Sampler {
	return &Sampler{clock: s.clock, fixed: s.fixed, loc: loc}
}

// Sample takes a reading of the current time
func (s *Sampler) Sample() model.Sample {
	now := s.clock.Now()
	if s.loc != nil {
		now = now.In(s.loc)
	}
	if s.fixed == nil {
		return dial.SampleOf(now)
	}
	return model.Sample{
		Hour:   s.fixed.Hour % 12,
		Minute: s.fixed.Minute,
		Time:   now,
	}
}

// Fixed returns the configured override, or nil
func (s *Sampler) Fixed() *FixedTime {
	return s.fixed
}
