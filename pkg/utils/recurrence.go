package util

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// MaxOccurrences caps how many instances an expansion may return.
const MaxOccurrences = 366

func ParseRecurrence(rule string) (*rrule.ROption, error) {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, fmt.Errorf("invalid recurrence rule: %w", err)
	}
	return opt, nil
}

// ExpandRecurrence returns the instances of rule anchored at start that fall
// in [from, to]. An empty rule yields start itself when it is in range.
func ExpandRecurrence(rule string, start, from, to time.Time) ([]time.Time, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range end is before range start")
	}
	if rule == "" {
		if !start.Before(from) && !start.After(to) {
			return []time.Time{start}, nil
		}
		return []time.Time{}, nil
	}

	opt, err := ParseRecurrence(rule)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = start

	rr, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("invalid recurrence rule: %w", err)
	}

	set := rrule.Set{}
	set.RRule(rr)

	instances := set.Between(from, to, true)
	if len(instances) > MaxOccurrences {
		instances = instances[:MaxOccurrences]
	}
	return instances, nil
}
