package service

import (
	"fmt"
	"math/rand/v2"
	"time"
)

type PassNumberGenerator interface {
	Next(now time.Time) string
}

// TimestampPassNumbers yields PASS-<unix millis>-<0..999>. Collisions are
// possible and resolved by the unique index plus a retry.
type TimestampPassNumbers struct{}

func (TimestampPassNumbers) Next(now time.Time) string {
	return fmt.Sprintf("PASS-%d-%d", now.UnixMilli(), rand.IntN(1000))
}
