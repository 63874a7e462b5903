package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sample struct {
	Password string `validate:"required,hasuppercase"`
	Ref      string `validate:"omitempty,objectid"`
	Rule     string `validate:"omitempty,rrule"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name string
		in   sample
		tags []string
	}{
		{"valid", sample{Password: "Secret123", Ref: primitive.NewObjectID().Hex(), Rule: "FREQ=WEEKLY;COUNT=3"}, nil},
		{"missing uppercase", sample{Password: "secret123"}, []string{"hasuppercase"}},
		{"bad object id", sample{Password: "Secret123", Ref: "not-an-id"}, []string{"objectid"}},
		{"bad rule", sample{Password: "Secret123", Rule: "FREQ=SOMETIMES"}, []string{"rrule"}},
		{"missing password", sample{}, []string{"required"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateStruct(tt.in)
			var tags []string
			for _, e := range errs {
				tags = append(tags, e.Tag)
				assert.NotEmpty(t, e.Msg)
			}
			assert.Equal(t, tt.tags, tags)
		})
	}
}

func TestExpandRecurrence(t *testing.T) {
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	got, err := ExpandRecurrence("FREQ=DAILY;COUNT=5", start, start, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, start.AddDate(0, 0, 2), got[2])

	single, err := ExpandRecurrence("", start, start.Add(-time.Hour), start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{start}, single)

	none, err := ExpandRecurrence("", start, start.Add(time.Hour), start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = ExpandRecurrence("FREQ=DAILY", start, start.Add(time.Hour), start)
	assert.Error(t, err)
}

func TestExpandRecurrence_Capped(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := ExpandRecurrence("FREQ=HOURLY", start, start, start.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Len(t, got, MaxOccurrences)
}
