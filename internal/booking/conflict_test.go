package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func stay(ci, co string) model.Stay { return model.Stay{CheckIn: at(ci), CheckOut: at(co)} }

func uid(v uint64) *uint64 { return &v }

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(stay("2024-06-01T14:00", "2024-06-03T11:00")))
	assert.ErrorIs(t, Validate(stay("2024-06-03T11:00", "2024-06-01T14:00")), ErrInvalidRange)
	assert.ErrorIs(t, Validate(stay("2024-06-01T14:00", "2024-06-01T14:00")), ErrInvalidRange)
	assert.ErrorIs(t, Validate(model.Stay{CheckOut: at("2024-06-01T14:00")}), ErrInvalidRange)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b model.Stay
		want bool
	}{
		{"disjoint", stay("2024-06-01T14:00", "2024-06-03T11:00"), stay("2024-06-05T14:00", "2024-06-06T11:00"), false},
		{"back to back", stay("2024-06-01T14:00", "2024-06-03T11:00"), stay("2024-06-03T11:00", "2024-06-04T11:00"), false},
		{"partial", stay("2024-06-01T14:00", "2024-06-03T11:00"), stay("2024-06-02T14:00", "2024-06-04T11:00"), true},
		{"contained", stay("2024-06-01T14:00", "2024-06-10T11:00"), stay("2024-06-02T14:00", "2024-06-03T11:00"), true},
		{"identical", stay("2024-06-01T14:00", "2024-06-03T11:00"), stay("2024-06-01T14:00", "2024-06-03T11:00"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.a, tc.b))
			assert.Equal(t, tc.want, Overlaps(tc.b, tc.a))
		})
	}
}

func TestMayPlace(t *testing.T) {
	proposed := stay("2024-06-01T14:00", "2024-06-03T11:00")
	held := stay("2024-07-01T14:00", "2024-07-03T11:00")

	vacant := model.Room{Number: 101, Status: model.RoomVacant}
	require.NoError(t, MayPlace(vacant, 7, proposed))

	booked := model.Room{Number: 101, Status: model.RoomBooked, Occupant: uid(8), Stay: &held}
	// Non-overlapping dates still conflict: a room keeps one stay.
	err := MayPlace(booked, 7, proposed)
	assert.ErrorIs(t, err, ErrConflict)

	assert.NoError(t, MayPlace(booked, 8, proposed))

	assert.ErrorIs(t, MayPlace(vacant, 7, stay("2024-06-03T11:00", "2024-06-01T14:00")), ErrInvalidRange)
}

func TestMayPlaceInCalendar(t *testing.T) {
	existing := []Occupancy{
		{RoomNumber: 101, Occupant: 8, Stay: stay("2024-06-01T14:00", "2024-06-03T11:00")},
		{RoomNumber: 101, Occupant: 9, Stay: stay("2024-06-10T14:00", "2024-06-12T11:00")},
	}
	assert.NoError(t, MayPlaceInCalendar(existing, 7, stay("2024-06-03T11:00", "2024-06-10T14:00")))
	assert.ErrorIs(t, MayPlaceInCalendar(existing, 7, stay("2024-06-02T14:00", "2024-06-04T11:00")), ErrConflict)
	assert.NoError(t, MayPlaceInCalendar(existing, 8, stay("2024-06-02T14:00", "2024-06-04T11:00")))
}

