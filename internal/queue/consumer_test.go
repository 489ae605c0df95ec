package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBookingEvent(t *testing.T) {
	ci := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)
	co := time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC)
	prev := 102
	line := FormatBookingEvent(BookingEvent{
		Type:          EventBookingMoved,
		RoomNumber:    101,
		PreviousRoom:  &prev,
		UserID:        7,
		ActorID:       7,
		ActorRole:     "GUEST",
		CheckIn:       &ci,
		CheckOut:      &co,
		PaymentStatus: "pending",
		OccurredAt:    co,
	})
	assert.Equal(t,
		"[2024-06-03T11:00:00Z] booking.moved | room=101 | from_room=102 | user_id=7 | actor_id=7 (GUEST) | stay=2024-06-01T14:00:00Z..2024-06-03T11:00:00Z | payment=pending\n",
		line)
}

func TestBookingLogWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "booking.log")
	w := BookingLogWriter{Path: path}

	body, err := json.Marshal(BookingEvent{Type: EventBookingCreated, RoomNumber: 101, UserID: 7, OccurredAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, w.Handle(context.Background(), body))
	require.NoError(t, w.Handle(context.Background(), body))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(string(data)))
}

func TestBookingLogWriterRejectsMalformed(t *testing.T) {
	w := BookingLogWriter{Path: filepath.Join(t.TempDir(), "booking.log")}
	assert.Error(t, w.Handle(context.Background(), []byte("nope")))
	assert.Error(t, w.Handle(context.Background(), []byte(`{"room_number":1}`)))
}

func countLines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
