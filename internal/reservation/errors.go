package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/policy"
	"github.com/iliyamo/hotel-reservation/internal/store"
)

// Error taxonomy returned by the engine.  Callers compare with errors.Is;
// more specific errors wrap the generic ones.
var (
	// ErrInvalidInput is returned before any store access for malformed
	// requests.  ErrInvalidRange is reported alongside it.
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidRange = booking.ErrInvalidRange

	ErrNotFound  = store.ErrNotFound
	ErrNotBooked = store.ErrNotBooked

	ErrConflict            = store.ErrConflict
	ErrDuplicateRoomNumber = store.ErrDuplicateRoomNumber
	ErrEmailExists         = store.ErrEmailExists
	ErrAlreadyPaid         = fmt.Errorf("payment already approved: %w", store.ErrConflict)

	ErrForbidden = policy.ErrForbidden

	// ErrCascadeRequired is returned by DeleteUser when the user still
	// holds rooms and the caller did not ask for them to be released.
	ErrCascadeRequired = errors.New("user occupies rooms; cascade required")

	// ErrStorage wraps transaction and commit failures.  Nothing was
	// applied.
	ErrStorage = errors.New("storage failure")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func invalidRange(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// conflict lifts a checker rejection into the engine taxonomy.
func conflict(err error) error {
	if errors.Is(err, booking.ErrInvalidRange) {
		return invalidRange(err)
	}
	if errors.Is(err, booking.ErrConflict) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

var known = []error{
	ErrInvalidInput, ErrNotFound, ErrConflict, ErrForbidden, ErrCascadeRequired,
	context.Canceled, context.DeadlineExceeded,
}

// classify leaves domain errors untouched and marks everything else as
// a storage failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
