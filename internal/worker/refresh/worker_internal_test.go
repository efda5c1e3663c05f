package refresh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextWakeAlignsToTopOfHour(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.August, 31, 2, 59, 50, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.August, 31, 3, 0, 0, 0, time.UTC), nextWake(now))
}

func TestNextWakeAfterOverrunDoesNotSkipAnHour(t *testing.T) {
	t.Parallel()

	// A sweep finishing shortly past the hour still wakes at the next one
	late := time.Date(2026, time.August, 31, 3, 0, 10, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.August, 31, 4, 0, 0, 0, time.UTC), nextWake(late))
}

func TestNextWakeAtExactHourYieldsFollowingHour(t *testing.T) {
	t.Parallel()

	exact := time.Date(2026, time.August, 31, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.August, 31, 4, 0, 0, 0, time.UTC), nextWake(exact))
}
