package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLastNDaysEndsToday(t *testing.T) {
	today := time.Date(2024, 3, 2, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, []string{"2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}, LastNDays(today, 4))
	assert.Nil(t, LastNDays(today, 0))
}

func TestClampZero(t *testing.T) {
	assert.Equal(t, int64(0), ClampZero(-3))
	assert.Equal(t, int64(5), ClampZero(5))
}
