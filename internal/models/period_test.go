package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		input string
		want  Period
	}{
		{"daily", PeriodDaily},
		{"weekly", PeriodWeekly},
		{"monthly", PeriodMonthly},
		{"yearly", PeriodYearly},
		{"all", PeriodAll},
		{"", PeriodAll},
		{"quarterly", PeriodAll},
		{"DAILY", PeriodAll},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePeriod(tt.input), "input %q", tt.input)
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 45, 0, time.Local)

	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local),
		PeriodDaily.Start(now))
	assert.Equal(t, now.AddDate(0, 0, -7), PeriodWeekly.Start(now))
	assert.Equal(t, now.AddDate(0, 0, -30), PeriodMonthly.Start(now))
	assert.Equal(t, now.AddDate(0, 0, -365), PeriodYearly.Start(now))
	assert.True(t, PeriodAll.Start(now).IsZero())
}
