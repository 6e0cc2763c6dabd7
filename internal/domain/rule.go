package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Rule is a user-defined filter attached to a subscription. Rules are
// evaluated in list order; the first rule whose gates all pass decides
// the notification priority.
type Rule struct {
	ID             uuid.UUID `json:"id"`
	SubscriptionID uuid.UUID `json:"subscription_id"`
	// KeywordFilter is a comma-separated list of OR terms matched
	// case-insensitively against the event title and payload.
	// Blank means the keyword gate always passes.
	KeywordFilter string `json:"keyword_filter,omitempty"`
	// DedupWindowMinutes is part of the rule schema and API surface but
	// is not consulted during evaluation.
	DedupWindowMinutes int `json:"dedup_window_minutes"`
	// RateLimitPerHour caps admitted notifications per rolling hour.
	// Zero or negative means unlimited.
	RateLimitPerHour int      `json:"rate_limit_per_hour"`
	Priority         Priority `json:"priority"`
	// QuietHoursStart and QuietHoursEnd define a [start,end) time-of-day
	// window during which the rule is skipped. Either being nil disables
	// the window. Start after end wraps across midnight.
	QuietHoursStart *TimeOfDay `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd   *TimeOfDay `json:"quiet_hours_end,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TimeOfDay is a wall-clock time without a date, stored as minutes
// since midnight.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// MinuteOfDay returns the number of minutes elapsed since midnight.
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// TimeOfDayFrom extracts the wall-clock component of ts.
func TimeOfDayFrom(ts time.Time) TimeOfDay {
	return TimeOfDay{Hour: ts.Hour(), Minute: ts.Minute()}
}

// String formats the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay parses a "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}
