package notifications

import (
	"sort"
	"time"
)

// ScheduledTarget is one computed reminder fire-time for an appointment.
type ScheduledTarget struct {
	OffsetMinutes int
	OffsetLabel   string
	FireAt        time.Time
}

// ComputeReminderTargets computes when reminders should fire for an appointment
// starting at appointmentAt, given lead-time offsets in minutes.
//
// Targets at or before now are discarded: a reminder is never scheduled
// backward. An appointment that has already started yields no targets at all.
// The result is ordered by fire-time ascending and contains at most one target
// per distinct offset.
func ComputeReminderTargets(appointmentAt time.Time, offsetsMinutes []int, now time.Time) []ScheduledTarget {
	if !appointmentAt.After(now) {
		return nil
	}

	seen := make(map[int]bool, len(offsetsMinutes))
	var targets []ScheduledTarget
	for _, offset := range offsetsMinutes {
		if offset <= 0 || seen[offset] {
			continue
		}
		seen[offset] = true

		fireAt := appointmentAt.Add(-time.Duration(offset) * time.Minute)
		if !fireAt.After(now) {
			continue
		}
		targets = append(targets, ScheduledTarget{
			OffsetMinutes: offset,
			OffsetLabel:   OffsetLabel(offset),
			FireAt:        fireAt,
		})
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].FireAt.Before(targets[j].FireAt)
	})
	return targets
}
