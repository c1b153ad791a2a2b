package analytics

import (
	"time"

	"geointel/internal/event/domain"
)

const day = 24 * time.Hour

// MaxReplayDays is the widest replay window that still reaches the oldest event:
// whole days between the earliest event and now, at least 1.
func MaxReplayDays(events []domain.Event, now time.Time) int {
	first, _, ok := dateBounds(events)
	if !ok {
		return 1
	}
	days := int(now.Sub(first) / day)
	if days < 1 {
		return 1
	}
	return days
}

// ClampReplayDays bounds days to [1, maxDays].
func ClampReplayDays(days, maxDays int) int {
	if maxDays < 1 {
		maxDays = 1
	}
	if days < 1 {
		return 1
	}
	if days > maxDays {
		return maxDays
	}
	return days
}

// ReplayWindow returns the events dated at or after now minus days.
func ReplayWindow(events []domain.Event, now time.Time, days int) []domain.Event {
	return since(events, now.Add(-time.Duration(days)*day))
}

// AnimationDays is the number of trailing days visible at frame out of steps.
func AnimationDays(replayDays, steps, frame int) int {
	if steps <= 0 {
		return replayDays
	}
	return replayDays * frame / steps
}

// AnimationFrame returns the events visible at the given frame: later frames reveal a
// longer trailing window, the last frame showing the full replay window.
func AnimationFrame(events []domain.Event, now time.Time, replayDays, steps, frame int) []domain.Event {
	return since(events, now.Add(-time.Duration(AnimationDays(replayDays, steps, frame))*day))
}

func since(events []domain.Event, cutoff time.Time) []domain.Event {
	out := make([]domain.Event, 0)
	for i := range events {
		if !events[i].Date.Before(cutoff) {
			out = append(out, events[i])
		}
	}
	return out
}
