package app

import (
	"kalshiwatch/clients/notifier"
	"math"
	"time"
)

// TimingInfo describes how close to a deadline a trade was placed.
type TimingInfo struct {
	Window        notifier.AlertWindow
	MinutesBefore int
	Risk          notifier.RiskTier
}

// minutesUntil returns whole minutes from now until target, rounded down.
// Negative when target is in the past.
func minutesUntil(now, target time.Time) int {
	return int(math.Floor(target.Sub(now).Minutes()))
}

// classifyRisk maps minutes-before-deadline to a risk tier.
func classifyRisk(minutesBefore int) notifier.RiskTier {
	switch {
	case minutesBefore <= 15:
		return notifier.RiskTierCritical
	case minutesBefore <= 30:
		return notifier.RiskTierHigh
	default:
		return notifier.RiskTierMedium
	}
}

// evaluateTiming checks whether a trade landed inside the alert window before
// the given deadline. The window only covers trades strictly before the
// deadline: a trade at or past it never qualifies.
func evaluateTiming(tradeTime, deadline time.Time, window notifier.AlertWindow, windowMin int) (TimingInfo, bool) {
	minutes := minutesUntil(tradeTime, deadline)
	if minutes <= 0 || minutes > windowMin {
		return TimingInfo{}, false
	}

	return TimingInfo{
		Window:        window,
		MinutesBefore: minutes,
		Risk:          classifyRisk(minutes),
	}, true
}
