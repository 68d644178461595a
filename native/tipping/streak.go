package tipping

const (
	streakContinueWindow = int64(86400)  // 24h
	streakResetWindow    = int64(172800) // 48h
	streakMilestoneEvery = uint32(5)
)

// StreakResult is the outcome of evaluating a creator's streak for a new tip.
type StreakResult struct {
	Streak    uint32
	Milestone bool
}

// EvaluateStreak computes the creator's streak after a tip at now, given the
// previous tip time and streak. Tips within 24h extend the streak, a gap of 48h
// or more resets it to 1 and anything in between leaves it unchanged. Milestone
// is only set on the increment branch.
func EvaluateStreak(prevLastTip, now int64, prevStreak uint32) StreakResult {
	if prevStreak == 0 {
		prevStreak = 1
	}
	elapsed := now - prevLastTip
	switch {
	case elapsed < streakContinueWindow:
		next := prevStreak + 1
		if next == 0 {
			// saturated; no crossing happened
			return StreakResult{Streak: prevStreak}
		}
		return StreakResult{Streak: next, Milestone: next%streakMilestoneEvery == 0}
	case elapsed >= streakResetWindow:
		return StreakResult{Streak: 1}
	default:
		return StreakResult{Streak: prevStreak}
	}
}
