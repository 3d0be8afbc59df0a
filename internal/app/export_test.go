package app

// HeldLocks reports how many per-user session locks are currently tracked.
func HeldLocks(e *QuizEngine) int {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	return len(e.locks)
}
