package catalog

import "github.com/liliang-cn/aicanvas/internal/domain"

// NextPhase returns the phase after p. The final phase has no successor.
func NextPhase(p domain.Phase) (domain.Phase, bool) {
	i := p.Index()
	if i < 0 || i == len(domain.AllPhases)-1 {
		return "", false
	}
	return domain.AllPhases[i+1], true
}

// PreviousPhase returns the phase before p. The first phase has no predecessor.
func PreviousPhase(p domain.Phase) (domain.Phase, bool) {
	i := p.Index()
	if i <= 0 {
		return "", false
	}
	return domain.AllPhases[i-1], true
}

// IsValidPhaseTransition allows staying put or moving one step either way.
func IsValidPhaseTransition(from, to domain.Phase) bool {
	a, b := from.Index(), to.Index()
	if a < 0 || b < 0 {
		return false
	}
	d := a - b
	return d >= -1 && d <= 1
}

// CanAdvancePhase reports whether a canvas in phase p with the given
// readiness may move to the next phase, and why not when it cannot.
func CanAdvancePhase(p domain.Phase, r domain.Readiness) (bool, string) {
	if _, ok := NextPhase(p); !ok {
		return false, "Already at final phase"
	}
	if r.AnyRed() {
		return false, "Cannot advance with red readiness indicators. Address blockers first."
	}
	return true, ""
}
