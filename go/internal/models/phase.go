package models

// Phase is the lifecycle stage of an auction room
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseCountdown Phase = "countdown"
	PhaseActive    Phase = "active"
	PhaseBreak     Phase = "break"
	PhaseCompleted Phase = "completed"
)

// Ticking reports whether the scheduler drives the room in this phase
func (p Phase) Ticking() bool {
	return p == PhaseCountdown || p == PhaseActive || p == PhaseBreak
}

// Joinable reports whether new participants may enter
func (p Phase) Joinable() bool {
	return p == PhaseLobby
}
