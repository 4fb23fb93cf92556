package services

// Notifier pushes tournament-scoped events to connected clients. Polling of
// the status endpoints remains the authoritative read path; these events are
// a convenience for open pages.
type Notifier interface {
	Publish(tournamentID int, event string, payload interface{})
}

const (
	EventSlotsUpdated = "SLOTS_UPDATED"
	EventRoomAssigned = "ROOM_ASSIGNED"
	EventClosed       = "TOURNAMENT_CLOSED"
)

// NopNotifier is used when no hub is wired (tests, tooling).
type NopNotifier struct{}

func (NopNotifier) Publish(int, string, interface{}) {}
