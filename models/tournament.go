package models

import "time"

// TournamentStatus mirrors the status column values.
type TournamentStatus string

const (
	StatusOpen   TournamentStatus = "open"
	StatusFull   TournamentStatus = "full"
	StatusClosed TournamentStatus = "closed"
)

type Tournament struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Mode         string           `json:"mode"`
	Map          string           `json:"map"`
	EntryFee     int64            `json:"entry_fee"`
	PrizePool    int64            `json:"prize_pool"`
	Capacity     int              `json:"capacity"`
	Filled       int              `json:"filled"`
	Status       TournamentStatus `json:"status"`
	Rules        *string          `json:"rules,omitempty"`
	StartsAt     time.Time        `json:"starts_at"`
	RoomID       *string          `json:"room_id,omitempty"`
	RoomPassword *string          `json:"room_password,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// CapacityState is the filled/capacity projection polled by clients.
type CapacityState struct {
	Filled   int `json:"filled"`
	Capacity int `json:"capacity"`
}
