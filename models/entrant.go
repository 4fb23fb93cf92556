package models

import "time"

// Entrant is a confirmed registration of one player to one tournament,
// tied to the entry-fee debit that paid for the slot (nil for free entry).
type Entrant struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	PlayerID     string    `json:"player_id"`
	InGameName   string    `json:"in_game_name"`
	InGameID     string    `json:"in_game_id"`
	DebitTxID    *string   `json:"debit_tx_id,omitempty"`
	JoinedAt     time.Time `json:"joined_at"`

	// Room credentials copied from the tournament once an admin assigns them.
	RoomID       *string `json:"room_id,omitempty"`
	RoomPassword *string `json:"room_password,omitempty"`
}
