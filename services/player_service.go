package services

import (
	"context"
	"errors"

	"github.com/bgmi-arena/arena-backend/models"
	"github.com/bgmi-arena/arena-backend/repositories"
)

// PlayerService serves profile and "my matches" reads.
type PlayerService struct {
	players  repositories.PlayerRepository
	entrants repositories.EntrantRepository
}

func NewPlayerService(players repositories.PlayerRepository, entrants repositories.EntrantRepository) *PlayerService {
	return &PlayerService{players: players, entrants: entrants}
}

func (s *PlayerService) Get(ctx context.Context, playerID string) (*models.Player, error) {
	player, err := s.players.GetByID(ctx, nil, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	player.PasswordHash = ""
	return player, nil
}

// ListEntrants returns the player's registrations with the room credentials
// the admin has assigned so far.
func (s *PlayerService) ListEntrants(ctx context.Context, playerID string) ([]*models.Entrant, error) {
	return s.entrants.ListByPlayer(ctx, playerID)
}
