package services

import (
	"context"
	"errors"

	"github.com/bgmi-arena/arena-backend/repositories"
)

// JoinStatus is the projection polled by tournament pages every few seconds.
type JoinStatus struct {
	Joined   bool `json:"joined"`
	Filled   int  `json:"filled"`
	Capacity int  `json:"capacity"`
}

// StatusService answers read-only admission queries. No side effects, index
// lookups only; clients never compute admission or balance state themselves.
type StatusService struct {
	tournaments repositories.TournamentRepository
	entrants    repositories.EntrantRepository
}

func NewStatusService(
	tournaments repositories.TournamentRepository,
	entrants repositories.EntrantRepository,
) *StatusService {
	return &StatusService{
		tournaments: tournaments,
		entrants:    entrants,
	}
}

func (s *StatusService) Status(ctx context.Context, tournamentID int, playerID string) (*JoinStatus, error) {
	state, err := s.tournaments.CapacityState(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	status := &JoinStatus{Filled: state.Filled, Capacity: state.Capacity}
	if playerID == "" {
		return status, nil
	}

	if _, err := s.entrants.FindByPlayerAndTournament(ctx, nil, playerID, tournamentID); err == nil {
		status.Joined = true
	} else if !errors.Is(err, repositories.ErrEntrantNotFound) {
		return nil, err
	}
	return status, nil
}

// SlotCount is the capacity-only variant used by the tournament list badges.
func (s *StatusService) SlotCount(ctx context.Context, tournamentID int) (*JoinStatus, error) {
	return s.Status(ctx, tournamentID, "")
}
