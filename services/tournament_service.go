package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bgmi-arena/arena-backend/models"
	"github.com/bgmi-arena/arena-backend/repositories"
)

// TournamentService covers browsing and administrative lifecycle of
// tournaments. Room credentials are stripped from public reads; entrants get
// them through their own match list.
type TournamentService struct {
	tournaments repositories.TournamentRepository
	notifier    Notifier
	logger      *slog.Logger
}

func NewTournamentService(
	tournaments repositories.TournamentRepository,
	notifier Notifier,
	logger *slog.Logger,
) *TournamentService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &TournamentService{
		tournaments: tournaments,
		notifier:    notifier,
		logger:      logger,
	}
}

type CreateTournamentInput struct {
	Name      string    `json:"name"`
	Mode      string    `json:"mode"`
	Map       string    `json:"map"`
	EntryFee  int64     `json:"entry_fee"`
	PrizePool int64     `json:"prize_pool"`
	Capacity  int       `json:"capacity"`
	Rules     *string   `json:"rules"`
	StartsAt  time.Time `json:"starts_at"`
}

func (s *TournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrTournamentNameRequired
	}
	if input.Capacity <= 0 {
		return nil, ErrTournamentInvalidCapacity
	}
	if input.EntryFee < 0 {
		return nil, ErrTournamentInvalidFee
	}
	if !input.StartsAt.After(time.Now()) {
		return nil, ErrTournamentInvalidStart
	}

	tournament := &models.Tournament{
		Name:      strings.TrimSpace(input.Name),
		Mode:      strings.TrimSpace(input.Mode),
		Map:       strings.TrimSpace(input.Map),
		EntryFee:  input.EntryFee,
		PrizePool: input.PrizePool,
		Capacity:  input.Capacity,
		Status:    models.StatusOpen,
		Rules:     input.Rules,
		StartsAt:  input.StartsAt,
	}
	if err := s.tournaments.Create(ctx, tournament); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *TournamentService) Get(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournaments.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	sanitizeRoom(tournament)
	return tournament, nil
}

func (s *TournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournaments.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		sanitizeRoom(&tournaments[i])
	}
	return tournaments, nil
}

func (s *TournamentService) Delete(ctx context.Context, id int) error {
	err := s.tournaments.Delete(ctx, id)
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentInUse):
		return ErrForbiddenOperation
	default:
		return err
	}
}

// CloseStarted is the scheduler pass: any open or full tournament whose
// start time has passed stops accepting joins.
func (s *TournamentService) CloseStarted(ctx context.Context) error {
	ids, err := s.tournaments.CloseStarted(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, id := range ids {
		s.notifier.Publish(id, EventClosed, nil)
	}
	if len(ids) > 0 {
		s.logger.InfoContext(ctx, "closed started tournaments", slog.Int("count", len(ids)))
	}
	return nil
}

// Room credentials never leave through public tournament reads.
func sanitizeRoom(t *models.Tournament) {
	t.RoomID = nil
	t.RoomPassword = nil
}
