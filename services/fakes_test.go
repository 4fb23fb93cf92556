package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bgmi-arena/arena-backend/models"
	"github.com/bgmi-arena/arena-backend/repositories"
)

// The in-memory fakes below mirror the guarantees of the Postgres layer:
// transactions are serialized, a failed transaction restores the pre-image,
// and the guarded writes (slot reservation, balance delta, status transition)
// enforce the same conditions the SQL WHERE clauses do.

// memExec marks "inside a transaction". The fakes never run SQL through it.
type memExec struct{}

func (memExec) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	panic("memExec is a marker, not a database")
}
func (memExec) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	panic("memExec is a marker, not a database")
}
func (memExec) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	panic("memExec is a marker, not a database")
}

type memStore struct {
	mu            sync.Mutex
	players       map[string]models.Player
	transactions  map[string]models.Transaction
	txOrder       []string
	tournaments   map[int]models.Tournament
	entrants      map[int]models.Entrant
	nextEntrant   int
	nextTournment int
}

func newMemStore() *memStore {
	return &memStore{
		players:       make(map[string]models.Player),
		transactions:  make(map[string]models.Transaction),
		tournaments:   make(map[int]models.Tournament),
		entrants:      make(map[int]models.Entrant),
		nextEntrant:   1,
		nextTournment: 1,
	}
}

// lock acquires the store mutex unless the caller already holds it through a
// running transaction (non-nil exec).
func (s *memStore) lock(exec repositories.SQLExecutor) func() {
	if exec != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type memSnapshot struct {
	players       map[string]models.Player
	transactions  map[string]models.Transaction
	txOrder       []string
	tournaments   map[int]models.Tournament
	entrants      map[int]models.Entrant
	nextEntrant   int
	nextTournment int
}

func (s *memStore) snapshotLocked() memSnapshot {
	snap := memSnapshot{
		players:       make(map[string]models.Player, len(s.players)),
		transactions:  make(map[string]models.Transaction, len(s.transactions)),
		txOrder:       append([]string(nil), s.txOrder...),
		tournaments:   make(map[int]models.Tournament, len(s.tournaments)),
		entrants:      make(map[int]models.Entrant, len(s.entrants)),
		nextEntrant:   s.nextEntrant,
		nextTournment: s.nextTournment,
	}
	for k, v := range s.players {
		snap.players[k] = v
	}
	for k, v := range s.transactions {
		snap.transactions[k] = v
	}
	for k, v := range s.tournaments {
		snap.tournaments[k] = v
	}
	for k, v := range s.entrants {
		snap.entrants[k] = v
	}
	return snap
}

func (s *memStore) restoreLocked(snap memSnapshot) {
	s.players = snap.players
	s.transactions = snap.transactions
	s.txOrder = snap.txOrder
	s.tournaments = snap.tournaments
	s.entrants = snap.entrants
	s.nextEntrant = snap.nextEntrant
	s.nextTournment = snap.nextTournment
}

// memTxRunner serializes transactions and rolls the store back to its
// pre-image when the unit fails, like BEGIN/ROLLBACK does.
type memTxRunner struct {
	store *memStore
}

func (r *memTxRunner) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	snap := r.store.snapshotLocked()
	if err := fn(memExec{}); err != nil {
		r.store.restoreLocked(snap)
		return err
	}
	return nil
}

type memPlayerRepo struct {
	store *memStore
}

func (r *memPlayerRepo) Create(ctx context.Context, player *models.Player) error {
	defer r.store.lock(nil)()
	if _, ok := r.store.players[player.ID]; ok {
		return repositories.ErrPlayerIDConflict
	}
	for _, existing := range r.store.players {
		if existing.Email == player.Email {
			return repositories.ErrPlayerEmailConflict
		}
	}
	player.Active = true
	player.CreatedAt = time.Now()
	r.store.players[player.ID] = *player
	return nil
}

func (r *memPlayerRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Player, error) {
	defer r.store.lock(exec)()
	player, ok := r.store.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	return &player, nil
}

func (r *memPlayerRepo) GetByEmail(ctx context.Context, email string) (*models.Player, error) {
	defer r.store.lock(nil)()
	for _, player := range r.store.players {
		if player.Email == email {
			p := player
			return &p, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *memPlayerRepo) ApplyBalanceDelta(ctx context.Context, exec repositories.SQLExecutor, id string, delta int64) (int64, error) {
	defer r.store.lock(exec)()
	player, ok := r.store.players[id]
	if !ok {
		return 0, repositories.ErrPlayerNotFound
	}
	if player.Balance+delta < 0 {
		return 0, repositories.ErrInsufficientBalance
	}
	player.Balance += delta
	r.store.players[id] = player
	return player.Balance, nil
}

func (r *memPlayerRepo) Deactivate(ctx context.Context, id string) error {
	defer r.store.lock(nil)()
	player, ok := r.store.players[id]
	if !ok {
		return repositories.ErrPlayerNotFound
	}
	player.Active = false
	r.store.players[id] = player
	return nil
}

type memTransactionRepo struct {
	store *memStore
}

func (r *memTransactionRepo) Create(ctx context.Context, exec repositories.SQLExecutor, tx *models.Transaction) error {
	defer r.store.lock(exec)()
	if _, ok := r.store.transactions[tx.ID]; ok {
		return repositories.ErrTransactionIDConflict
	}
	if _, ok := r.store.players[tx.PlayerID]; !ok {
		return repositories.ErrTransactionPlayerInvalid
	}
	tx.CreatedAt = time.Now()
	r.store.transactions[tx.ID] = *tx
	r.store.txOrder = append(r.store.txOrder, tx.ID)
	return nil
}

func (r *memTransactionRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Transaction, error) {
	defer r.store.lock(exec)()
	tx, ok := r.store.transactions[id]
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	return &tx, nil
}

func (r *memTransactionRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id string, from, to models.TransactionStatus) error {
	defer r.store.lock(exec)()
	tx, ok := r.store.transactions[id]
	if !ok {
		return repositories.ErrTransactionNotFound
	}
	if tx.Status != from {
		return repositories.ErrTransactionStatusConflict
	}
	tx.Status = to
	r.store.transactions[id] = tx
	return nil
}

func (r *memTransactionRepo) ListByPlayer(ctx context.Context, playerID string, limit int) ([]*models.Transaction, error) {
	defer r.store.lock(nil)()
	var out []*models.Transaction
	for i := len(r.store.txOrder) - 1; i >= 0 && len(out) < limit; i-- {
		tx := r.store.transactions[r.store.txOrder[i]]
		if tx.PlayerID == playerID {
			t := tx
			out = append(out, &t)
		}
	}
	return out, nil
}

type memTournamentRepo struct {
	store *memStore
}

func (r *memTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	defer r.store.lock(nil)()
	t.ID = r.store.nextTournment
	r.store.nextTournment++
	t.CreatedAt = time.Now()
	r.store.tournaments[t.ID] = *t
	return nil
}

func (r *memTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	defer r.store.lock(exec)()
	t, ok := r.store.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &t, nil
}

func (r *memTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	defer r.store.lock(nil)()
	var ids []int
	for id := range r.store.tournaments {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var out []models.Tournament
	for _, id := range ids {
		t := r.store.tournaments[id]
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Mode != nil && t.Mode != *filter.Mode {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *memTournamentRepo) CapacityState(ctx context.Context, id int) (*models.CapacityState, error) {
	defer r.store.lock(nil)()
	t, ok := r.store.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	return &models.CapacityState{Filled: t.Filled, Capacity: t.Capacity}, nil
}

func (r *memTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	defer r.store.lock(exec)()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	r.store.tournaments[id] = t
	return nil
}

func (r *memTournamentRepo) SetRoom(ctx context.Context, id int, roomID, roomPassword string) error {
	defer r.store.lock(nil)()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.RoomID = &roomID
	t.RoomPassword = &roomPassword
	r.store.tournaments[id] = t
	return nil
}

// ReserveSlot applies the same condition as the guarded UPDATE: the slot is
// granted only while the tournament is open and below capacity.
func (r *memTournamentRepo) ReserveSlot(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	defer r.store.lock(exec)()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.Status == models.StatusClosed {
		return repositories.ErrTournamentClosedForEntry
	}
	if t.Status != models.StatusOpen || t.Filled >= t.Capacity {
		return repositories.ErrTournamentCapacityReached
	}
	t.Filled++
	if t.Filled >= t.Capacity {
		t.Status = models.StatusFull
	}
	r.store.tournaments[id] = t
	return nil
}

func (r *memTournamentRepo) ReleaseSlot(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	defer r.store.lock(exec)()
	t, ok := r.store.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if t.Filled > 0 {
		t.Filled--
	}
	if t.Status == models.StatusFull {
		t.Status = models.StatusOpen
	}
	r.store.tournaments[id] = t
	return nil
}

func (r *memTournamentRepo) CloseStarted(ctx context.Context, now time.Time) ([]int, error) {
	defer r.store.lock(nil)()
	var ids []int
	for id, t := range r.store.tournaments {
		if t.Status != models.StatusClosed && !t.StartsAt.After(now) {
			t.Status = models.StatusClosed
			r.store.tournaments[id] = t
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *memTournamentRepo) Delete(ctx context.Context, id int) error {
	defer r.store.lock(nil)()
	if _, ok := r.store.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	for _, e := range r.store.entrants {
		if e.TournamentID == id {
			return repositories.ErrTournamentInUse
		}
	}
	delete(r.store.tournaments, id)
	return nil
}

type memEntrantRepo struct {
	store *memStore
}

func (r *memEntrantRepo) Create(ctx context.Context, exec repositories.SQLExecutor, e *models.Entrant) error {
	defer r.store.lock(exec)()
	if _, ok := r.store.players[e.PlayerID]; !ok {
		return repositories.ErrEntrantPlayerInvalid
	}
	if _, ok := r.store.tournaments[e.TournamentID]; !ok {
		return repositories.ErrEntrantTournamentInvalid
	}
	for _, existing := range r.store.entrants {
		if existing.TournamentID == e.TournamentID && existing.PlayerID == e.PlayerID {
			return repositories.ErrEntrantConflict
		}
	}
	e.ID = r.store.nextEntrant
	r.store.nextEntrant++
	e.JoinedAt = time.Now()
	r.store.entrants[e.ID] = *e
	return nil
}

func (r *memEntrantRepo) FindByID(ctx context.Context, id int) (*models.Entrant, error) {
	defer r.store.lock(nil)()
	e, ok := r.store.entrants[id]
	if !ok {
		return nil, repositories.ErrEntrantNotFound
	}
	return &e, nil
}

func (r *memEntrantRepo) FindByPlayerAndTournament(ctx context.Context, exec repositories.SQLExecutor, playerID string, tournamentID int) (*models.Entrant, error) {
	defer r.store.lock(exec)()
	for _, e := range r.store.entrants {
		if e.PlayerID == playerID && e.TournamentID == tournamentID {
			found := e
			return &found, nil
		}
	}
	return nil, repositories.ErrEntrantNotFound
}

func (r *memEntrantRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Entrant, error) {
	defer r.store.lock(exec)()
	var ids []int
	for id, e := range r.store.entrants {
		if e.TournamentID == tournamentID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	out := make([]*models.Entrant, 0, len(ids))
	for _, id := range ids {
		e := r.store.entrants[id]
		out = append(out, &e)
	}
	return out, nil
}

func (r *memEntrantRepo) ListByPlayer(ctx context.Context, playerID string) ([]*models.Entrant, error) {
	defer r.store.lock(nil)()
	var ids []int
	for id, e := range r.store.entrants {
		if e.PlayerID == playerID {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	out := make([]*models.Entrant, 0, len(ids))
	for _, id := range ids {
		e := r.store.entrants[id]
		if t, ok := r.store.tournaments[e.TournamentID]; ok {
			e.RoomID = t.RoomID
			e.RoomPassword = t.RoomPassword
		}
		out = append(out, &e)
	}
	return out, nil
}

func (r *memEntrantRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	defer r.store.lock(exec)()
	if _, ok := r.store.entrants[id]; !ok {
		return repositories.ErrEntrantNotFound
	}
	delete(r.store.entrants, id)
	return nil
}

type publishedEvent struct {
	TournamentID int
	Event        string
	Payload      interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(tournamentID int, event string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{TournamentID: tournamentID, Event: event, Payload: payload})
}

func (n *recordingNotifier) eventsOfType(event string) []publishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []publishedEvent
	for _, e := range n.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// fixture wires every service against one shared in-memory store.
type fixture struct {
	store       *memStore
	tx          *memTxRunner
	players     *memPlayerRepo
	txRepo      *memTransactionRepo
	tournaments *memTournamentRepo
	entrants    *memEntrantRepo
	notifier    *recordingNotifier

	ledger     *LedgerService
	admission  *AdmissionService
	status     *StatusService
	wallet     *WalletService
	admin      *AdminService
	tournament *TournamentService
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store:       store,
		tx:          &memTxRunner{store: store},
		players:     &memPlayerRepo{store: store},
		txRepo:      &memTransactionRepo{store: store},
		tournaments: &memTournamentRepo{store: store},
		entrants:    &memEntrantRepo{store: store},
		notifier:    &recordingNotifier{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.ledger = NewLedgerService(f.players, f.txRepo, f.tx)
	f.admission = NewAdmissionService(f.tx, f.tournaments, f.entrants, f.ledger, f.notifier, logger)
	f.status = NewStatusService(f.tournaments, f.entrants)
	f.wallet = NewWalletService(f.ledger, f.tx)
	f.admin = NewAdminService(f.tx, f.tournaments, f.entrants, f.players, f.ledger, f.notifier, logger)
	f.tournament = NewTournamentService(f.tournaments, f.notifier, logger)
	return f
}

func (f *fixture) seedPlayer(id string, balance int64) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.players[id] = models.Player{
		ID:          id,
		DisplayName: id,
		Email:       id + "@example.com",
		Role:        "player",
		Balance:     balance,
		Active:      true,
		CreatedAt:   time.Now(),
	}
}

func (f *fixture) seedTournament(entryFee int64, capacity int, status models.TournamentStatus) int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	id := f.store.nextTournment
	f.store.nextTournment++
	f.store.tournaments[id] = models.Tournament{
		ID:        id,
		Name:      "Erangel Scrims",
		Mode:      "squad",
		Map:       "Erangel",
		EntryFee:  entryFee,
		Capacity:  capacity,
		Status:    status,
		StartsAt:  time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	return id
}

func (f *fixture) playerBalance(id string) int64 {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.players[id].Balance
}

func (f *fixture) tournamentState(id int) models.Tournament {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.tournaments[id]
}

func (f *fixture) entrantCount(tournamentID int) int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	count := 0
	for _, e := range f.store.entrants {
		if e.TournamentID == tournamentID {
			count++
		}
	}
	return count
}

func (f *fixture) transactionCount(playerID string) int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	count := 0
	for _, tx := range f.store.transactions {
		if tx.PlayerID == playerID {
			count++
		}
	}
	return count
}
