package dialogue

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrSessionNotFound is a client error: the caller should start a new
// session.
var ErrSessionNotFound = errors.New("session not found")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `SELECT id, language, state, belief, candidates, asked, pending_symptom, outcome,
		turns, counted_turns, grace_used, created_at, updated_at
		FROM sessions WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	var s Session
	var beliefJSON, candidatesJSON, askedJSON, outcomeJSON []byte

	err := row.Scan(
		&s.ID,
		&s.Language,
		&s.State,
		&beliefJSON,
		&candidatesJSON,
		&askedJSON,
		&s.Pending,
		&outcomeJSON,
		&s.Turns,
		&s.CountedTurns,
		&s.GraceUsed,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if len(beliefJSON) > 0 {
		if err := json.Unmarshal(beliefJSON, &s.Belief); err != nil {
			return nil, errors.Wrap(err, "unmarshal belief state")
		}
	}
	if len(candidatesJSON) > 0 {
		if err := json.Unmarshal(candidatesJSON, &s.Candidates); err != nil {
			return nil, errors.Wrap(err, "unmarshal candidates")
		}
	}
	if len(askedJSON) > 0 {
		if err := json.Unmarshal(askedJSON, &s.Asked); err != nil {
			return nil, errors.Wrap(err, "unmarshal asked set")
		}
	}
	if len(outcomeJSON) > 0 && string(outcomeJSON) != "null" {
		if err := json.Unmarshal(outcomeJSON, &s.Outcome); err != nil {
			return nil, errors.Wrap(err, "unmarshal outcome")
		}
	}

	return &s, nil
}

func (r *postgresRepo) Save(ctx context.Context, s *Session) error {
	beliefJSON, err := json.Marshal(s.Belief)
	if err != nil {
		return err
	}
	candidatesJSON, err := json.Marshal(s.Candidates)
	if err != nil {
		return err
	}
	askedJSON, err := json.Marshal(s.Asked)
	if err != nil {
		return err
	}
	outcomeJSON, err := json.Marshal(s.Outcome)
	if err != nil {
		return err
	}

	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.UpdatedAt = time.Now()

	query := `
		INSERT INTO sessions (id, language, state, belief, candidates, asked, pending_symptom, outcome,
			turns, counted_turns, grace_used, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			state = $3,
			belief = $4,
			candidates = $5,
			asked = $6,
			pending_symptom = $7,
			outcome = $8,
			turns = $9,
			counted_turns = $10,
			grace_used = $11,
			updated_at = $13
	`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.Language, s.State, beliefJSON, candidatesJSON, askedJSON, s.Pending, outcomeJSON,
		s.Turns, s.CountedTurns, s.GraceUsed, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *postgresRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// memoryRepo backs tests and DB-less demo runs. Sessions are stored as
// JSON snapshots so callers never share mutable state with the store.
type memoryRepo struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID][]byte
}

func NewMemoryRepository() Repository {
	return &memoryRepo{sessions: map[uuid.UUID][]byte{}}
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	raw, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *memoryRepo) Save(_ context.Context, s *Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	s.UpdatedAt = time.Now()
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sessions[s.ID] = raw
	r.mu.Unlock()
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}
