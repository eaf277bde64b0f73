package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SignalLookup fetches a signal by id. *DB implements it; so does SignalSet
// for callers holding records in memory.
type SignalLookup interface {
	Signal(id string) (*Signal, error)
}

// SignalSet is an in-memory SignalLookup keyed by signal ID.
type SignalSet map[string]*Signal

// Signal implements SignalLookup.
func (s SignalSet) Signal(id string) (*Signal, error) {
	sig, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("signal %s: %w", id, ErrNotFound)
	}
	return sig, nil
}

// ResolveSignals returns the trial's signals in recording order. A dangling
// reference fails the whole resolution with an error wrapping ErrNotFound.
func ResolveSignals(lookup SignalLookup, t *Trial) ([]Signal, error) {
	signals := make([]Signal, 0, len(t.SignalIDs))
	for _, id := range t.SignalIDs {
		sig, err := lookup.Signal(id)
		if err != nil {
			return nil, fmt.Errorf("trial %s: %w", t.ID, err)
		}
		signals = append(signals, *sig)
	}
	return signals, nil
}

// CreateTrial stores t together with its ordered signal references. Every
// referenced signal must already exist.
func (db *DB) CreateTrial(t *Trial) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.StartedAt.IsZero() {
		t.StartedAt = time.Now().UTC()
	}
	extraJSON, err := encodeExtra(t.Extra)
	if err != nil {
		return err
	}

	tx, err := db.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO trials (trial_id, label, started_at_ns, extra_json)
		VALUES (?, ?, ?, ?)
	`, t.ID, t.Label, t.StartedAt.UnixNano(), extraJSON); err != nil {
		return fmt.Errorf("failed to create trial: %w", err)
	}

	for pos, signalID := range t.SignalIDs {
		if _, err := tx.Exec(`
			INSERT INTO trial_signals (trial_id, position, signal_id) VALUES (?, ?, ?)
		`, t.ID, pos, signalID); err != nil {
			return wrapSignalRef(signalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trial: %w", err)
	}
	return nil
}

// Trial retrieves a trial and its ordered signal ids.
func (db *DB) Trial(id string) (*Trial, error) {
	var (
		t           Trial
		startedAtNs int64
		extraJSON   string
	)
	err := db.DB.QueryRow(`
		SELECT trial_id, label, started_at_ns, extra_json
		FROM trials
		WHERE trial_id = ?
	`, id).Scan(&t.ID, &t.Label, &startedAtNs, &extraJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trial %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trial: %w", err)
	}

	t.StartedAt = time.Unix(0, startedAtNs).UTC()
	if t.Extra, err = decodeExtra(extraJSON); err != nil {
		return nil, err
	}
	if t.SignalIDs, err = db.trialSignalIDs(t.ID); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTrials returns trials newest first. A limit of zero or less returns
// every trial.
func (db *DB) ListTrials(limit int) ([]Trial, error) {
	query := `
		SELECT trial_id FROM trials
		ORDER BY started_at_ns DESC, trial_id ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trials: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan trial: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trials: %w", err)
	}

	trials := make([]Trial, 0, len(ids))
	for _, id := range ids {
		t, err := db.Trial(id)
		if err != nil {
			return nil, err
		}
		trials = append(trials, *t)
	}
	return trials, nil
}

// AppendSignal adds signalID to the end of the trial's signal list.
func (db *DB) AppendSignal(trialID, signalID string) error {
	var exists int
	if err := db.DB.QueryRow(`SELECT COUNT(*) FROM trials WHERE trial_id = ?`, trialID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up trial: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("trial %s: %w", trialID, ErrNotFound)
	}

	_, err := db.DB.Exec(`
		INSERT INTO trial_signals (trial_id, position, signal_id)
		SELECT ?, COALESCE(MAX(position) + 1, 0), ?
		FROM trial_signals
		WHERE trial_id = ?
	`, trialID, signalID, trialID)
	if err != nil {
		return wrapSignalRef(signalID, err)
	}
	return nil
}

// DeleteTrial removes a trial and its signal references. The signals
// themselves are kept.
func (db *DB) DeleteTrial(id string) error {
	result, err := db.DB.Exec(`DELETE FROM trials WHERE trial_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trial: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("trial %s: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) trialSignalIDs(trialID string) ([]string, error) {
	rows, err := db.DB.Query(`
		SELECT signal_id FROM trial_signals
		WHERE trial_id = ?
		ORDER BY position ASC
	`, trialID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trial signals: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan trial signal: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trial signals: %w", err)
	}
	return ids, nil
}

// wrapSignalRef maps a foreign-key failure on trial_signals to ErrNotFound.
func wrapSignalRef(signalID string, err error) error {
	if strings.Contains(err.Error(), "FOREIGN KEY") {
		return fmt.Errorf("signal %s: %w", signalID, ErrNotFound)
	}
	return fmt.Errorf("failed to add signal %s to trial: %w", signalID, err)
}
