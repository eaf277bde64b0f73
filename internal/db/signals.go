package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateSignal stores sig. An empty ID is replaced with a new UUID and a zero
// RecordedAt with the current time; both are written back to sig.
func (db *DB) CreateSignal(sig *Signal) error {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	if sig.RecordedAt.IsZero() {
		sig.RecordedAt = time.Now().UTC()
	}

	readings := sig.Readings
	if readings == nil {
		readings = []float64{}
	}
	readingsJSON, err := json.Marshal(readings)
	if err != nil {
		return fmt.Errorf("failed to encode readings: %w", err)
	}
	extraJSON, err := encodeExtra(sig.Extra)
	if err != nil {
		return err
	}

	_, err = db.DB.Exec(`
		INSERT INTO signals (signal_id, kind, sample_rate_hz, recorded_at_ns, readings_json, extra_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sig.ID, sig.Kind, sig.SampleRateHz, sig.RecordedAt.UnixNano(), string(readingsJSON), extraJSON)
	if err != nil {
		return fmt.Errorf("failed to create signal: %w", err)
	}
	return nil
}

// Signal retrieves a signal by ID.
func (db *DB) Signal(id string) (*Signal, error) {
	row := db.DB.QueryRow(`
		SELECT signal_id, kind, sample_rate_hz, recorded_at_ns, readings_json, extra_json
		FROM signals
		WHERE signal_id = ?
	`, id)

	sig, err := scanSignal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("signal %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}
	return sig, nil
}

// ListSignals returns the most recently recorded signals first. A limit of
// zero or less returns every signal.
func (db *DB) ListSignals(limit int) ([]Signal, error) {
	query := `
		SELECT signal_id, kind, sample_rate_hz, recorded_at_ns, readings_json, extra_json
		FROM signals
		ORDER BY recorded_at_ns DESC, signal_id ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, *sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signals: %w", err)
	}
	return signals, nil
}

// DeleteSignal removes a signal. Signals still referenced by a trial are kept
// and ErrSignalInUse is returned.
func (db *DB) DeleteSignal(id string) error {
	var refs int
	if err := db.DB.QueryRow(`SELECT COUNT(*) FROM trial_signals WHERE signal_id = ?`, id).Scan(&refs); err != nil {
		return fmt.Errorf("failed to check signal references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("signal %s (%d trial references): %w", id, refs, ErrSignalInUse)
	}

	result, err := db.DB.Exec(`DELETE FROM signals WHERE signal_id = ?`, id)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY") {
			return fmt.Errorf("signal %s: %w", id, ErrSignalInUse)
		}
		return fmt.Errorf("failed to delete signal: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("signal %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(row rowScanner) (*Signal, error) {
	var (
		sig          Signal
		recordedAtNs int64
		readingsJSON string
		extraJSON    string
	)
	if err := row.Scan(&sig.ID, &sig.Kind, &sig.SampleRateHz, &recordedAtNs, &readingsJSON, &extraJSON); err != nil {
		return nil, err
	}

	sig.RecordedAt = time.Unix(0, recordedAtNs).UTC()
	if err := json.Unmarshal([]byte(readingsJSON), &sig.Readings); err != nil {
		return nil, fmt.Errorf("failed to decode readings for signal %s: %w", sig.ID, err)
	}
	extra, err := decodeExtra(extraJSON)
	if err != nil {
		return nil, err
	}
	sig.Extra = extra
	return &sig, nil
}
