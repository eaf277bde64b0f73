package serialmux

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/eim/internal/db"
	"github.com/banshee-data/eim/internal/timeutil"
)

// KindEDA marks signals holding electrodermal (skin conductance) readings.
const KindEDA = "eda"

var ErrNoReadings = errors.New("no readings captured")

// SignalStore persists a finished recording. *db.DB implements it.
type SignalStore interface {
	CreateSignal(sig *db.Signal) error
}

// Recorder turns the lines arriving on a Mux into one stored Signal. The mux
// must be monitored by the caller while Record runs.
type Recorder struct {
	Mux          Mux
	Store        SignalStore
	Clock        timeutil.Clock
	SampleRateHz float64
	// MaxSamples stops the recording early when positive.
	MaxSamples int
	// Extra is copied onto the stored signal.
	Extra map[string]any
}

// Record collects readings until ctx ends, the mux closes or MaxSamples is
// reached, then stores them. Lines that are not readings are logged and
// counted under "skipped_lines" in the signal's extra attributes.
func (r *Recorder) Record(ctx context.Context) (*db.Signal, error) {
	clock := r.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	id, lines := r.Mux.Subscribe()
	defer r.Mux.Unsubscribe(id)

	started := clock.Now()
	var readings []float64
	skipped := 0

collect:
	for {
		select {
		case <-ctx.Done():
			break collect
		case line, ok := <-lines:
			if !ok {
				break collect
			}
			v, err := ParseReading(line)
			if err != nil {
				skipped++
				logf("skipping line: %v", err)
				continue
			}
			readings = append(readings, v)
			if r.MaxSamples > 0 && len(readings) >= r.MaxSamples {
				break collect
			}
		}
	}

	if len(readings) == 0 {
		return nil, fmt.Errorf("%w after %s (%d lines skipped)", ErrNoReadings, clock.Since(started), skipped)
	}

	extra := make(map[string]any, len(r.Extra)+1)
	for k, v := range r.Extra {
		extra[k] = v
	}
	if skipped > 0 {
		extra["skipped_lines"] = skipped
	}

	sig := &db.Signal{
		Kind:         KindEDA,
		SampleRateHz: r.SampleRateHz,
		RecordedAt:   started.UTC(),
		Readings:     readings,
		Extra:        extra,
	}
	if err := r.Store.CreateSignal(sig); err != nil {
		return nil, fmt.Errorf("failed to store recording: %w", err)
	}
	logf("recorded signal %s: %d readings in %s", sig.ID, len(readings), clock.Since(started))
	return sig, nil
}
