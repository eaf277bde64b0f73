package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/banshee-data/eim/internal/db"
	"github.com/banshee-data/eim/internal/serialmux"
	"github.com/banshee-data/eim/internal/timeutil"
)

// extraFlag collects repeated -extra key=value attributes.
type extraFlag map[string]any

func (e extraFlag) String() string {
	parts := make([]string, 0, len(e))
	for k, v := range e {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ",")
}

func (e extraFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	e[strings.TrimSpace(k)] = v
	return nil
}

func runRecord(args []string, stdout, stderr io.Writer) error {
	fs, cfgPath := newFlagSet("record", stderr)
	duration := fs.Duration("duration", 0, "Stop after this long (0 = until interrupted or -samples is reached)")
	samples := fs.Int("samples", 0, "Stop after this many readings (0 = no limit)")
	rate := fs.Float64("rate", 0, "Sample rate in Hz (overrides serial.sample_rate_hz)")
	mock := fs.Bool("mock", false, "Record fixture readings instead of a device")
	trialID := fs.String("trial", "", "Append the signal to this trial, creating it if needed")
	label := fs.String("label", "", "Label for a trial created by -trial")
	extra := extraFlag{}
	fs.Var(extra, "extra", "Attach key=value to the signal (repeatable)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *duration < 0 || *samples < 0 || *rate < 0 {
		return fmt.Errorf("%w: -duration, -samples and -rate must be non-negative", errUsage)
	}

	cfg, database, err := openStore(*cfgPath, true)
	if err != nil {
		return err
	}
	defer database.Close()
	if *rate > 0 {
		cfg.Serial.SampleRateHz = rate
	}

	m, err := openMux(cfg, *mock, false)
	if err != nil {
		return err
	}
	defer m.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go func() {
		if err := m.Monitor(monitorCtx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintf(stderr, "serial monitor stopped: %v\n", err)
		}
	}()

	rec := &serialmux.Recorder{
		Mux:          m,
		Store:        database,
		Clock:        timeutil.RealClock{},
		SampleRateHz: cfg.Serial.GetSampleRateHz(),
		MaxSamples:   *samples,
		Extra:        extra,
	}
	fmt.Fprintf(stderr, "Recording at %.2f Hz, press Ctrl-C to stop...\n", rec.SampleRateHz)
	sig, err := rec.Record(ctx)
	if err != nil {
		return err
	}

	if *trialID != "" {
		if err := attachToTrial(database, *trialID, *label, sig.ID); err != nil {
			return err
		}
	}
	fmt.Fprintln(stdout, sig.String())
	return nil
}

// attachToTrial appends signalID to the trial, creating the trial when it
// does not exist yet.
func attachToTrial(database *db.DB, trialID, label, signalID string) error {
	err := database.AppendSignal(trialID, signalID)
	if !errors.Is(err, db.ErrNotFound) {
		return err
	}
	if _, lookupErr := database.Trial(trialID); !errors.Is(lookupErr, db.ErrNotFound) {
		// the trial exists, so the signal reference was the missing record
		return err
	}
	return database.CreateTrial(&db.Trial{
		ID:        trialID,
		Label:     label,
		StartedAt: time.Now().UTC(),
		SignalIDs: []string{signalID},
	})
}

func runPorts(stdout io.Writer) error {
	ports, err := serialmux.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(stdout, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(stdout, p)
	}
	return nil
}
