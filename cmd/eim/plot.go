package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/banshee-data/eim/internal/analysis"
	"github.com/banshee-data/eim/internal/report"
	"github.com/banshee-data/eim/internal/security"
	"github.com/banshee-data/eim/internal/units"
)

func runPlot(args []string, stdout, stderr io.Writer) error {
	fs, cfgPath := newFlagSet("plot", stderr)
	ids := fs.String("signal", "", "Comma-separated signal IDs to plot")
	trialID := fs.String("trial", "", "Plot every signal of this trial")
	prefix := fs.String("prefix", "", "SI prefix for conductance (default server.prefix)")
	out := fs.String("out", "", "Output file; .png or .html")
	title := fs.String("title", "", "Chart title")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *out == "" || (*ids == "" && *trialID == "") {
		return fmt.Errorf("%w: -out and one of -signal or -trial are required", errUsage)
	}

	format, err := report.FormatFor(*out)
	if err != nil {
		return err
	}
	if err := security.ValidateOutputPath(*out); err != nil {
		return err
	}

	cfg, database, err := openStore(*cfgPath, true)
	if err != nil {
		return err
	}
	defer database.Close()

	p := units.Prefix(cfg.Server.GetPrefix())
	if *prefix != "" {
		if !units.IsValidPrefix(*prefix) {
			return fmt.Errorf("invalid prefix %q, valid prefixes are %s", *prefix, units.GetValidPrefixesString())
		}
		p = units.Prefix(*prefix)
	}

	chart := report.Chart{
		Title:  *title,
		YLabel: fmt.Sprintf("Conductance (%s siemens)", p),
	}

	var signalIDs []string
	if *trialID != "" {
		t, err := database.Trial(*trialID)
		if err != nil {
			return err
		}
		signalIDs = t.SignalIDs
		if chart.Title == "" {
			chart.Title = t.Label
		}
	}
	for _, id := range strings.Split(*ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			signalIDs = append(signalIDs, id)
		}
	}

	for _, id := range signalIDs {
		sig, err := database.Signal(id)
		if err != nil {
			return err
		}
		chart.Series = append(chart.Series, report.Series{
			Name:   fmt.Sprintf("%s %s", sig.Kind, shortID(sig.ID)),
			Points: analysis.Series(sig, p),
		})
	}
	if chart.Title == "" {
		chart.Title = "Skin conductance"
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", *out, err)
	}
	if err := report.Write(f, format, chart); err != nil {
		f.Close()
		os.Remove(*out)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", *out, err)
	}
	fmt.Fprintf(stdout, "Wrote %d series to %s\n", len(chart.Series), *out)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
