// Command eim records BioEmo skin-conductance signals, converts readings
// between units and serves the experiment store over HTTP.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/eim/internal/config"
	"github.com/banshee-data/eim/internal/db"
	"github.com/banshee-data/eim/internal/version"
)

var errUsage = errors.New("usage error")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run dispatches one subcommand. It never exits the process.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "serve":
		return runServe(rest, stderr)
	case "record":
		return runRecord(rest, stdout, stderr)
	case "convert":
		return runConvert(rest, stdin, stdout, stderr)
	case "plot":
		return runPlot(rest, stdout, stderr)
	case "flatten":
		return runFlatten(rest, stdin, stdout, stderr)
	case "migrate":
		return runMigrate(rest, stdout, stderr)
	case "ports":
		return runPorts(stdout)
	case "version":
		fmt.Fprintln(stdout, version.String())
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `eim - Emotion in Motion sensor toolkit

Usage: eim <command> [options]

Commands:
  serve      Serve conversions and stored records over HTTP
  record     Capture a BioEmo signal from the serial port
  convert    Apply a named unit conversion to numbers or a JSON array
  plot       Chart the conductance of stored signals as PNG or HTML
  flatten    Flatten stored records or JSON documents to keypaths
  migrate    Manage database schema migrations
  ports      List serial ports
  version    Show eim version
  help       Show this help message

Every command that touches the store accepts -config <file.json>
(default eim.json; built-in defaults when that file does not exist).

Examples:
  eim record -samples 600 -trial t1 -label startle -extra participant=p07
  eim convert -conversion bioemo_readings_to_siemens 512 600 700
  echo '[[512, 600], [700, 800]]' | eim convert -conversion bioemo_readings_to_volts
  eim plot -signal 9f1c... -prefix micro -out eda.html
  eim flatten -trials
  eim migrate status`)
}

// newCommandFlagSet returns a flag set that reports errors instead of exiting.
func newCommandFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// newFlagSet is newCommandFlagSet plus the shared -config flag, for commands
// that open the store or the serial port.
func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := newCommandFlagSet(name, stderr)
	cfgPath := fs.String("config", config.DefaultConfigPath, "Path to JSON configuration file")
	return fs, cfgPath
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errUsage
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// openStore loads the configuration and opens the experiment store.
func openStore(cfgPath string, autoMigrate bool) (*config.Config, *db.DB, error) {
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	dbCfg := cfg.Database
	if !autoMigrate {
		off := false
		dbCfg.AutoMigrate = &off
	}
	database, err := db.Open(dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, database, nil
}

func runMigrate(args []string, stdout, stderr io.Writer) error {
	fs, cfgPath := newFlagSet("migrate", stderr)
	fs.Usage = func() { db.PrintMigrateHelp(stderr) }
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	_, database, err := openStore(*cfgPath, false)
	if err != nil {
		return err
	}
	defer database.Close()
	return db.RunMigrateCommand(fs.Args(), database, stdout)
}
