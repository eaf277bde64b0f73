package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/eim/internal/api"
	"github.com/banshee-data/eim/internal/config"
	"github.com/banshee-data/eim/internal/serialmux"
	"github.com/banshee-data/eim/internal/timeutil"
	"github.com/banshee-data/eim/internal/units"
)

func runServe(args []string, stderr io.Writer) error {
	fs, cfgPath := newFlagSet("serve", stderr)
	listen := fs.String("listen", "", "HTTP listen address (overrides server.listen)")
	mock := fs.Bool("mock", false, "Feed the serial tail from fixture readings instead of a device")
	noSerial := fs.Bool("no-serial", false, "Do not open the serial port")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	cfg, database, err := openStore(*cfgPath, true)
	if err != nil {
		return err
	}
	defer database.Close()
	if *listen != "" {
		cfg.Server.Listen = *listen
	}

	m, err := openMux(cfg, *mock, *noSerial)
	if err != nil {
		return err
	}
	defer m.Close()

	mux := http.NewServeMux()
	// mount the admin debugging routes (accessible only locally or over Tailscale)
	if err := database.AttachAdminRoutes(mux); err != nil {
		return err
	}
	m.AttachAdminRoutes(mux)

	apiMux := api.NewServer(m, database, units.Prefix(cfg.Server.GetPrefix())).ServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", apiMux))

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	if cfg.Server.GRPCListen != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCListen)
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("failed to listen on %s: %w", cfg.Server.GRPCListen, err)
		}
		health := api.NewHealth(database, timeutil.RealClock{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := health.Serve(ctx, lis, 30*time.Second); err != nil {
				log.Printf("health server error: %v", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.Server.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
	return nil
}

// openMux picks the serial source: fixture readings, nothing at all, or the
// configured device.
func openMux(cfg *config.Config, mock, disabled bool) (serialmux.Mux, error) {
	switch {
	case mock:
		interval := time.Second
		if rate := cfg.Serial.GetSampleRateHz(); rate > 0 {
			interval = time.Duration(float64(time.Second) / rate)
		}
		return serialmux.NewMockSerialMux(nil, interval, timeutil.RealClock{}), nil
	case disabled || cfg.Serial.Port == "":
		return serialmux.NewDisabledSerialMux(), nil
	}

	opts, err := serialmux.OptionsFromConfig(cfg.Serial).Normalise()
	if err != nil {
		return nil, err
	}
	m, err := serialmux.NewRealSerialMux(cfg.Serial.Port, opts)
	if err != nil {
		return nil, err
	}
	log.Printf("opened %s at %s", cfg.Serial.Port, opts)
	return m, nil
}
