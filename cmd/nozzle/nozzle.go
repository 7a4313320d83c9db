package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/nozzle.report/internal/api"
	"github.com/banshee-data/nozzle.report/internal/config"
	"github.com/banshee-data/nozzle.report/internal/db"
	"github.com/banshee-data/nozzle.report/internal/monitor"
	"github.com/banshee-data/nozzle.report/internal/nozzle"
	"github.com/banshee-data/nozzle.report/internal/serialmux"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode with a mock serial port")
	listen     = flag.String("listen", ":8080", "Listen address")
	port       = flag.String("port", "/dev/ttyUSB0", "Serial port to use (ignored in dev mode)")
	configPath = flag.String("config", "", "Path to monitor config JSON (optional)")
	modelDir   = flag.String("models", "", "Artifact directory (overrides config)")
	dbFile     = flag.String("db", "nozzle_data.db", "SQLite database path")
	plotDir    = flag.String("plots", "", "Write PNG session plots to this directory on shutdown (optional)")
)

// handleEvent routes one serial line: JSON payloads are firmware status
// responses, everything else goes through the sample pipeline. Per-record
// errors are reported and contained; they never stop the stream.
func handleEvent(session *nozzle.Session, database *db.DB, payload string) error {
	if serialmux.ClassifyPayload(payload) == serialmux.EventTypeStatus {
		log.Printf("device status: %s", payload)
		return nil
	}

	result, err := session.Process(payload)

	if result.Sample != nil {
		if dbErr := database.RecordSample(*result.Sample); dbErr != nil {
			log.Printf("failed to record sample: %v", dbErr)
		}
	}
	if result.Record != nil {
		if dbErr := database.RecordClassification(*result.Record); dbErr != nil {
			log.Printf("failed to record classification: %v", dbErr)
		}
		log.Printf("nozzle status: %s (pca1=%.3f, pca2=%.3f)",
			result.Record.Label, result.Record.PCA1, result.Record.PCA2)
	}

	if err != nil {
		var formatErr *nozzle.FormatError
		var parseErr *nozzle.ParseError
		switch {
		case errors.As(err, &formatErr), errors.As(err, &parseErr):
			log.Printf("skipped invalid line: %v", err)
			return nil
		case errors.Is(err, nozzle.ErrDegenerateWindow):
			// Already logged at debug level by the session.
			return nil
		default:
			return err
		}
	}
	return nil
}

// Main
func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !*devMode && *port == "" {
		log.Fatal("Serial port is required")
	}

	cfg := config.EmptyMonitorConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadMonitorConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	artifactDir := cfg.GetArtifactDir()
	if *modelDir != "" {
		artifactDir = *modelDir
	}

	// Artifact loading failures are fatal: the pipeline cannot run without
	// the trained scaler/reducer/assigner trio.
	artifacts, err := nozzle.LoadArtifacts(artifactDir)
	if err != nil {
		log.Fatalf("failed to load model artifacts from %s: %v", artifactDir, err)
	}

	pipeline := nozzle.NewArtifactPipeline(artifacts, nozzle.PipelineConfig{
		Labels: cfg.GetStateLabels(),
	})
	session := nozzle.NewSession(pipeline, nozzle.SessionConfig{
		WindowSize: cfg.GetWindowSize(),
	})

	var mux serialmux.SerialMuxInterface
	if *devMode {
		data, err := os.ReadFile("fixtures.txt")
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		mux = serialmux.NewMockSerialMux([]byte(lines[0] + "\n"))
	} else {
		var err error
		mux, err = serialmux.NewRealSerialMux(*port, serialmux.PortOptions{
			BaudRate:    cfg.GetBaudRate(),
			DataBits:    cfg.GetDataBits(),
			StopBits:    cfg.GetStopBits(),
			Parity:      cfg.GetParity(),
			ReadTimeout: cfg.GetReadTimeout(),
		})
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", *port, err)
		}
	}
	defer mux.Close()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Create a wait group for the HTTP server, serial monitor, and event
	// handler routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to the serial port messages and pass them through the
	// classification session, one record at a time in arrival order
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := mux.Subscribe()
		defer mux.Unsubscribe(id)
		for {
			select {
			case payload := <-c:
				if err := handleEvent(session, database, payload); err != nil {
					log.Printf("error handling event: %v", err)
				}
			case <-ctx.Done():
				log.Printf("subscribe routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		httpMux := http.NewServeMux()

		// mount the admin debugging routes
		database.AttachAdminRoutes(httpMux)
		mux.AttachAdminRoutes(httpMux)

		// mount the API handlers and the live chart pages
		apiMux := api.NewServer(mux, database, session).ServeMux()
		httpMux.Handle("/api/", http.StripPrefix("/api", apiMux))
		monitor.NewCharts(session).Attach(httpMux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(httpMux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()

	if *plotDir != "" {
		if err := monitor.SessionPlots(*plotDir, session.WindowSnapshot(), session.History().All()); err != nil {
			log.Printf("failed to write session plots: %v", err)
		} else {
			log.Printf("wrote session plots to %s", *plotDir)
		}
	}

	log.Printf("Graceful shutdown complete")
}
