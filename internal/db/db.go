// Package db persists samples and classification records to SQLite and
// exposes admin debugging routes over the database.
package db

import (
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/nozzle.report/internal/nozzle"
)

type DB struct {
	*sql.DB
}

func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			encoder_count     DOUBLE,
			current           DOUBLE,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS classifications (
			id                TEXT PRIMARY KEY,
			pca1              DOUBLE,
			pca2              DOUBLE,
			cluster_id        BIGINT,
			label             TEXT,
			timestamp         TIMESTAMP
		);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// RecordSample stores one accepted sensor reading.
func (db *DB) RecordSample(s nozzle.Sample) error {
	_, err := db.Exec(
		"INSERT INTO samples (encoder_count, current) VALUES (?, ?)",
		s.EncoderCount, s.Current,
	)
	return err
}

// RecordClassification stores one classification record.
func (db *DB) RecordClassification(rec nozzle.Classification) error {
	_, err := db.Exec(
		`INSERT INTO classifications (id, pca1, pca2, cluster_id, label, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PCA1, rec.PCA2, rec.ClusterID, rec.Label,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// SampleRow is one persisted sensor reading with its storage timestamp.
type SampleRow struct {
	EncoderCount float64 `json:"encoder_count"`
	Current      float64 `json:"current"`
	Timestamp    string  `json:"timestamp"`
}

// RecentSamples returns the most recent persisted samples, newest first.
func (db *DB) RecentSamples(limit int) ([]SampleRow, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.Query(
		"SELECT encoder_count, current, timestamp FROM samples ORDER BY rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []SampleRow
	for rows.Next() {
		var s SampleRow
		if err := rows.Scan(&s.EncoderCount, &s.Current, &s.Timestamp); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// Classifications returns the most recent classification records, newest
// first.
func (db *DB) Classifications(limit int) ([]nozzle.Classification, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT id, pca1, pca2, cluster_id, label, timestamp
		 FROM classifications ORDER BY timestamp DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []nozzle.Classification
	for rows.Next() {
		var rec nozzle.Classification
		var ts string
		if err := rows.Scan(&rec.ID, &rec.PCA1, &rec.PCA2, &rec.ClusterID, &rec.Label, &ts); err != nil {
			return nil, err
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = parsed
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://nozzle.db", db.DB, &tailsql.DBOptions{
		Label: "Nozzle DB",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unixTime := time.Now().Unix()
		backupPath := fmt.Sprintf("backup-%d.db", unixTime)
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}

		// close the backup file after sending it
		// and remove it from the filesystem
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()

		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))
}
