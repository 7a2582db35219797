// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"database/sql"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

// coreDataEpoch is the reference date of knowledgeC.db timestamps.
var coreDataEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// Knowledge database stream names written by the OS.
const (
	StreamAppUsage   = "/app/usage"
	StreamAppInFocus = "/app/inFocus"
)

// KnowledgeEvent is one ZOBJECT row.
type KnowledgeEvent struct {
	Stream   string
	BundleID string
	Start    time.Time
	End      time.Time
}

// UsageEvent is a foreground session of bundleID.
func UsageEvent(bundleID string, start, end time.Time) KnowledgeEvent {
	return KnowledgeEvent{Stream: StreamAppUsage, BundleID: bundleID, Start: start, End: end}
}

// InFocusEvent is a visibility session of bundleID.
func InFocusEvent(bundleID string, start, end time.Time) KnowledgeEvent {
	return KnowledgeEvent{Stream: StreamAppInFocus, BundleID: bundleID, Start: start, End: end}
}

// knowledgeSchema mirrors the columns of knowledgeC.db that matter for app usage.
const knowledgeSchema = `
	CREATE TABLE IF NOT EXISTS ZOBJECT (
		Z_PK INTEGER PRIMARY KEY,
		Z_ENT INTEGER,
		ZSTREAMNAME VARCHAR,
		ZVALUESTRING VARCHAR,
		ZSTARTDATE TIMESTAMP,
		ZENDDATE TIMESTAMP,
		ZCREATIONDATE TIMESTAMP
	);`

// WriteKnowledgeDB creates (or appends to) a knowledgeC-shaped database at path.
func WriteKnowledgeDB(path string, events ...KnowledgeEvent) error {
	db, err := sql.Open("sqlite3", fileURI(path))
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(knowledgeSchema); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO ZOBJECT (Z_ENT, ZSTREAMNAME, ZVALUESTRING, ZSTARTDATE, ZENDDATE, ZCREATIONDATE)
		VALUES (11, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(e.Stream, e.BundleID, coreDataSeconds(e.Start), coreDataSeconds(e.End), coreDataSeconds(e.End)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func fileURI(path string) string {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "file:" + strings.Join(segments, "/")
}

func coreDataSeconds(t time.Time) float64 {
	return float64(t.Sub(coreDataEpoch).Milliseconds()) / 1000
}
