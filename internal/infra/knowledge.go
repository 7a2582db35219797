package infra

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ = sqlcipher.ErrBusy

// coreDataEpochOffset is the number of seconds between the Unix epoch and
// the Core Data reference date (2001-01-01 UTC).
const coreDataEpochOffset = 978307200

// Knowledge database stream names.
const (
	streamAppUsage   = "/app/usage"
	streamAppInFocus = "/app/inFocus"
)

// Dates are cast so the driver does not decode TIMESTAMP columns as times.
const knowledgeSessionQuery = `
	SELECT ZSTREAMNAME, ZVALUESTRING, CAST(ZSTARTDATE AS REAL), CAST(ZENDDATE AS REAL)
	FROM ZOBJECT
	WHERE ZSTREAMNAME IN (?, ?)
	  AND ZVALUESTRING IS NOT NULL
	  AND ZENDDATE > ?
	  AND ZSTARTDATE < ?
	ORDER BY ZSTARTDATE, Z_PK`

// KnowledgeStore implements domain.UsageSource over the macOS knowledge
// database (knowledgeC.db). The database is opened read-only per query so
// the OS can keep writing to it.
type KnowledgeStore struct {
	dbPath   string
	platform PlatformInfo
	logger   *zap.Logger
}

// NewKnowledgeStore creates a store reading dbPath.
func NewKnowledgeStore(dbPath string, platform PlatformInfo, logger *zap.Logger) *KnowledgeStore {
	return &KnowledgeStore{
		dbPath:   dbPath,
		platform: platform,
		logger:   logger,
	}
}

// Path returns the database file path.
func (k *KnowledgeStore) Path() string {
	return k.dbPath
}

// SupportsVisibleTime reports whether the inFocus stream is tracked on this OS.
func (k *KnowledgeStore) SupportsVisibleTime() bool {
	return k.platform.SupportsVisibleTime()
}

// QueryAggregated returns one merged record per package over [start, end).
func (k *KnowledgeStore) QueryAggregated(ctx context.Context, start, end time.Time) (map[string]domain.UsageRecord, error) {
	sessions, err := k.loadSessions(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return aggregateWindow(sessions, start, end, k.SupportsVisibleTime()), nil
}

// QueryByGranularity returns one record per package per bucket of g.
func (k *KnowledgeStore) QueryByGranularity(ctx context.Context, g domain.Granularity, start, end time.Time) ([]domain.UsageRecord, error) {
	sessions, err := k.loadSessions(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return aggregateByGranularity(sessions, g, start, end, k.SupportsVisibleTime()), nil
}

func (k *KnowledgeStore) dsn() string {
	return fileURI(k.dbPath) + "?mode=ro"
}

// fileURI builds a SQLite "file:" URI for path, escaping each segment so
// that '?', '#' and '%' in file names are not read as URI syntax.
func fileURI(path string) string {
	segments := strings.Split(filepath.ToSlash(path), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "file:" + strings.Join(segments, "/")
}

// loadSessions reads every usage and inFocus session intersecting [start, end).
func (k *KnowledgeStore) loadSessions(ctx context.Context, start, end time.Time) ([]Session, error) {
	if !start.Before(end) {
		return nil, nil
	}

	db, err := sql.Open("sqlite3", k.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, knowledgeSessionQuery,
		streamAppUsage, streamAppInFocus, toCoreData(start), toCoreData(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge database: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var stream, bundle string
		var startSec, endSec float64
		if err := rows.Scan(&stream, &bundle, &startSec, &endSec); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge row: %w", err)
		}
		kind := StreamUsage
		if stream == streamAppInFocus {
			kind = StreamInFocus
		}
		sessions = append(sessions, Session{
			PackageID: bundle,
			Kind:      kind,
			Start:     fromCoreData(startSec),
			End:       fromCoreData(endSec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read knowledge rows: %w", err)
	}

	k.logger.Debug("loaded knowledge sessions",
		zap.String("db", k.dbPath),
		zap.Int("count", len(sessions)),
		zap.Time("start", start),
		zap.Time("end", end))
	return sessions, nil
}

// toCoreData converts t to seconds since the Core Data reference date.
func toCoreData(t time.Time) float64 {
	return float64(t.UnixMilli())/1000 - coreDataEpochOffset
}

// fromCoreData converts Core Data seconds to a time, at millisecond precision.
func fromCoreData(sec float64) time.Time {
	ms := int64(math.Round((sec + coreDataEpochOffset) * 1000))
	return time.UnixMilli(ms)
}

var _ domain.UsageSource = (*KnowledgeStore)(nil)
