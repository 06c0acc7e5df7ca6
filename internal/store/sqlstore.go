package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"chamfer/internal/artifact"
	"chamfer/internal/logging"
)

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .chamfer) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	// Serialized writes keep single-record inserts atomic under many
	// concurrent short-lived writers.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		if _, err := s.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersionV1); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		v = schemaVersionV1
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", v); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	if v != schemaVersionV1 {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the underlying database.
func (s *SqlStore) Close() error { return s.db.Close() }

func (s *SqlStore) Write(req WriteRequest) (*artifact.Artifact, error) {
	now := nowUTC()
	id := req.ID
	if id == "" {
		id = NewArtifactID(now)
	}
	a := &artifact.Artifact{
		ID:          id,
		Kind:        req.Kind,
		Stage:       req.Stage,
		Status:      req.Status,
		CreatedAt:   now,
		IndexMeta:   cloneStringMap(req.IndexMeta),
		Payload:     req.Payload,
		RequestHash: req.RequestHash,
		OutputHash:  req.OutputHash,
	}

	indexJSON, err := json.Marshal(a.IndexMeta)
	if err != nil {
		return nil, fmt.Errorf("marshal index_meta: %w", err)
	}
	payloadJSON, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	im := a.IndexMeta
	_, err = s.db.Exec(`INSERT INTO artifacts
		(id, kind, stage, status, created_at,
		 tool_id, material_id, session_id,
		 parent_spec_id, parent_plan_id, parent_decision_id, parent_execution_id,
		 index_meta, payload, request_hash, output_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Kind, string(a.Stage), string(a.Status), a.CreatedAt.Format(timeLayout),
		im[artifact.MetaToolID], im[artifact.MetaMaterialID], im[artifact.MetaSessionID],
		im[artifact.MetaParentSpec], im[artifact.MetaParentPlan], im[artifact.MetaParentDecide], im[artifact.MetaParentExec],
		string(indexJSON), string(payloadJSON), a.RequestHash, a.OutputHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}
	return a, nil
}

func (s *SqlStore) Get(id string) (*artifact.Artifact, error) {
	row := s.db.QueryRow(selectColumns+" FROM artifacts WHERE id = ?", id)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", id, err)
	}
	return a, nil
}

func (s *SqlStore) Query(f Filter, cursor string, limit int) ([]*artifact.Artifact, string, error) {
	limit = ClampLimit(limit)

	where := []string{"1=1"}
	args := []any{}
	add := func(col, val string) {
		if val != "" {
			where = append(where, col+" = ?")
			args = append(args, val)
		}
	}
	add("kind", f.Kind)
	add("status", f.Status)
	add("tool_id", f.ToolID)
	add("material_id", f.MaterialID)
	add("session_id", f.SessionID)
	add("parent_spec_id", f.ParentSpecID)
	add("parent_plan_id", f.ParentPlanID)
	add("parent_decision_id", f.ParentDecisionID)
	add("parent_execution_id", f.ParentExecutionID)
	if cursor != "" {
		// Keyset pagination: ids are time-prefixed, so "id < cursor" walks
		// strictly backwards in creation order. Rows appended after the
		// cursor was issued sort above it and never shift an open scan.
		where = append(where, "id < ?")
		args = append(args, cursor)
	}
	args = append(args, limit+1)

	q := selectColumns + " FROM artifacts WHERE " + strings.Join(where, " AND ") +
		" ORDER BY id DESC LIMIT ?"
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, "", fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	log := logging.New("store")
	var (
		items   []*artifact.Artifact
		lastID  string
		fetched int
		more    bool
	)
	for rows.Next() {
		fetched++
		if fetched > limit {
			// The extra row only signals that rows exist past this page.
			more = true
			break
		}
		a, err := scanArtifact(rows)
		if a != nil && a.ID != "" {
			lastID = a.ID
		}
		if err != nil {
			// One corrupt row must not make the whole listing unusable. It
			// still advances the cursor so older rows stay reachable.
			log.Warn("skipping malformed artifact row", "error", err)
			continue
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("scan artifacts: %w", err)
	}

	next := ""
	if more {
		next = lastID
	}
	return items, next, nil
}

func (s *SqlStore) PatchMeta(id string, updates map[string]any) (*artifact.Artifact, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin patch tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var metaJSON sql.NullString
	err = tx.QueryRow("SELECT meta FROM artifacts WHERE id = ?", id).Scan(&metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read meta for %s: %w", id, err)
	}

	meta := map[string]any{}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
			return nil, fmt.Errorf("unmarshal meta for %s: %w", id, err)
		}
	}
	for k, v := range updates {
		meta[k] = v
	}
	merged, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	if _, err := tx.Exec("UPDATE artifacts SET meta = ? WHERE id = ?", string(merged), id); err != nil {
		return nil, fmt.Errorf("patch meta for %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit patch tx: %w", err)
	}
	return s.Get(id)
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const selectColumns = `SELECT id, kind, stage, status, created_at,
	index_meta, payload, request_hash, output_hash, meta`

type rowScanner interface{ Scan(dest ...any) error }

// scanArtifact decodes one artifact row. On a decode failure past the raw
// column scan the returned artifact is non-nil and still carries the row id,
// so callers paginating over corrupt rows can keep their cursor moving.
func scanArtifact(row rowScanner) (*artifact.Artifact, error) {
	var (
		a                        artifact.Artifact
		createdAt                string
		indexJSON, payloadJSON   string
		reqHash, outHash, metaJS sql.NullString
		stage, status            string
	)
	if err := row.Scan(&a.ID, &a.Kind, &stage, &status, &createdAt,
		&indexJSON, &payloadJSON, &reqHash, &outHash, &metaJS); err != nil {
		return nil, err
	}
	a.Stage = artifact.Stage(stage)
	a.Status = artifact.Status(status)
	t, err := parseTime(createdAt)
	if err != nil {
		return &a, fmt.Errorf("created_at %q: %w", createdAt, err)
	}
	a.CreatedAt = t
	if err := json.Unmarshal([]byte(indexJSON), &a.IndexMeta); err != nil {
		return &a, fmt.Errorf("index_meta: %w", err)
	}
	if err := json.Unmarshal([]byte(payloadJSON), &a.Payload); err != nil {
		return &a, fmt.Errorf("payload: %w", err)
	}
	a.RequestHash = nullStr(reqHash)
	a.OutputHash = nullStr(outHash)
	if metaJS.Valid && metaJS.String != "" {
		if err := json.Unmarshal([]byte(metaJS.String), &a.Meta); err != nil {
			return &a, fmt.Errorf("meta: %w", err)
		}
	}
	return &a, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
