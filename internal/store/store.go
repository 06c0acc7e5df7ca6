// Package store is the append-only persistence layer for pipeline artifacts.
// One row per artifact, written once; the only permitted mutation is the
// free-form meta patch. Implementations: SQLite (SqlStore) and in-memory
// (MemStore) for tests.
package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"chamfer/internal/artifact"
)

// DefaultDBPath is the default relative path for the SQLite DB.
// Resolve against cwd; Open() creates the parent dir (e.g. .chamfer).
const DefaultDBPath = ".chamfer/chamfer.db"

// ErrNotFound is returned when no artifact exists for an id.
var ErrNotFound = errors.New("artifact not found")

// Limit clamp for Query: callers can never request fewer than 1 or more
// than 200 items per page.
const (
	MinLimit     = 1
	MaxLimit     = 200
	DefaultLimit = 50
)

// WriteRequest carries everything needed to persist a new artifact.
// CreatedAt is always assigned by the store. ID normally is too; callers
// that must hand out an artifact's id before its record lands (EXECUTE
// children reference a parent summary that is written last) pre-allocate
// one with NewArtifactID and set it here.
type WriteRequest struct {
	ID          string
	Kind        string
	Stage       artifact.Stage
	Status      artifact.Status
	IndexMeta   map[string]string
	Payload     map[string]any
	RequestHash string
	OutputHash  string
}

// Filter selects artifacts in Query. Zero-value fields are ignored.
type Filter struct {
	Kind              string
	Status            string
	ToolID            string
	MaterialID        string
	SessionID         string
	ParentSpecID      string
	ParentPlanID      string
	ParentDecisionID  string
	ParentExecutionID string
}

// Store is the persistence facade. Pipeline and transport code use only this
// interface; implementation is SQLite or in-memory.
type Store interface {
	// Write persists a new artifact, assigning a fresh id and created_at.
	// Safe under concurrent calls: ids never collide and records never
	// interleave.
	Write(req WriteRequest) (*artifact.Artifact, error)
	// Get returns the artifact by id, or ErrNotFound.
	Get(id string) (*artifact.Artifact, error)
	// Query returns artifacts matching f in reverse-chronological id order.
	// cursor is the last id of the previous page ("" for the first page);
	// limit is clamped to [MinLimit, MaxLimit]. Returns the page and the
	// cursor for the next one ("" when exhausted).
	Query(f Filter, cursor string, limit int) ([]*artifact.Artifact, string, error)
	// PatchMeta merges updates into the artifact's meta map. It never
	// touches status, payload, hashes or created_at.
	PatchMeta(id string, updates map[string]any) (*artifact.Artifact, error)
	Close() error
}

// ClampLimit normalizes a caller-supplied page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// NewArtifactID returns a fresh artifact id: a time-ordered base36 prefix
// plus a random uuid suffix. Lexicographic id order matches creation order
// (the prefix is fixed-width), and the suffix keeps ids collision-free
// across processes sharing one store.
func NewArtifactID(t time.Time) string {
	prefix := strconv.FormatInt(t.UTC().UnixNano(), 36)
	// UnixNano for any date this code will see fits in 13 base36 digits.
	if pad := 13 - len(prefix); pad > 0 {
		prefix = strings.Repeat("0", pad) + prefix
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("a-%s-%s", prefix, suffix)
}

func nowUTC() time.Time { return time.Now().UTC() }

// cloneMeta deep-ish copies a string map (values are scalars).
func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
