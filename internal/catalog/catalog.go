// Package catalog loads the static room/session reference table from a
// CSV file and caches it as an immutable snapshot. The cache is explicit:
// it is loaded once at startup and replaced only through Reload (the
// admin's invalidation trigger), never behind the caller's back.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kinshuk1456/summit-checkin-app/internal/domain"
	"github.com/kinshuk1456/summit-checkin-app/internal/occupancy"

	"go.uber.org/zap"
)

// Required CSV columns. The nearby column is optional.
const (
	colRoomCode    = "room_code"
	colSession     = "session"
	colMaxCapacity = "max_capacity"
	colNearby      = "nearby"
)

// Snapshot is one immutable load of the room catalog. A snapshot with a
// non-nil Err carries no entries; the API surfaces the error inline and
// submissions stay disabled until an admin fixes the file and reloads.
type Snapshot struct {
	entries  []domain.RoomSession
	err      error
	loadedAt time.Time
}

// Load reads the catalog CSV at path. A missing or unreadable file is a
// non-fatal condition: the returned snapshot is empty and reports the
// problem through Err. Malformed rows are skipped with a warning so one
// bad line cannot take the whole event offline.
func Load(path string, logger *zap.Logger) *Snapshot {
	snap := &Snapshot{loadedAt: time.Now().UTC()}

	f, err := os.Open(path)
	if err != nil {
		snap.err = fmt.Errorf("rooms file %s: %w", path, err)
		return snap
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		snap.err = fmt.Errorf("rooms file %s: read header: %w", path, err)
		return snap
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colRoomCode, colSession, colMaxCapacity} {
		if _, ok := idx[required]; !ok {
			snap.err = fmt.Errorf("rooms file %s: missing column %q", path, required)
			return snap
		}
	}
	nearbyIdx, hasNearby := idx[colNearby]

	seen := make(map[[2]string]bool)
	line := 1
	for {
		line++
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn("skipping malformed catalog row",
				zap.String("path", path),
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}

		field := func(i int) string {
			if i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		roomCode := field(idx[colRoomCode])
		session := field(idx[colSession])
		if roomCode == "" || session == "" {
			logger.Warn("skipping catalog row without room_code/session",
				zap.String("path", path),
				zap.Int("line", line),
			)
			continue
		}

		capacity, err := strconv.Atoi(field(idx[colMaxCapacity]))
		if err != nil || capacity <= 0 {
			logger.Warn("skipping catalog row with bad max_capacity",
				zap.String("room_code", roomCode),
				zap.String("session", session),
				zap.Int("line", line),
			)
			continue
		}

		key := [2]string{roomCode, session}
		if seen[key] {
			logger.Warn("duplicate catalog entry, first wins",
				zap.String("room_code", roomCode),
				zap.String("session", session),
				zap.Int("line", line),
			)
			continue
		}
		seen[key] = true

		var nearby []string
		if hasNearby {
			nearby = occupancy.NearbyList(field(nearbyIdx))
		}

		snap.entries = append(snap.entries, domain.RoomSession{
			RoomCode:    roomCode,
			Session:     session,
			MaxCapacity: capacity,
			Nearby:      nearby,
		})
	}

	return snap
}

// Entries returns the catalog rows in file order.
func (s *Snapshot) Entries() []domain.RoomSession {
	return s.entries
}

// Find looks up one (room_code, session) pair.
func (s *Snapshot) Find(roomCode, session string) (domain.RoomSession, bool) {
	for _, e := range s.entries {
		if e.RoomCode == roomCode && e.Session == session {
			return e, true
		}
	}
	return domain.RoomSession{}, false
}

// Sessions returns the distinct session labels, sorted ascending. The
// dashboard uses them for its filter choices.
func (s *Snapshot) Sessions() []string {
	seen := make(map[string]bool)
	var sessions []string
	for _, e := range s.entries {
		if !seen[e.Session] {
			seen[e.Session] = true
			sessions = append(sessions, e.Session)
		}
	}
	sort.Strings(sessions)
	return sessions
}

// Len reports the number of catalog entries.
func (s *Snapshot) Len() int { return len(s.entries) }

// Err reports why the snapshot is empty, if loading failed.
func (s *Snapshot) Err() error { return s.err }

// LoadedAt reports when this snapshot was read from disk.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Cache holds the current catalog snapshot for the process. Readers get
// whatever snapshot is current; only Reload swaps it.
type Cache struct {
	mu     sync.RWMutex
	path   string
	snap   *Snapshot
	logger *zap.Logger
}

// NewCache loads the catalog once and keeps it until Reload.
func NewCache(path string, logger *zap.Logger) *Cache {
	c := &Cache{path: path, logger: logger}
	c.snap = Load(path, logger)
	if err := c.snap.Err(); err != nil {
		logger.Warn("room catalog unavailable, submissions disabled until reload",
			zap.Error(err),
		)
	} else {
		logger.Info("room catalog loaded",
			zap.String("path", path),
			zap.Int("entries", c.snap.Len()),
		)
	}
	return c
}

// Snapshot returns the current catalog snapshot.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Reload re-reads the catalog file and swaps the snapshot in, returning
// the fresh one. A failed load still swaps: the admin asked for the file
// on disk to be authoritative, errors included.
func (c *Cache) Reload() *Snapshot {
	fresh := Load(c.path, c.logger)
	c.mu.Lock()
	c.snap = fresh
	c.mu.Unlock()
	if err := fresh.Err(); err != nil {
		c.logger.Warn("room catalog reload failed", zap.Error(err))
	} else {
		c.logger.Info("room catalog reloaded", zap.Int("entries", fresh.Len()))
	}
	return fresh
}
