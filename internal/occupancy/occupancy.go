// Package occupancy derives per-room headcounts from the check-in ledger.
// Nothing here is stored: every view is recomputed from the full ledger
// and the room catalog, so a stale count can only mean a stale read of
// the ledger, never a missed cache invalidation.
package occupancy

import (
	"sort"
	"strings"

	"github.com/kinshuk1456/summit-checkin-app/internal/domain"
)

// Room status labels, in increasing order of pressure.
const (
	StatusOpen       = "OPEN"
	StatusAlmostFull = "ALMOST FULL"
	StatusFull       = "FULL"
)

// AlmostFullRatio is the fraction of max_capacity at which a room is
// flagged ALMOST FULL.
const AlmostFullRatio = 0.9

// RoomOccupancy is one row of the reconciled dashboard: a catalog pair
// with its current attending headcount and derived status.
type RoomOccupancy struct {
	RoomCode    string   `json:"room_code"`
	Session     string   `json:"session"`
	Current     int      `json:"current"`
	MaxCapacity int      `json:"max_capacity"`
	Status      string   `json:"status"`
	Nearby      []string `json:"nearby,omitempty"`
}

// StatusFor classifies a headcount against a capacity. FULL is checked
// before ALMOST FULL so the two cannot disagree when current >= max.
func StatusFor(current, maxCapacity int) string {
	if current >= maxCapacity {
		return StatusFull
	}
	if float64(current) >= AlmostFullRatio*float64(maxCapacity) {
		return StatusAlmostFull
	}
	return StatusOpen
}

// Compute reconciles the ledger against the catalog. Every catalog pair
// appears exactly once, zero-count rooms included; check-ins whose
// (room, session) pair is not in the catalog are dropped. Only attending
// rows count. An empty session keeps all sessions; otherwise rows are
// restricted to that session. Output is sorted by session, then room.
func Compute(events []domain.CheckinEvent, rooms []domain.RoomSession, session string) []RoomOccupancy {
	type pair struct {
		room    string
		session string
	}

	counts := make(map[pair]int)
	for _, ev := range events {
		if ev.Attending != domain.AttendingYes {
			continue
		}
		counts[pair{ev.Room, ev.Session}]++
	}

	out := make([]RoomOccupancy, 0, len(rooms))
	for _, r := range rooms {
		if session != "" && r.Session != session {
			continue
		}
		current := counts[pair{r.RoomCode, r.Session}]
		out = append(out, RoomOccupancy{
			RoomCode:    r.RoomCode,
			Session:     r.Session,
			Current:     current,
			MaxCapacity: r.MaxCapacity,
			Status:      StatusFor(current, r.MaxCapacity),
			Nearby:      r.Nearby,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Session != out[j].Session {
			return out[i].Session < out[j].Session
		}
		return out[i].RoomCode < out[j].RoomCode
	})
	return out
}

// Find returns the reconciled row for one (room, session) pair.
func Find(rows []RoomOccupancy, roomCode, session string) (RoomOccupancy, bool) {
	for _, row := range rows {
		if row.RoomCode == roomCode && row.Session == session {
			return row, true
		}
	}
	return RoomOccupancy{}, false
}

// FilterRooms keeps rows whose room code contains the search text,
// case-insensitively. Empty search keeps everything.
func FilterRooms(rows []RoomOccupancy, search string) []RoomOccupancy {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return rows
	}
	out := make([]RoomOccupancy, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.RoomCode), needle) {
			out = append(out, row)
		}
	}
	return out
}

// NearbyList splits a raw pipe-separated nearby field into clean room
// codes. Blank segments are dropped, order is kept.
func NearbyList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var rooms []string
	for _, part := range strings.Split(raw, "|") {
		if code := strings.TrimSpace(part); code != "" {
			rooms = append(rooms, code)
		}
	}
	return rooms
}
