package domain

// RoomSession is one catalog entry: a room offered during a session,
// with its capacity and optional nearby alternates. Identity is the
// (RoomCode, Session) pair. Catalog data is immutable for the lifetime
// of a snapshot; occupancy fields live on occupancy.RoomOccupancy, not
// here.
type RoomSession struct {
	RoomCode    string   // rooms.csv room_code
	Session     string   // rooms.csv session
	MaxCapacity int      // rooms.csv max_capacity, > 0
	Nearby      []string // parsed from the optional pipe-separated nearby column
}
