// rooms-lint validates a rooms catalog CSV before an event: it loads
// the file exactly the way the service does and prints what survived,
// so organizers catch bad capacities and duplicate rows at their desk
// instead of at the door.
//
// Usage: rooms-lint [path]  (default: $ROOMS_CSV or rooms.csv)
package main

import (
	"fmt"
	"os"

	"github.com/kinshuk1456/summit-checkin-app/internal/catalog"
	"github.com/kinshuk1456/summit-checkin-app/internal/config"
	"github.com/kinshuk1456/summit-checkin-app/internal/logger"
)

func main() {
	cfg := config.Load()
	path := cfg.Catalog.Path
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	log, err := logger.New("info", "console", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	snap := catalog.Load(path, log)
	if err := snap.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Catalog failed to load: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Catalog OK: %s\n", path)
	fmt.Printf("  entries:  %d\n", snap.Len())
	fmt.Printf("  sessions: %v\n", snap.Sessions())
	for _, e := range snap.Entries() {
		line := fmt.Sprintf("  %-12s %-16s cap=%d", e.RoomCode, e.Session, e.MaxCapacity)
		if len(e.Nearby) > 0 {
			line += fmt.Sprintf("  nearby=%v", e.Nearby)
		}
		fmt.Println(line)
	}
}
