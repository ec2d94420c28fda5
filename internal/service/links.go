package service

import (
	"fmt"
	"net/url"
	"strings"
)

// Links returns one kiosk check-in URL per catalog pair, in catalog
// order. Organizers print these as QR codes on the room doors. A
// non-empty base overrides the configured base URL, so links can be
// generated for the public hostname from behind a proxy.
func (s *checkinService) Links(base string) []CheckinLink {
	if base == "" {
		base = s.cfg.Links.BaseURL
	}
	base = strings.TrimRight(base, "/")

	snap := s.rooms.Snapshot()
	links := make([]CheckinLink, 0, snap.Len())
	for _, entry := range snap.Entries() {
		links = append(links, CheckinLink{
			Room:    entry.RoomCode,
			Session: entry.Session,
			URL: fmt.Sprintf("%s/?room=%s&session=%s&mode=%s",
				base,
				url.QueryEscape(entry.RoomCode),
				url.QueryEscape(entry.Session),
				ViewCheckin,
			),
		})
	}
	return links
}
