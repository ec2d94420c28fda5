package domain

import "strings"

// Attending values stored in the ledger. The column carries the literal
// answer the attendee gave, constrained by a CHECK on both SQL backends.
const (
	AttendingYes = "Yes"
	AttendingNo  = "No"
)

// TsLayout is the ledger timestamp format: UTC, second precision,
// trailing Z. Matches what the deployed spreadsheets already contain.
const TsLayout = "2006-01-02T15:04:05Z"

// CheckinEvent is one row of the checkins ledger (checkins table).
// The normalized email is the natural identity key: the ledger keeps at
// most one row per email, holding that attendee's current placement.
type CheckinEvent struct {
	// Surrogate key
	ID int64 `json:"id" db:"id"` // INTEGER, PRIMARY KEY AUTOINCREMENT

	// Submission time
	TsUTC string `json:"ts_utc" db:"ts_utc"` // TEXT, NOT NULL, TsLayout

	// Attendee. Email is stored normalized (NormalizeEmail), so rows
	// compare and move by plain equality.
	Name  string `json:"name" db:"name"`   // TEXT, NOT NULL
	Email string `json:"email" db:"email"` // TEXT, NOT NULL, lowercased+trimmed

	// Answer
	Attending string `json:"attending" db:"attending"` // TEXT, NOT NULL, CHECK ('Yes','No')

	// Placement
	Room    string `json:"room" db:"room"`       // TEXT, NOT NULL, catalog room_code
	Session string `json:"session" db:"session"` // TEXT, NOT NULL, catalog session
}

// NormalizeEmail lowercases and trims an email the way every ledger
// lookup and every spreadsheet match does.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
