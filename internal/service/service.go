// Package service wires validation, the ledger, the room catalog and
// the mirror into the operations the HTTP layer exposes.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kinshuk1456/summit-checkin-app/internal/catalog"
	"github.com/kinshuk1456/summit-checkin-app/internal/config"
	"github.com/kinshuk1456/summit-checkin-app/internal/domain"
	"github.com/kinshuk1456/summit-checkin-app/internal/mirror"
	"github.com/kinshuk1456/summit-checkin-app/internal/occupancy"
	"github.com/kinshuk1456/summit-checkin-app/internal/repository"
)

// Classified errors, so the HTTP layer can pick a status code without
// string matching.
var (
	ErrValidation         = errors.New("invalid check-in")
	ErrRoomFull           = errors.New("room full")
	ErrCatalogUnavailable = errors.New("room catalog unavailable")
	ErrAdminDisabled      = errors.New("admin access is not configured")
	ErrBadAdminKey        = errors.New("wrong admin key")
)

// View names, in the order a kiosk shows them.
const (
	ViewCheckin   = "checkin"
	ViewDashboard = "dashboard"
	ViewLinks     = "links"
	ViewAdmin     = "admin"
)

type SubmitRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Attending string `json:"attending"`
	Room      string `json:"room"`
	Session   string `json:"session"`
}

type SubmitResult struct {
	Moved        bool                    `json:"moved"`
	MirrorQueued bool                    `json:"mirror_queued"`
	Event        domain.CheckinEvent     `json:"event"`
	Room         occupancy.RoomOccupancy `json:"room"`
}

// RoomContextResult is what a kiosk shows before the form: whether the
// scanned pair exists, how full the room is, and where to go instead if
// it is FULL. CatalogError is set when the rooms file is unreadable, in
// which case no pair is valid and the form stays disabled.
type RoomContextResult struct {
	Valid        bool                     `json:"valid"`
	Room         *occupancy.RoomOccupancy `json:"room,omitempty"`
	CatalogError string                   `json:"catalog_error,omitempty"`
}

type OccupancyResult struct {
	Rows           []occupancy.RoomOccupancy `json:"rows"`
	Sessions       []string                  `json:"sessions"`
	TotalAttending int                       `json:"total_attending"`
	CatalogError   string                    `json:"catalog_error,omitempty"`
}

type CheckinLink struct {
	Room    string `json:"room"`
	Session string `json:"session"`
	URL     string `json:"url"`
}

type CatalogStatus struct {
	Entries  int      `json:"entries"`
	Sessions []string `json:"sessions"`
	LoadedAt string   `json:"loaded_at"`
	Error    string   `json:"error,omitempty"`
}

// CheckinService is the application surface behind the HTTP handlers.
type CheckinService interface {
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)
	RoomContext(ctx context.Context, roomCode, session string) (*RoomContextResult, error)
	Occupancy(ctx context.Context, session, search string) (*OccupancyResult, error)
	Links(base string) []CheckinLink
	Views(mode, key string) []string
	ExportCSV(ctx context.Context) ([]byte, error)
	ExportXLSX(ctx context.Context) ([]byte, error)
	VerifyAdminKey(key string) error
	ResetLedger(ctx context.Context) error
	CatalogStatus() *CatalogStatus
	ReloadCatalog() *CatalogStatus
}

type checkinService struct {
	repo   repository.CheckinsRepo
	rooms  *catalog.Cache
	mirror *mirror.Worker
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

var _ CheckinService = (*checkinService)(nil)

// NewCheckinService builds the service. mirrorWorker may be nil when
// mirroring is disabled.
func NewCheckinService(
	repo repository.CheckinsRepo,
	rooms *catalog.Cache,
	mirrorWorker *mirror.Worker,
	cfg *config.Config,
	logger *zap.Logger,
) CheckinService {
	return &checkinService{
		repo:   repo,
		rooms:  rooms,
		mirror: mirrorWorker,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *checkinService) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	name := strings.TrimSpace(req.Name)
	email := domain.NormalizeEmail(req.Email)

	if req.Attending != domain.AttendingYes && req.Attending != domain.AttendingNo {
		return nil, fmt.Errorf("%w: attending must be Yes or No", ErrValidation)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := validEmail(email, s.cfg.Checkin.EmailDomain); err != nil {
		return nil, err
	}
	if req.Room == "" || req.Session == "" {
		return nil, fmt.Errorf("%w: room and session are required", ErrValidation)
	}

	snap := s.rooms.Snapshot()
	if err := snap.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	if _, ok := snap.Find(req.Room, req.Session); !ok {
		return nil, fmt.Errorf("%w: unknown room %q for session %q", ErrValidation, req.Room, req.Session)
	}

	// A full room takes no more Yes check-ins. The submission is turned
	// away before it touches the ledger, pointing at nearby rooms when
	// the catalog lists any. Switching to No is still allowed.
	if req.Attending == domain.AttendingYes {
		pre, err := s.roomState(ctx, snap, req.Room, req.Session)
		if err != nil {
			return nil, err
		}
		if pre.Status == occupancy.StatusFull {
			if len(pre.Nearby) > 0 {
				return nil, fmt.Errorf("%w: %s has no seats left for %s, nearby rooms: %s",
					ErrRoomFull, pre.RoomCode, pre.Session, strings.Join(pre.Nearby, ", "))
			}
			return nil, fmt.Errorf("%w: %s has no seats left for %s", ErrRoomFull, pre.RoomCode, pre.Session)
		}
	}

	ev := domain.CheckinEvent{
		TsUTC:     s.now().UTC().Format(domain.TsLayout),
		Name:      name,
		Email:     email,
		Attending: req.Attending,
		Room:      req.Room,
		Session:   req.Session,
	}

	moved, err := s.repo.Record(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("record checkin: %w", err)
	}

	queued := false
	if s.mirror != nil {
		queued = s.mirror.Enqueue(mirror.RowFromEvent(ev))
	}

	s.logger.Info("checkin recorded",
		zap.String("email", ev.Email),
		zap.String("room", ev.Room),
		zap.String("session", ev.Session),
		zap.String("attending", ev.Attending),
		zap.Bool("moved", moved),
	)

	roomState, err := s.roomState(ctx, snap, req.Room, req.Session)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{
		Moved:        moved,
		MirrorQueued: queued,
		Event:        ev,
		Room:         roomState,
	}, nil
}

// RoomContext reports the state of one pair without failing on catalog
// trouble: a kiosk pointed at a stale QR code or a broken rooms file
// still gets an answer it can render.
func (s *checkinService) RoomContext(ctx context.Context, roomCode, session string) (*RoomContextResult, error) {
	if roomCode == "" || session == "" {
		return nil, fmt.Errorf("%w: room and session are required", ErrValidation)
	}

	snap := s.rooms.Snapshot()
	if err := snap.Err(); err != nil {
		return &RoomContextResult{CatalogError: err.Error()}, nil
	}
	if _, ok := snap.Find(roomCode, session); !ok {
		return &RoomContextResult{}, nil
	}

	roomState, err := s.roomState(ctx, snap, roomCode, session)
	if err != nil {
		return nil, err
	}
	return &RoomContextResult{Valid: true, Room: &roomState}, nil
}

// Occupancy builds the dashboard table. A broken rooms file is not an
// error here: the table comes back empty with the problem reported
// inline, so the dashboard keeps rendering while an organizer fixes it.
func (s *checkinService) Occupancy(ctx context.Context, session, search string) (*OccupancyResult, error) {
	snap := s.rooms.Snapshot()

	events, err := s.repo.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	total := 0
	for _, ev := range events {
		if ev.Attending == domain.AttendingYes {
			total++
		}
	}

	rows := occupancy.Compute(events, snap.Entries(), session)
	res := &OccupancyResult{
		Rows:           occupancy.FilterRooms(rows, search),
		Sessions:       snap.Sessions(),
		TotalAttending: total,
	}
	if err := snap.Err(); err != nil {
		res.CatalogError = err.Error()
	}
	return res, nil
}

// Views reports which screens a client in the given mode gets.
// Attendees following a QR link see only the check-in form. Organizer
// devices opened in dashboard mode also get the dashboard and the link
// sheet, and the admin screen unlocks only for admin mode with a valid
// key. Anything else, including admin mode with a bad key, falls back
// to the check-in form alone.
func (s *checkinService) Views(mode, key string) []string {
	switch mode {
	case ViewDashboard:
		return []string{ViewCheckin, ViewDashboard, ViewLinks}
	case ViewAdmin:
		if s.VerifyAdminKey(key) == nil {
			return []string{ViewCheckin, ViewDashboard, ViewLinks, ViewAdmin}
		}
		return []string{ViewCheckin}
	default:
		return []string{ViewCheckin}
	}
}

func (s *checkinService) VerifyAdminKey(key string) error {
	if s.cfg.Admin.Key == "" {
		return ErrAdminDisabled
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.Admin.Key)) != 1 {
		return ErrBadAdminKey
	}
	return nil
}

func (s *checkinService) ResetLedger(ctx context.Context) error {
	if err := s.repo.Reset(ctx); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}
	s.logger.Warn("check-in ledger reset")
	return nil
}

// CatalogStatus describes the catalog currently being served without
// touching the file on disk.
func (s *checkinService) CatalogStatus() *CatalogStatus {
	return catalogStatus(s.rooms.Snapshot())
}

func (s *checkinService) ReloadCatalog() *CatalogStatus {
	return catalogStatus(s.rooms.Reload())
}

func catalogStatus(snap *catalog.Snapshot) *CatalogStatus {
	st := &CatalogStatus{
		Entries:  snap.Len(),
		Sessions: snap.Sessions(),
		LoadedAt: snap.LoadedAt().Format(domain.TsLayout),
	}
	if err := snap.Err(); err != nil {
		st.Error = err.Error()
	}
	return st
}

// roomState reconciles the ledger just for one pair's current view.
func (s *checkinService) roomState(ctx context.Context, snap *catalog.Snapshot, roomCode, session string) (occupancy.RoomOccupancy, error) {
	events, err := s.repo.ReadAll(ctx)
	if err != nil {
		return occupancy.RoomOccupancy{}, fmt.Errorf("read ledger: %w", err)
	}
	rows := occupancy.Compute(events, snap.Entries(), session)
	state, ok := occupancy.Find(rows, roomCode, session)
	if !ok {
		return occupancy.RoomOccupancy{}, fmt.Errorf("%w: unknown room %q for session %q", ErrValidation, roomCode, session)
	}
	return state, nil
}

// validEmail applies the registration rules: no spaces, exactly the
// shape of an address, and when an event domain is configured the
// address must end with it and leave room for a real local part.
func validEmail(email, eventDomain string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if strings.ContainsAny(email, " \t") {
		return fmt.Errorf("%w: email must not contain spaces", ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email must contain @", ErrValidation)
	}
	if eventDomain == "" {
		return nil
	}
	suffix := "@" + strings.TrimPrefix(eventDomain, "@")
	if !strings.HasSuffix(strings.ToLower(email), strings.ToLower(suffix)) {
		return fmt.Errorf("%w: email must end with %s", ErrValidation, suffix)
	}
	if len(email) < len(suffix)+2 {
		return fmt.Errorf("%w: email is too short", ErrValidation)
	}
	return nil
}
