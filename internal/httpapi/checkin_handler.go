package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kinshuk1456/summit-checkin-app/internal/service"
)

const maxBodyBytes = 1 << 20

// CheckinHandler serves the kiosk and organizer endpoints.
type CheckinHandler struct {
	svc    service.CheckinService
	logger *zap.Logger
}

func NewCheckinHandler(svc service.CheckinService, logger *zap.Logger) *CheckinHandler {
	return &CheckinHandler{svc: svc, logger: logger}
}

func (h *CheckinHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Views reports which screens the client's mode unlocks. Kiosk QR links
// carry ?mode=checkin so a door tablet only ever shows the form; the
// admin screen needs ?key= as well. Mode is case-insensitive and
// defaults to checkin.
func (h *CheckinHandler) Views(w http.ResponseWriter, r *http.Request) {
	mode := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("mode")))
	if mode == "" {
		mode = service.ViewCheckin
	}
	key := r.URL.Query().Get("key")
	views := h.svc.Views(mode, key)
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"mode":  mode,
		"views": views,
	}))
}

// RoomContext returns the state of one room before the visitor submits:
// headcount, status, and nearby alternatives when it is FULL.
func (h *CheckinHandler) RoomContext(w http.ResponseWriter, r *http.Request) {
	room := strings.TrimSpace(r.URL.Query().Get("room"))
	session := strings.TrimSpace(r.URL.Query().Get("session"))

	res, err := h.svc.RoomContext(r.Context(), room, session)
	if err != nil {
		h.writeError(w, "RoomContext", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// Submit records one check-in. Room and session may come in the body or,
// for kiosk links, as query parameters.
func (h *CheckinHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	if req.Room == "" {
		req.Room = strings.TrimSpace(r.URL.Query().Get("room"))
	}
	if req.Session == "" {
		req.Session = strings.TrimSpace(r.URL.Query().Get("session"))
	}

	res, err := h.svc.Submit(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Submit", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// Occupancy serves the dashboard table, optionally narrowed by
// ?session= and a ?search= room-code filter.
func (h *CheckinHandler) Occupancy(w http.ResponseWriter, r *http.Request) {
	session := strings.TrimSpace(r.URL.Query().Get("session"))
	search := r.URL.Query().Get("search")

	res, err := h.svc.Occupancy(r.Context(), session, search)
	if err != nil {
		h.writeError(w, "Occupancy", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *CheckinHandler) Links(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimSpace(r.URL.Query().Get("base"))
	writeJSON(w, http.StatusOK, Ok(h.svc.Links(base)))
}

// CatalogStatus reports what the in-memory room catalog currently
// holds, including the load error when the file was unreadable.
func (h *CheckinHandler) CatalogStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.svc.CatalogStatus()))
}

// Export downloads the raw ledger as an attachment. ?format picks csv
// (the default) or xlsx.
func (h *CheckinHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	stamp := time.Now().UTC().Format("20060102")

	switch format {
	case "", "csv":
		data, err := h.svc.ExportCSV(r.Context())
		if err != nil {
			h.writeError(w, "Export", err)
			return
		}
		writeDownload(w, "text/csv; charset=utf-8", "checkins_"+stamp+".csv", data)
	case "xlsx":
		data, err := h.svc.ExportXLSX(r.Context())
		if err != nil {
			h.writeError(w, "Export", err)
			return
		}
		writeDownload(w,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"checkins_"+stamp+".xlsx", data)
	default:
		writeJSON(w, http.StatusBadRequest, Fail("format must be csv or xlsx"))
	}
}

// AdminReset wipes the ledger. Requires the admin key.
func (h *CheckinHandler) AdminReset(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	if err := h.svc.ResetLedger(r.Context()); err != nil {
		h.writeError(w, "AdminReset", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "reset"}))
}

// AdminReloadCatalog re-reads the rooms file. Requires the admin key.
func (h *CheckinHandler) AdminReloadCatalog(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.svc.ReloadCatalog()))
}

// requireAdmin checks the key from the X-Admin-Key header or, for
// browser use, the ?key= query parameter.
func (h *CheckinHandler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	key := r.Header.Get("X-Admin-Key")
	if key == "" {
		key = r.URL.Query().Get("key")
	}
	if err := h.svc.VerifyAdminKey(key); err != nil {
		h.writeError(w, "requireAdmin", err)
		return false
	}
	return true
}

func (h *CheckinHandler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	case errors.Is(err, service.ErrRoomFull):
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
	case errors.Is(err, service.ErrCatalogUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, Fail(err.Error()))
	case errors.Is(err, service.ErrAdminDisabled):
		writeJSON(w, http.StatusForbidden, Fail(err.Error()))
	case errors.Is(err, service.ErrBadAdminKey):
		writeJSON(w, http.StatusUnauthorized, Fail(err.Error()))
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}
