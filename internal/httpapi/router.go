package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router wraps the standard library http.ServeMux (no third-party
// router needed for a route table this small).
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func requireMethod(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterCheckinRoutes binds the kiosk, dashboard and admin endpoints.
func (r *Router) RegisterCheckinRoutes(h *CheckinHandler) {
	r.Handle("/healthz", requireMethod(http.MethodGet, h.Healthz))

	// kiosk
	r.Handle("/checkin/api/v1/views", requireMethod(http.MethodGet, h.Views))
	r.Handle("/checkin/api/v1/checkin/context", requireMethod(http.MethodGet, h.RoomContext))
	r.Handle("/checkin/api/v1/checkin", requireMethod(http.MethodPost, h.Submit))

	// dashboard
	r.Handle("/checkin/api/v1/dashboard/occupancy", requireMethod(http.MethodGet, h.Occupancy))
	r.Handle("/checkin/api/v1/dashboard/export", requireMethod(http.MethodGet, h.Export))
	r.Handle("/checkin/api/v1/links", requireMethod(http.MethodGet, h.Links))
	r.Handle("/checkin/api/v1/catalog", requireMethod(http.MethodGet, h.CatalogStatus))

	// admin (key-gated)
	r.Handle("/checkin/api/v1/admin/reset", requireMethod(http.MethodPost, h.AdminReset))
	r.Handle("/checkin/api/v1/admin/catalog/reload", requireMethod(http.MethodPost, h.AdminReloadCatalog))
}
