package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kinshuk1456/summit-checkin-app/internal/catalog"
	"github.com/kinshuk1456/summit-checkin-app/internal/config"
	"github.com/kinshuk1456/summit-checkin-app/internal/repository"
	"github.com/kinshuk1456/summit-checkin-app/internal/service"
)

const apiRoomsCSV = `room_code,session,max_capacity,nearby
A101,Morning,2,A102
A102,Morning,30,
B201,Afternoon,40,
`

type apiFixture struct {
	router *Router
	path   string
}

func newAPIFixture(t *testing.T, mutate func(cfg *config.Config)) *apiFixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rooms.csv")
	require.NoError(t, os.WriteFile(path, []byte(apiRoomsCSV), 0o644))

	cfg := &config.Config{}
	cfg.Catalog.Path = path
	cfg.Links.BaseURL = "https://summit.example.edu"
	if mutate != nil {
		mutate(cfg)
	}

	logger := zap.NewNop()
	svc := service.NewCheckinService(
		repository.NewMemoryCheckins(),
		catalog.NewCache(path, logger),
		nil, cfg, logger,
	)

	router := NewRouter(logger)
	router.RegisterCheckinRoutes(NewCheckinHandler(svc, logger))
	return &apiFixture{router: router, path: path}
}

func (fx *apiFixture) do(t *testing.T, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, result any) (code int, message string) {
	t.Helper()
	var envelope struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	if result != nil && len(envelope.Result) > 0 && string(envelope.Result) != "null" {
		require.NoError(t, json.Unmarshal(envelope.Result, result))
	}
	return envelope.Code, envelope.Message
}

func submitBody(email, room, session string) string {
	b, _ := json.Marshal(map[string]string{
		"name":      "Ada Lovelace",
		"email":     email,
		"attending": "Yes",
		"room":      room,
		"session":   session,
	})
	return string(b)
}

func TestHealthz(t *testing.T) {
	fx := newAPIFixture(t, nil)
	rec := fx.do(t, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSubmit(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodPost, "/checkin/api/v1/checkin",
		submitBody("Ada@UCR.edu", "A101", "Morning"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result service.SubmitResult
	code, _ := decodeEnvelope(t, rec, &result)
	assert.Equal(t, ResultSuccess, code)
	assert.Equal(t, "ada@ucr.edu", result.Event.Email)
	assert.Equal(t, 1, result.Room.Current)
	assert.False(t, result.Moved)
}

func TestSubmit_RoomFromQueryParams(t *testing.T) {
	fx := newAPIFixture(t, nil)

	body := `{"name":"Ada Lovelace","email":"ada@ucr.edu","attending":"Yes"}`
	rec := fx.do(t, http.MethodPost,
		"/checkin/api/v1/checkin?room=A101&session=Morning", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result service.SubmitResult
	code, _ := decodeEnvelope(t, rec, &result)
	assert.Equal(t, ResultSuccess, code)
	assert.Equal(t, "A101", result.Event.Room)
	assert.Equal(t, "Morning", result.Event.Session)
}

func TestSubmit_ValidationFailure(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodPost, "/checkin/api/v1/checkin",
		submitBody("not-an-email", "A101", "Morning"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	code, message := decodeEnvelope(t, rec, nil)
	assert.Equal(t, ResultError, code)
	assert.Contains(t, message, "@")
}

func TestSubmit_FullRoomConflict(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodPost, "/checkin/api/v1/checkin",
		submitBody("a@ucr.edu", "A101", "Morning"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = fx.do(t, http.MethodPost, "/checkin/api/v1/checkin",
		submitBody("b@ucr.edu", "A101", "Morning"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodPost, "/checkin/api/v1/checkin",
		submitBody("c@ucr.edu", "A101", "Morning"), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	code, message := decodeEnvelope(t, rec, nil)
	assert.Equal(t, ResultError, code)
	assert.Contains(t, message, "A102")
}

func TestSubmit_MalformedJSON(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodPost, "/checkin/api/v1/checkin", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_MethodNotAllowed(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodGet, "/checkin/api/v1/checkin", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRoomContext(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodGet,
		"/checkin/api/v1/checkin/context?room=A101&session=Morning", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result service.RoomContextResult
	code, _ := decodeEnvelope(t, rec, &result)
	assert.Equal(t, ResultSuccess, code)
	assert.True(t, result.Valid)
	assert.Equal(t, "A101", result.Room.RoomCode)
	assert.Equal(t, 2, result.Room.MaxCapacity)
	assert.Equal(t, 0, result.Room.Current)
}

func TestRoomContext_UnknownPair(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodGet,
		"/checkin/api/v1/checkin/context?room=Z999&session=Morning", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result service.RoomContextResult
	decodeEnvelope(t, rec, &result)
	assert.False(t, result.Valid, "a stale QR code is an answer, not an error")
	assert.Nil(t, result.Room)
}

func TestRoomContext_MissingParams(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodGet, "/checkin/api/v1/checkin/context?room=A101", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOccupancy(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodPost, "/checkin/api/v1/checkin",
		submitBody("ada@ucr.edu", "A101", "Morning"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/checkin/api/v1/dashboard/occupancy", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result service.OccupancyResult
	code, _ := decodeEnvelope(t, rec, &result)
	assert.Equal(t, ResultSuccess, code)
	assert.Len(t, result.Rows, 3)
	assert.Equal(t, 1, result.TotalAttending)
	assert.Equal(t, []string{"Afternoon", "Morning"}, result.Sessions)

	rec = fx.do(t, http.MethodGet, "/checkin/api/v1/dashboard/occupancy?session=Afternoon", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result = service.OccupancyResult{}
	decodeEnvelope(t, rec, &result)
	assert.Len(t, result.Rows, 1)

	rec = fx.do(t, http.MethodGet, "/checkin/api/v1/dashboard/occupancy?search=a1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result = service.OccupancyResult{}
	decodeEnvelope(t, rec, &result)
	assert.Len(t, result.Rows, 2)
}

func TestViews(t *testing.T) {
	fx := newAPIFixture(t, func(cfg *config.Config) { cfg.Admin.Key = "sesame" })

	var result struct {
		Mode  string   `json:"mode"`
		Views []string `json:"views"`
	}

	rec := fx.do(t, http.MethodGet, "/checkin/api/v1/views?mode=checkin", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeEnvelope(t, rec, &result)
	assert.Equal(t, []string{"checkin"}, result.Views)

	rec = fx.do(t, http.MethodGet, "/checkin/api/v1/views", "", nil)
	decodeEnvelope(t, rec, &result)
	assert.Equal(t, "checkin", result.Mode, "no mode defaults to the kiosk view")
	assert.Equal(t, []string{"checkin"}, result.Views)

	rec = fx.do(t, http.MethodGet, "/checkin/api/v1/views?mode=DASHBOARD", "", nil)
	decodeEnvelope(t, rec, &result)
	assert.Equal(t, "dashboard", result.Mode, "mode is case-insensitive")
	assert.Equal(t, []string{"checkin", "dashboard", "links"}, result.Views)

	rec = fx.do(t, http.MethodGet, "/checkin/api/v1/views?mode=admin&key=sesame", "", nil)
	decodeEnvelope(t, rec, &result)
	assert.Equal(t, []string{"checkin", "dashboard", "links", "admin"}, result.Views)

	rec = fx.do(t, http.MethodGet, "/checkin/api/v1/views?mode=admin&key=wrong", "", nil)
	decodeEnvelope(t, rec, &result)
	assert.Equal(t, []string{"checkin"}, result.Views)
}

func TestLinks(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodGet, "/checkin/api/v1/links", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result []service.CheckinLink
	decodeEnvelope(t, rec, &result)
	require.Len(t, result, 3)
	assert.Equal(t, "https://summit.example.edu/?room=A101&session=Morning&mode=checkin", result[0].URL)
}

func TestExportCSV(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodPost, "/checkin/api/v1/checkin",
		submitBody("ada@ucr.edu", "A101", "Morning"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/checkin/api/v1/dashboard/export", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,ts_utc,name,email,attending,room,session\n"))
	assert.Contains(t, rec.Body.String(), "ada@ucr.edu")
}

func TestExportXLSX(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodGet, "/checkin/api/v1/dashboard/export?format=xlsx", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestExport_BadFormat(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodGet, "/checkin/api/v1/dashboard/export?format=pdf", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminReset_DisabledWithoutKey(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodPost, "/checkin/api/v1/admin/reset", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminReset(t *testing.T) {
	fx := newAPIFixture(t, func(cfg *config.Config) { cfg.Admin.Key = "sesame" })

	rec := fx.do(t, http.MethodPost, "/checkin/api/v1/checkin",
		submitBody("ada@ucr.edu", "A101", "Morning"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodPost, "/checkin/api/v1/admin/reset", "",
		map[string]string{"X-Admin-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = fx.do(t, http.MethodPost, "/checkin/api/v1/admin/reset", "",
		map[string]string{"X-Admin-Key": "sesame"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodGet, "/checkin/api/v1/dashboard/occupancy", "", nil)
	var result service.OccupancyResult
	decodeEnvelope(t, rec, &result)
	assert.Equal(t, 0, result.TotalAttending)
}

func TestAdminReset_KeyFromQuery(t *testing.T) {
	fx := newAPIFixture(t, func(cfg *config.Config) { cfg.Admin.Key = "sesame" })

	rec := fx.do(t, http.MethodPost, "/checkin/api/v1/admin/reset?key=sesame", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminReloadCatalog(t *testing.T) {
	fx := newAPIFixture(t, func(cfg *config.Config) { cfg.Admin.Key = "sesame" })

	extended := apiRoomsCSV + "C301,Evening,50,\n"
	require.NoError(t, os.WriteFile(fx.path, []byte(extended), 0o644))

	rec := fx.do(t, http.MethodPost, "/checkin/api/v1/admin/catalog/reload", "",
		map[string]string{"X-Admin-Key": "sesame"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result service.CatalogStatus
	code, _ := decodeEnvelope(t, rec, &result)
	assert.Equal(t, ResultSuccess, code)
	assert.Equal(t, 4, result.Entries)
}

func TestCatalogStatus(t *testing.T) {
	fx := newAPIFixture(t, nil)

	rec := fx.do(t, http.MethodGet, "/checkin/api/v1/catalog", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result service.CatalogStatus
	decodeEnvelope(t, rec, &result)
	assert.Equal(t, 3, result.Entries)
	assert.Empty(t, result.Error)
}

func TestCatalogUnavailable_SubmitRejected(t *testing.T) {
	fx := newAPIFixture(t, func(cfg *config.Config) { cfg.Admin.Key = "sesame" })

	require.NoError(t, os.Remove(fx.path))
	rec := fx.do(t, http.MethodPost, "/checkin/api/v1/admin/catalog/reload", "",
		map[string]string{"X-Admin-Key": "sesame"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodPost, "/checkin/api/v1/checkin",
		submitBody("ada@ucr.edu", "A101", "Morning"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
