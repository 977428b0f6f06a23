package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ErickG09/api-muro-eolico/config"
	"github.com/ErickG09/api-muro-eolico/localtime"
	"github.com/ErickG09/api-muro-eolico/models"
	"github.com/ErickG09/api-muro-eolico/rollup"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.GetAllModels()...))

	clock := localtime.NewFixed(time.UTC)
	service := rollup.New(db, clock, config.IngestConfig{
		SensorMode:   config.SensorModeLenient,
		BucketLookup: config.BucketLookupIdempotent,
	})
	srv := New(service, clock, config.ServerConfig{
		Port:     5000,
		BasePath: "/api/v1",
	})
	return srv.Handler()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func submitBody(v float64) map[string]interface{} {
	return map[string]interface{}{
		"propeller1": v,
		"propeller2": v,
		"propeller3": v,
		"propeller4": v,
		"propeller5": v,
		"group":      1,
	}
}

func TestCreateAndReadLatest(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/new", submitBody(1))
	require.Equal(t, http.StatusOK, rr.Code)
	created := decodeBody(t, rr)
	require.Equal(t, 1.0, created["propeller1"])
	require.Equal(t, 1.0, created["group"])

	rr = doJSON(t, router, http.MethodGet, "/api/v1/readLatest", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	latest := decodeBody(t, rr)
	require.Equal(t, created["id"], latest["id"])
}

func TestCreateBelowThreshold(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/new", submitBody(0))
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	require.Equal(t, belowThresholdMessage, body["message"])

	rr = doJSON(t, router, http.MethodGet, "/api/v1/readLatest", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateMissingPrimarySensor(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/new", map[string]interface{}{
		"propeller2": 1.0,
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateInvalidJSON(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/new", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReadTempLatestByGroup(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/new", submitBody(1))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/readTempLatest/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/readTempLatest/9", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetAllHoursShape(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/getAllHours?date=2024-01-15", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var totals map[string]float64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &totals))
	require.Len(t, totals, 24)
	require.Zero(t, totals["13"])
}

func TestGetAllHoursBadDate(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/getAllHours?date=15-01-2024", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetAllMinutesRequiresDate(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/getAllMinutes", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/getAllMinutes?date=2024-01-15+10:00:00", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var totals map[string]map[string]float64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &totals))
	require.Len(t, totals, 60)
}

func TestGetCurrentDayEmpty(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/getCurrentDay", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	require.Equal(t, 0.0, body["total"])
}

func TestGetTotalAccumulates(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/getTotal", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 0.0, decodeBody(t, rr)["total"])

	doJSON(t, router, http.MethodPost, "/api/v1/new", submitBody(1))
	doJSON(t, router, http.MethodPost, "/api/v1/new", submitBody(1))

	rr = doJSON(t, router, http.MethodGet, "/api/v1/getTotal", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 10.0, decodeBody(t, rr)["total"])
}

func TestGetTotalsByGroup(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/new", submitBody(1))

	rr := doJSON(t, router, http.MethodGet, "/api/v1/get_totals", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var totals map[string]float64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &totals))
	require.InDelta(t, 5.0, totals["group1"], 1e-9)
}

func TestReadAllMonthsShape(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/readAllMonths", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var totals map[string]float64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &totals))
	require.Len(t, totals, 12)
}

func TestRead30DaysShape(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/api/v1/read30days", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var totals map[string]float64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &totals))
	require.Len(t, totals, 31)
}

func TestResetAllFlow(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/api/v1/new", submitBody(1))

	rr := doJSON(t, router, http.MethodDelete, "/api/v1/resetAll", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/readLatest", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	// Snapshots survive resetAll and have their own reset
	rr = doJSON(t, router, http.MethodGet, "/api/v1/readTempLatest/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodDelete, "/api/v1/resetTempWallData", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/readTempLatest/1", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteDayNotFound(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodDelete, "/api/v1/deleteDay/42", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/readLatest", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
