package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-roadmap-api/internal/middleware"
	"github.com/noah-isme/sma-roadmap-api/internal/planner"
	"github.com/noah-isme/sma-roadmap-api/internal/service"
)

func newRoadmapRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewRoadmapService(planner.New(planner.DefaultPattern()), nil, nil, nil, nil, 120)
	h := NewRoadmapHandler(svc)
	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	r.POST("/roadmap/preview", h.Preview)
	r.POST("/roadmap/stats", h.Stats)
	r.GET("/roadmap/weeks", h.WeekRanges)
	return r
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct{ Code string } `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func doJSON(t *testing.T, r http.Handler, method, target string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestRoadmapHandlerPreview(t *testing.T) {
	r := newRoadmapRouter()
	w, env := doJSON(t, r, http.MethodPost, "/roadmap/preview", map[string]interface{}{
		"startDate":      "2024-09-01",
		"endDate":        "2024-09-12",
		"weekExclusions": []map[string]interface{}{{"weekNumber": 1, "label": "Orientation", "category": "Event", "excludeFromCount": true}},
		"lessons":        []map[string]interface{}{{"id": "l1", "name": "Fractions", "pacing": 2}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var roadmap struct {
		Weeks []struct {
			WeekNumber   *int   `json:"weekNumber"`
			DisplayLabel string `json:"displayLabel"`
			IsBlocked    bool   `json:"isBlocked"`
		} `json:"weeks"`
		Stats struct {
			TotalAvailableDays int `json:"totalAvailableDays"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &roadmap))
	require.Len(t, roadmap.Weeks, 2)
	assert.True(t, roadmap.Weeks[0].IsBlocked)
	assert.Nil(t, roadmap.Weeks[0].WeekNumber)
	assert.Equal(t, "Orientation", roadmap.Weeks[0].DisplayLabel)
	assert.Equal(t, "Week 1", roadmap.Weeks[1].DisplayLabel)
	assert.Equal(t, 5, roadmap.Stats.TotalAvailableDays)
	assert.EqualValues(t, 2, env.Meta["weeks"])
}

func TestRoadmapHandlerPreviewErrors(t *testing.T) {
	r := newRoadmapRouter()

	w, _ := doJSON(t, r, http.MethodPost, "/roadmap/preview", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := doJSON(t, r, http.MethodPost, "/roadmap/preview", map[string]interface{}{"startDate": "2024-01-01", "endDate": "2024-12-31"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RANGE_TOO_LONG", env.Error.Code)

	w, env = doJSON(t, r, http.MethodPost, "/roadmap/preview", map[string]interface{}{"startDate": "2024-09-10", "endDate": "2024-09-01"})
	assert.Equal(t, http.StatusOK, w.Code, "inverted ranges yield an empty roadmap")
	assert.Contains(t, string(env.Data), `"weeks":[]`)
}

func TestRoadmapHandlerStatsAndWeeks(t *testing.T) {
	r := newRoadmapRouter()

	w, env := doJSON(t, r, http.MethodPost, "/roadmap/stats", map[string]interface{}{
		"startDate":     "2024-09-01",
		"endDate":       "2024-09-05",
		"dayExclusions": []map[string]interface{}{{"date": "2024-09-02", "label": "Holiday", "category": "Holiday"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"totalAvailableDays":4,"totalAvailableWeeks":1}`, string(env.Data))

	w, env = doJSON(t, r, http.MethodGet, "/roadmap/weeks?start=2024-09-01&end=2024-09-14", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ranges []struct {
		RawWeekNumber int `json:"rawWeekNumber"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ranges))
	assert.Len(t, ranges, 2)

	w, _ = doJSON(t, r, http.MethodGet, "/roadmap/weeks?start=soon", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
