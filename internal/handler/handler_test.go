package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawwatch/api/internal/board"
	"github.com/pawwatch/api/internal/clock"
	"github.com/pawwatch/api/internal/geo"
	"github.com/pawwatch/api/internal/intake"
	"github.com/pawwatch/api/internal/model"
	"github.com/pawwatch/api/internal/store"
	"github.com/pawwatch/api/internal/stream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	board  *board.Board
	store  *store.ReportStore
}

func newTestServer(t *testing.T, c clock.Clock, delay time.Duration) *testServer {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	s := store.New()
	s.Seed(store.DemoReports())
	in := intake.New(s, c, geo.NewJitterer(3), intake.Config{Delay: delay}, log)
	b := board.New(s, in, c, log)

	r := gin.New()
	RegisterRoutes(r, Handlers{
		Sessions: NewSessionHandler(b, log),
		Reports:  NewReportHandler(s),
		Export:   NewExportHandler(s),
		Events:   NewEventsHandler(b, time.Hour, log),
	})
	return &testServer{router: r, board: b, store: s}
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) openSession(t *testing.T) board.View {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var v board.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, clock.Real(), 0)

	v := ts.openSession(t)
	assert.NotEmpty(t, v.SessionID)
	assert.Equal(t, model.FilterAll, v.Filter)
	assert.Len(t, v.Markers, 3)
	assert.Len(t, v.List, 3)

	w := ts.do(http.MethodPost, "/api/sessions/"+v.SessionID+"/filter", gin.H{"filter": "rabid"})
	require.Equal(t, http.StatusOK, w.Code)
	var filtered board.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filtered))
	require.Len(t, filtered.Markers, 1)
	assert.Equal(t, "#e74c3c", filtered.Markers[0].Color)

	w = ts.do(http.MethodPost, "/api/sessions/"+v.SessionID+"/filter", gin.H{"filter": "grumpy"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodDelete, "/api/sessions/"+v.SessionID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodGet, "/api/sessions/"+v.SessionID+"/view", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitReport(t *testing.T) {
	ts := newTestServer(t, clock.Real(), 0)
	v := ts.openSession(t)
	path := "/api/sessions/" + v.SessionID + "/reports"

	t.Run("missing fields", func(t *testing.T) {
		w := ts.do(http.MethodPost, path, gin.H{"status": "sick", "description": "limping"})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var body struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, board.MsgFillRequired, body.Error)
		assert.Contains(t, body.Fields, "location")
		assert.Equal(t, 3, ts.store.Len())
	})

	t.Run("committed", func(t *testing.T) {
		w := ts.do(http.MethodPost, path, gin.H{
			"location":    "Fort, Colombo",
			"status":      "Healthy",
			"description": "Sleeping by the gate",
			"coordinates": gin.H{"lat": 6.9344, "lng": 79.8428},
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var r model.Report
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
		assert.Equal(t, int64(4), r.ID)
		assert.Equal(t, model.StatusHealthy, r.Status)
		assert.Equal(t, intake.DefaultReporter, r.Reporter)
		assert.Equal(t, 6.9344, r.Lat)
		assert.Equal(t, 4, ts.store.Len())
	})

	t.Run("unknown session", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/sessions/missing/reports", gin.H{"location": "X", "status": "sick", "description": "d"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSubmitReport_InFlightConflict(t *testing.T) {
	fake := clock.NewFake(time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC))
	ts := newTestServer(t, fake, 2*time.Second)
	v := ts.openSession(t)
	path := "/api/sessions/" + v.SessionID + "/reports"
	form := gin.H{"location": "Fort", "status": "sick", "description": "limping"}

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- ts.do(http.MethodPost, path, form) }()

	require.Eventually(t, func() bool { return fake.Pending() == 1 }, time.Second, time.Millisecond)

	w := ts.do(http.MethodPost, path, form)
	assert.Equal(t, http.StatusConflict, w.Code)

	fake.Advance(2 * time.Second)

	select {
	case w := <-first:
		assert.Equal(t, http.StatusCreated, w.Code)
	case <-time.After(time.Second):
		t.Fatal("first submission did not complete")
	}
	assert.Equal(t, 4, ts.store.Len())
}

func TestMarkerClickAndPopup(t *testing.T) {
	ts := newTestServer(t, clock.Real(), 0)
	v := ts.openSession(t)
	base := "/api/sessions/" + v.SessionID

	w := ts.do(http.MethodPost, base+"/markers/2/click", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Max")

	w = ts.do(http.MethodPost, base+"/markers/abc/click", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, base+"/markers/42/click", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodDelete, base+"/popup", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	view, err := ts.board.View(v.SessionID)
	require.NoError(t, err)
	assert.Nil(t, view.OpenPopup)
}

func TestReports(t *testing.T) {
	ts := newTestServer(t, clock.Real(), 0)

	t.Run("list by status", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/api/reports?status=sick", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			TotalCount int `json:"totalCount"`
			Data       []struct {
				Name string `json:"name"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.TotalCount)
		assert.Equal(t, "Max", body.Data[0].Name)
	})

	t.Run("list by bbox", func(t *testing.T) {
		// Only Borella Junction lies east of 79.87.
		w := ts.do(http.MethodGet, "/api/reports?bbox=79.87,6.9,79.9,6.95", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"totalCount":1`)

		w = ts.do(http.MethodGet, "/api/reports?bbox=1,2,3", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/api/reports/1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Galle Face Green, Colombo")
		assert.Contains(t, w.Body.String(), "2023-10-15 by User123")

		w = ts.do(http.MethodGet, "/api/reports/9", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("stats", func(t *testing.T) {
		w := ts.do(http.MethodGet, "/api/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"total":3,"byStatus":{"healthy":1,"sick":1,"rabid":1}}`, w.Body.String())
	})

	t.Run("locate", func(t *testing.T) {
		w := ts.do(http.MethodPost, "/api/locate", gin.H{"lat": 6.9271, "lng": 79.8612})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"location":"6.927100, 79.861200"`)

		w = ts.do(http.MethodPost, "/api/locate", gin.H{"lat": 6.9})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = ts.do(http.MethodPost, "/api/locate", gin.H{"lat": 95.0, "lng": 0.0})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExport(t *testing.T) {
	ts := newTestServer(t, clock.Real(), 0)

	w := ts.do(http.MethodGet, "/api/reports/export?format=csv&status=healthy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "1,Buddy,healthy,"))

	w = ts.do(http.MethodGet, "/api/reports/export?format=md", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# All Dog Reports")
	assert.Contains(t, w.Body.String(), "### 3. Unknown [RABID]")

	w = ts.do(http.MethodGet, "/api/reports/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "reports-all.json")

	w = ts.do(http.MethodGet, "/api/reports/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventStream(t *testing.T) {
	ts := newTestServer(t, clock.Real(), 0)
	v := ts.openSession(t)

	out, err := ts.board.Outbound(v.SessionID)
	require.NoError(t, err)
	ch := out.(*stream.Channel)
	ch.Notify("hello", board.SeverityInfo)
	// Closing ends the stream once the queue is drained.
	ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+v.SessionID+"/events", nil).WithContext(ctx)
	w := &streamRecorder{ResponseRecorder: httptest.NewRecorder()}
	ts.router.ServeHTTP(w, req)

	body := w.Body.String()
	assert.Contains(t, body, "event:markers")
	assert.Contains(t, body, "event:list")
	assert.Contains(t, body, "event:notify")
	assert.Contains(t, body, "hello")

	missing := ts.do(http.MethodGet, "/api/sessions/missing/events", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

// streamRecorder adds the CloseNotify that gin's Stream expects.
type streamRecorder struct {
	*httptest.ResponseRecorder
}

func (r *streamRecorder) CloseNotify() <-chan bool {
	return make(chan bool)
}
