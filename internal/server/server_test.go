package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/yt-downloader-web/internal/config"
	"github.com/ytget/yt-downloader-web/internal/download"
	"github.com/ytget/yt-downloader-web/internal/model"
	"github.com/ytget/yt-downloader-web/internal/platform"
)

type stubDownloader struct {
	mu        sync.Mutex
	hub       *Hub
	resolved  []string
	started   []model.DownloadRequest
	cancelled []string
	startErr  error
	tasks     map[string]*model.BatchTask
}

func (d *stubDownloader) ResolveMetadata(sessionID, url string) {
	d.mu.Lock()
	d.resolved = append(d.resolved, url)
	d.mu.Unlock()
	_ = d.hub.Emit(sessionID, model.MetadataResultEvent{Type: model.ResultTypeVideo, Title: url})
}

func (d *stubDownloader) StartDownload(sessionID string, req model.DownloadRequest) (*model.BatchTask, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return nil, d.startErr
	}
	d.started = append(d.started, req)
	return &model.BatchTask{ID: "batch-1", SessionID: sessionID, URL: req.URL}, nil
}

func (d *stubDownloader) CancelSession(sessionID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelled = append(d.cancelled, sessionID)
	return 1
}

func (d *stubDownloader) GetTask(id string) (*model.BatchTask, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tasks[id]
	return t, ok
}

func (d *stubDownloader) SessionTasks(sessionID string) []*model.BatchTask {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*model.BatchTask
	for _, t := range d.tasks {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out
}

func (d *stubDownloader) snapshot() (resolved []string, started []model.DownloadRequest, cancelled []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.resolved...),
		append([]model.DownloadRequest(nil), d.started...),
		append([]string(nil), d.cancelled...)
}

var _ download.Downloader = (*stubDownloader)(nil)

type wireEvent struct {
	Event model.EventName `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, origins ...string) (*Server, *stubDownloader, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	stub := &stubDownloader{hub: hub, tasks: map[string]*model.BatchTask{}}
	cfg := config.ServerSettings{Host: "127.0.0.1", Port: 8999, AllowedOrigins: origins, ShutdownTimeout: time.Second}
	s := New(cfg, "/home/u/Downloads", "test", stub, hub, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, stub, ts
}

func dial(t *testing.T, ts *httptest.Server) (*websocket.Conn, string) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ev := readEvent(t, conn)
	require.Equal(t, model.EventSession, ev.Event)
	var session model.SessionEvent
	require.NoError(t, json.Unmarshal(ev.Data, &session))
	require.NotEmpty(t, session.ID)
	return conn, session.ID
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHealthz(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestDefaultPath(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/default-path")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "/home/u/Downloads", body["path"])
}

func TestTasks(t *testing.T) {
	_, stub, ts := newTestServer(t)
	stub.tasks["batch-1"] = &model.BatchTask{ID: "batch-1", SessionID: "s1", Status: model.BatchStatusDone}

	resp, err := http.Get(ts.URL + "/api/tasks")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/tasks?session=s1")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body struct {
		Tasks []model.BatchTask `json:"tasks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Tasks, 1)
	assert.Equal(t, model.BatchStatusDone, body.Tasks[0].Status)

	resp2, err := http.Get(ts.URL + "/api/tasks/batch-404")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
	var errBody struct {
		Success bool     `json:"success"`
		Error   APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&errBody))
	assert.False(t, errBody.Success)
	assert.Equal(t, CodeNotFound, errBody.Error.Code)
}

func TestSelectFolder(t *testing.T) {
	s, _, ts := newTestServer(t)
	var gotStart string
	s.pickFolder = func(ctx context.Context, start string) (string, error) {
		gotStart = start
		return "/media/usb", nil
	}

	resp, err := http.Post(ts.URL+"/select-folder", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "/media/usb", body["path"])
	assert.Equal(t, "/home/u/Downloads", gotStart)
}

func TestSelectFolder_NoDialog(t *testing.T) {
	s, _, ts := newTestServer(t)
	s.pickFolder = func(ctx context.Context, start string) (string, error) {
		return "", platform.ErrNoDialog
	}

	resp, err := http.Post(ts.URL+"/select-folder", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestOpenFolder(t *testing.T) {
	s, _, ts := newTestServer(t)
	var opened string
	s.openFolder = func(ctx context.Context, path string) error {
		opened = path
		return nil
	}

	resp, err := http.Post(ts.URL+"/api/open-folder", "application/json", strings.NewReader(`{"path":"/tmp/x"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/tmp/x", opened)

	s.openFolder = func(ctx context.Context, path string) error { return errors.New("missing") }
	resp, err = http.Post(ts.URL+"/api/open-folder", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	_, _, ts := newTestServer(t, "http://localhost:5173")

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/default-path", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws",
		http.Header{"Origin": []string{"http://evil.example"}})
	assert.Error(t, err, "foreign origins cannot open a session")
}

func TestWebSocket_Commands(t *testing.T) {
	_, stub, ts := newTestServer(t)
	conn, _ := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": "fetch_metadata",
		"data":  map[string]any{"url": "https://youtu.be/x"},
	}))
	ev := readEvent(t, conn)
	assert.Equal(t, model.EventMetadataResult, ev.Event)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": "start_download",
		"data": map[string]any{
			"url":        "https://youtu.be/x",
			"path":       "/tmp/out",
			"resolution": 720,
			"indices":    []int{2, 4},
		},
	}))
	require.NoError(t, conn.WriteJSON(map[string]any{"event": "cancel"}))

	require.Eventually(t, func() bool {
		_, started, cancelled := stub.snapshot()
		return len(started) == 1 && len(cancelled) == 1
	}, 2*time.Second, 10*time.Millisecond)

	resolved, started, _ := stub.snapshot()
	assert.Equal(t, []string{"https://youtu.be/x"}, resolved)
	assert.Equal(t, model.DownloadRequest{
		URL:          "https://youtu.be/x",
		OutputFolder: "/tmp/out",
		Resolution:   "720",
		Indices:      []int{2, 4},
	}, started[0])
}

func TestWebSocket_RejectedCommands(t *testing.T) {
	_, stub, ts := newTestServer(t)
	conn, _ := dial(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "reboot"}))
	ev := readEvent(t, conn)
	assert.Equal(t, model.EventRejected, ev.Event)
	assert.Contains(t, string(ev.Data), "unknown command")
	assert.Contains(t, string(ev.Data), `"command":"reboot"`)

	stub.mu.Lock()
	stub.startErr = download.ErrEmptyURL
	stub.mu.Unlock()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": "start_download", "data": map[string]any{}}))
	ev = readEvent(t, conn)
	assert.Equal(t, model.EventRejected, ev.Event)
	assert.Contains(t, string(ev.Data), "URL is required")
	assert.Contains(t, string(ev.Data), `"command":"start_download"`)

	stub.mu.Lock()
	stub.startErr = download.ErrDuplicateBatch
	stub.mu.Unlock()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": "start_download", "data": map[string]any{"url": "https://youtu.be/x"}}))
	ev = readEvent(t, conn)
	assert.Equal(t, model.EventRejected, ev.Event, "a refused start is not the terminal error of a batch")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	ev = readEvent(t, conn)
	assert.Equal(t, model.EventRejected, ev.Event)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event": 42}`)))
	ev = readEvent(t, conn)
	assert.Equal(t, model.EventRejected, ev.Event, "a mistyped message keeps the session open")
}

func TestWebSocket_SessionScopedEvents(t *testing.T) {
	s, _, ts := newTestServer(t)
	connA, idA := dial(t, ts)
	connB, idB := dial(t, ts)
	require.NotEqual(t, idA, idB)

	require.NoError(t, s.hub.Emit(idA, model.DoneEvent{Message: "Completed. 1/1 items downloaded.", Succeeded: 1, Total: 1}))

	ev := readEvent(t, connA)
	assert.Equal(t, model.EventDone, ev.Event)

	require.NoError(t, connB.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var other wireEvent
	err := connB.ReadJSON(&other)
	assert.Error(t, err, "the other session receives nothing")
}

func TestWebSocket_DisconnectCancels(t *testing.T) {
	s, stub, ts := newTestServer(t)
	conn, id := dial(t, ts)
	require.Equal(t, 1, s.hub.Sessions())

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		_, _, cancelled := stub.snapshot()
		return len(cancelled) == 1 && cancelled[0] == id
	}, 2*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, s.hub.Emit(id, model.ErrorEvent{Message: "late"}), ErrSessionNotFound)
	assert.Equal(t, 0, s.hub.Sessions())
}

func TestHub_RejectsInvalidEvents(t *testing.T) {
	hub := NewHub(nil)

	err := hub.Emit("nobody", model.ErrorEvent{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound, "validation happens before lookup")

	assert.ErrorIs(t, hub.Emit("nobody", model.ErrorEvent{Message: "x"}), ErrSessionNotFound)
}

func TestRespond_GenericError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := ginTestContext(w)

	Respond(c, errors.New("disk on fire"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), CodeInternal)
	assert.NotContains(t, w.Body.String(), "disk on fire")
}
