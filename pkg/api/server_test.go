package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cbodonnell/statexfer/pkg/collectors"
	"github.com/cbodonnell/statexfer/pkg/messages"
	"github.com/cbodonnell/statexfer/pkg/metrics"
	"github.com/cbodonnell/statexfer/pkg/queue"
	"github.com/cbodonnell/statexfer/pkg/repositories"
	"github.com/cbodonnell/statexfer/pkg/repositories/models"
	"github.com/cbodonnell/statexfer/pkg/schema"
	"github.com/cbodonnell/statexfer/pkg/snapshot"
	"github.com/cbodonnell/statexfer/pkg/state"
	"github.com/cbodonnell/statexfer/pkg/workers"
	"github.com/cbodonnell/statexfer/pkg/xfer"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
)

type testEnv struct {
	server       *httptest.Server
	queue        *queue.InMemoryQueue
	stateManager *state.InMemoryStateManager
	recording    *collectors.Recording
	repository   repositories.Repository
	parser       *snapshot.Parser
	broadcast    *workers.BroadcastWorker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	set, err := schema.Compile(schema.Definition{
		Schemas: map[string][]schema.FieldDef{
			"Frame": {{Name: "frame", Type: "UnsignedInt"}},
		},
		Blocks: map[string]string{"CHUNK_Frame": "Frame"},
	})
	require.NoError(t, err)

	repo, err := repositories.NewSQLiteRepository(ctx, filepath.Join(t.TempDir(), "api.db"), "../../migrations/sqlite")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close(context.Background()) })

	reg := prometheus.NewRegistry()
	env := &testEnv{
		queue:        queue.NewInMemoryQueue(),
		stateManager: state.NewInMemoryStateManager(),
		recording:    collectors.NewRecording(true),
		repository:   repo,
		parser:       snapshot.NewParser(set),
	}
	env.broadcast = workers.NewBroadcastWorker(workers.NewBroadcastWorkerOptions{
		StateManager: env.stateManager,
		Interval:     5 * time.Millisecond,
	})
	go env.broadcast.Start(ctx)

	env.server = httptest.NewServer(NewRouter(NewAPIServerOptions{
		Queue:           env.queue,
		Recording:       env.recording,
		StateManager:    env.stateManager,
		Subscriber:      env.broadcast,
		Parser:          env.parser,
		Repository:      repo,
		Metrics:         metrics.New(reg),
		Gatherer:        reg,
		MaxSnapshotSize: 64,
	}))
	t.Cleanup(env.server.Close)
	return env
}

func frameSnapshot(t *testing.T, frame uint32) []byte {
	t.Helper()
	x := xfer.NewSaveBuffer()
	require.NoError(t, x.Open("test"))
	name := "CHUNK_Frame"
	require.NoError(t, x.AsciiString(&name, ""))
	_, err := x.BeginBlock()
	require.NoError(t, err)
	require.NoError(t, xfer.UnsignedInt(x, &frame, ""))
	require.NoError(t, x.EndBlock())
	require.NoError(t, x.Close())
	data, err := x.TakeBuffer()
	require.NoError(t, err)
	return data
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestPostSnapshot(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/snapshots", frameSnapshot(t, 1))
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 1, env.queue.Size())

	resp, _ = env.do(t, http.MethodPost, "/snapshots", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/snapshots", bytes.Repeat([]byte{1}, 65))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	env.recording.Set(false)
	resp, _ = env.do(t, http.MethodPost, "/snapshots", frameSnapshot(t, 2))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 1, env.queue.Size())
}

func TestRecording(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPut, "/recording", []byte(`{"recording":false}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"recording":false}`, string(body))
	assert.False(t, env.recording.IsOn())

	resp, body = env.do(t, http.MethodGet, "/recording", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"recording":false}`, string(body))

	resp, _ = env.do(t, http.MethodPut, "/recording", []byte(`nope`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetState(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/state", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	decoded, err := env.parser.Parse(frameSnapshot(t, 5))
	require.NoError(t, err)
	require.NoError(t, env.stateManager.Set(context.Background(), decoded))

	resp, body := env.do(t, http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got snapshot.State
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got.Objects, 1)
	assert.Equal(t, "CHUNK_Frame", got.Objects[0].Name)
	assert.Equal(t, decoded.Objects[0].Properties, got.Objects[0].Properties)
	assert.True(t, got.Objects[0].Match())

	resp, body = env.do(t, http.MethodGet, "/state/text", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CHUNK_Frame\n  frame: 5\n\n", string(body))

	resp, _ = env.do(t, http.MethodDelete, "/state", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/state", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCaptures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	raw := frameSnapshot(t, 11)
	capture := workers.NewCapture("http", workers.ArchiveRequest{ReceivedAt: 10, Data: raw})
	require.NoError(t, env.repository.SaveCapture(ctx, capture))

	resp, body := env.do(t, http.MethodGet, "/captures", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []*models.Capture
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, capture.ID, list[0].ID)

	resp, _ = env.do(t, http.MethodGet, "/captures?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/captures/"+capture.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		ID    string          `json:"id"`
		State *snapshot.State `json:"state"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, capture.ID, got.ID)
	require.Len(t, got.State.Objects, 1)
	assert.Equal(t, "11", got.State.Objects[0].Properties[0].Value)

	resp, body = env.do(t, http.MethodGet, "/captures/"+capture.ID+"?format=raw", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, raw, body)

	resp, _ = env.do(t, http.MethodGet, "/captures/3f1b6a7e-0000-4000-8000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCRCSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, f := range []*models.CRCFrame{
		{Session: "a", Frame: 1, CRC: 1, Log: []byte("FinalCRC: 0x00000001\n")},
		{Session: "b", Frame: 1, CRC: 2, Log: []byte("FinalCRC: 0x00000002\n")},
	} {
		require.NoError(t, env.repository.SaveCRCFrame(ctx, f))
	}

	resp, body := env.do(t, http.MethodGet, "/crc/a", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"session":"a","frame":1,"crc":1}]`, string(body))

	resp, _ = env.do(t, http.MethodGet, "/crc/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.do(t, http.MethodGet, "/crc/a/compare/b", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cmp struct {
		Compared int  `json:"compared"`
		Match    bool `json:"match"`
	}
	require.NoError(t, json.Unmarshal(body, &cmp))
	assert.Equal(t, 1, cmp.Compared)
	assert.False(t, cmp.Match)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/snapshots", frameSnapshot(t, 1))

	resp, body := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `statexfer_snapshots_received_total{source="http"} 1`)
}

func TestStateStream(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/state/stream"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	decoded, err := env.parser.Parse(frameSnapshot(t, 21))
	require.NoError(t, err)
	require.NoError(t, env.stateManager.Set(ctx, decoded))

	typ, b, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageBinary, typ)
	update, err := messages.DeserializeStateUpdate(b)
	require.NoError(t, err)
	require.Len(t, update.State.Objects, 1)
	assert.Equal(t, "21", update.State.Objects[0].Properties[0].Value)
}
