package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/tasklink"
	"github.com/agentstation/tasklink/internal/server/response"
	"github.com/agentstation/tasklink/internal/store/memory"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/fetcher"
	"github.com/agentstation/tasklink/pkg/logging"
	"github.com/agentstation/tasklink/pkg/records"
	"github.com/agentstation/tasklink/pkg/sources"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *response.Error `json:"error"`
}

type fixture struct {
	a      *sources.Static
	b      *sources.Static
	server *Server
	http   *httptest.Server
}

func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()
	return newLoggedFixture(t, logging.NewNopLogger(), mutate...)
}

func newLoggedFixture(t *testing.T, logger *zerolog.Logger, mutate ...func(*Config)) *fixture {
	t.Helper()

	f := &fixture{
		a: sources.NewStatic(sources.Capabilities{System: "tracker", Status: sources.StatusLabel}),
		b: sources.NewStatic(sources.Capabilities{System: "planner", Status: sources.StatusCompletion}),
	}
	f.a.SetRecords("proj",
		records.Record{ID: "a1", Name: "Fix login bug", State: "Open"},
		records.Record{ID: "a2", Name: "Write release notes", State: "Open"},
	)
	f.b.SetRecords("list",
		records.Record{ID: "b1", Name: "Fix login bug"},
		records.Record{ID: "b2", Name: "Write release notes"},
	)

	var tick atomic.Int64
	epoch := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	client, err := tasklink.New(
		tasklink.WithSystems(sources.Systems{A: f.a, B: f.b, ContainerA: "proj", ContainerB: "list"}),
		tasklink.WithStore(memory.New()),
		tasklink.WithFetcher(fetcher.New(fetcher.WithDelay(0))),
		tasklink.WithClock(func() utc.Time {
			return utc.Time{Time: epoch.Add(time.Duration(tick.Add(1)) * time.Minute)}
		}),
	)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.RateLimit = 0
	for _, m := range mutate {
		m(&cfg)
	}

	f.server = New(client, cfg, logger)
	ctx, cancel := context.WithCancel(context.Background())
	f.server.Start(ctx)
	f.http = httptest.NewServer(f.server.Handler())
	t.Cleanup(func() {
		f.http.Close()
		cancel()
		_ = f.server.Shutdown(context.Background())
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.http.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func (f *fixture) link(t *testing.T, source, target string) records.LinkedPair {
	t.Helper()
	status, env := f.do(t, http.MethodPost, "/api/v1/pairs", map[string]string{"source_id": source, "target_id": target})
	require.Equal(t, http.StatusCreated, status)
	var pair records.LinkedPair
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	return pair
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	status, env := f.do(t, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, env.Error)
	assert.Contains(t, string(env.Data), `"healthy"`)
}

func TestPairLifecycle(t *testing.T) {
	f := newFixture(t)

	pair := f.link(t, "a1", "b1")
	assert.Equal(t, "Fix login bug", pair.SourceName)
	assert.Equal(t, records.MethodManual, pair.Method)

	status, env := f.do(t, http.MethodGet, "/api/v1/pairs", nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Pairs []records.LinkedPair `json:"pairs"`
		Count int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Count)

	status, _ = f.do(t, http.MethodGet, "/api/v1/pairs/"+pair.ID, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = f.do(t, http.MethodDelete, "/api/v1/pairs/"+pair.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, env = f.do(t, http.MethodGet, "/api/v1/pairs/"+pair.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	// the cached listing was invalidated by the delete
	_, env = f.do(t, http.MethodGet, "/api/v1/pairs", nil)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 0, list.Count)
}

func TestDeletePairLogsOnce(t *testing.T) {
	tl := logging.NewTestLogger(t)
	f := newLoggedFixture(t, tl.Logger)
	pair := f.link(t, "a1", "b1")

	status, _ := f.do(t, http.MethodDelete, "/api/v1/pairs/"+pair.ID, nil)
	require.Equal(t, http.StatusNoContent, status)

	// settle every writer before reading the buffer
	f.http.Close()
	require.NoError(t, f.server.Shutdown(context.Background()))
	assert.Equal(t, 1, strings.Count(tl.Output(), `"message":"Pair unlinked"`))
}

func TestCreatePairErrors(t *testing.T) {
	f := newFixture(t)
	f.link(t, "a1", "b1")

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"conflict", map[string]string{"source_id": "a1", "target_id": "b2"}, http.StatusConflict, "CONFLICT"},
		{"unknown record", map[string]string{"source_id": "a9", "target_id": "b2"}, http.StatusNotFound, "NOT_FOUND"},
		{"empty body", map[string]string{}, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad side", map[string]string{"side": "c", "id": "x"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown field", map[string]string{"source": "a1"}, http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := f.do(t, http.MethodPost, "/api/v1/pairs", tt.body)
			assert.Equal(t, tt.status, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestOneSidedPair(t *testing.T) {
	f := newFixture(t)
	status, env := f.do(t, http.MethodPost, "/api/v1/pairs", map[string]string{"side": "b", "id": "b2", "name": "Write release notes"})
	require.Equal(t, http.StatusCreated, status)

	var pair records.LinkedPair
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	assert.Empty(t, pair.SourceID)
	assert.Equal(t, "b2", pair.TargetID)
}

func TestSuggestAndAccept(t *testing.T) {
	f := newFixture(t)

	status, env := f.do(t, http.MethodGet, "/api/v1/suggestions/a1", nil)
	require.Equal(t, http.StatusOK, status)
	var sugg tasklink.Suggestions
	require.NoError(t, json.Unmarshal(env.Data, &sugg))
	require.NotEmpty(t, sugg.Candidates)
	assert.Equal(t, "b1", sugg.Candidates[0].TargetID)

	status, env = f.do(t, http.MethodPost, "/api/v1/match/accept", map[string]any{
		"matches": []records.SuggestedMatch{{SourceID: "a1", SourceName: sugg.Source.Name, Candidate: sugg.Candidates[0]}},
	})
	require.Equal(t, http.StatusOK, status)
	var bulk tasklink.BulkResult
	require.NoError(t, json.Unmarshal(env.Data, &bulk))
	assert.Len(t, bulk.Linked, 1)

	status, env = f.do(t, http.MethodGet, "/api/v1/suggestions/a1?min_confidence=2", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)

	status, _ = f.do(t, http.MethodPost, "/api/v1/match/accept", map[string]any{"matches": []any{}})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSuggestSkipsCacheWhenDegraded(t *testing.T) {
	f := newFixture(t)
	f.b.FailList(errors.New("planner down"))

	status, env := f.do(t, http.MethodGet, "/api/v1/suggestions/a1", nil)
	require.Equal(t, http.StatusOK, status)
	var sugg tasklink.Suggestions
	require.NoError(t, json.Unmarshal(env.Data, &sugg))
	assert.Empty(t, sugg.Candidates)
	require.Len(t, sugg.Errors, 1)

	f.b.FailList(nil)
	status, env = f.do(t, http.MethodGet, "/api/v1/suggestions/a1", nil)
	require.Equal(t, http.StatusOK, status)
	sugg = tasklink.Suggestions{}
	require.NoError(t, json.Unmarshal(env.Data, &sugg))
	assert.Empty(t, sugg.Errors)
	assert.NotEmpty(t, sugg.Candidates)
}

func TestSnapshotRefreshesPairList(t *testing.T) {
	f := newFixture(t)
	pair := f.link(t, "a1", "b1")

	listPairs := func() []records.LinkedPair {
		status, env := f.do(t, http.MethodGet, "/api/v1/pairs", nil)
		require.Equal(t, http.StatusOK, status)
		var list struct {
			Pairs []records.LinkedPair `json:"pairs"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &list))
		require.Len(t, list.Pairs, 1)
		return list.Pairs
	}
	assert.Nil(t, listPairs()[0].SyncedAt)

	status, _ := f.do(t, http.MethodPost, "/api/v1/pairs/"+pair.ID+"/snapshot", nil)
	require.Equal(t, http.StatusOK, status)
	first := listPairs()[0].SyncedAt
	require.NotNil(t, first)

	f.b.UpdateRecord(records.Record{ID: "b1", Name: "Fix login bug", Completed: true})
	status, _ = f.do(t, http.MethodPost, "/api/v1/detect", map[string]any{})
	require.Equal(t, http.StatusOK, status)
	second := listPairs()[0].SyncedAt
	require.NotNil(t, second)
	assert.NotEqual(t, first.Time, second.Time)
}

func TestAutoMatchApply(t *testing.T) {
	f := newFixture(t)

	status, env := f.do(t, http.MethodPost, "/api/v1/match/auto", map[string]any{"apply": true})
	require.Equal(t, http.StatusOK, status)
	var res tasklink.AutoMatchResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Len(t, res.Suggestions, 2)
	require.NotNil(t, res.Applied)
	assert.Len(t, res.Applied.Linked, 2)

	status, _ = f.do(t, http.MethodPost, "/api/v1/match/auto", map[string]any{"strategy": "random"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestDetectAndChanges(t *testing.T) {
	f := newFixture(t)
	pair := f.link(t, "a1", "b1")

	status, _ := f.do(t, http.MethodPost, "/api/v1/pairs/"+pair.ID+"/snapshot", nil)
	require.Equal(t, http.StatusOK, status)

	f.a.UpdateRecord(records.Record{ID: "a1", Name: "Fix login bug", State: "Closed"})

	status, env := f.do(t, http.MethodPost, "/api/v1/detect", nil)
	require.Equal(t, http.StatusOK, status)
	var report tasklink.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 1, report.Checked)
	require.Len(t, report.Drifted, 1)
	assert.Equal(t, pair.ID, report.Drifted[0].PairID)

	status, env = f.do(t, http.MethodGet, "/api/v1/changes?pair="+pair.ID, nil)
	require.Equal(t, http.StatusOK, status)
	var changes struct {
		Changes []records.ChangeRecord `json:"changes"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &changes))
	require.NotEmpty(t, changes.Changes)
	assert.Equal(t, records.SideA, changes.Changes[0].Side)

	status, _ = f.do(t, http.MethodGet, "/api/v1/changes?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	status, env := f.do(t, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
}

func TestAuth(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.AuthToken = "s3cret" })

	status, _ := f.do(t, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := f.do(t, http.MethodGet, "/api/v1/pairs", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)

	req, err := http.NewRequest(http.MethodGet, f.http.URL+"/api/v1/pairs", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.RateLimit = 1 })

	status, _ := f.do(t, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, status)
	status, env := f.do(t, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	require.NotNil(t, env.Error)
}

func TestWebSocketReceivesPairLinked(t *testing.T) {
	f := newFixture(t)

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/api/v1/updates/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return f.server.wsHub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	pair := f.link(t, "a2", "b2")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg struct {
			Type string             `json:"type"`
			Data records.LinkedPair `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "pair.linked" {
			assert.Equal(t, pair.ID, msg.Data.ID)
			return
		}
	}
}
