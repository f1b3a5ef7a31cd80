package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/config"
	"agora/internal/simulation"
	"agora/internal/store"
)

type stubRunner struct {
	result   *simulation.SimulationResult
	err      error
	progress [][2]int
	lastReq  simulation.RunRequest
}

func (r *stubRunner) Run(ctx context.Context, req simulation.RunRequest, onProgress simulation.ProgressFunc) (*simulation.SimulationResult, error) {
	r.lastReq = req
	if onProgress != nil {
		for _, p := range r.progress {
			onProgress(p[0], p[1])
		}
	}
	return r.result, r.err
}

func sampleResult() *simulation.SimulationResult {
	variants := make([]simulation.VariantResult, simulation.VariantCount)
	for i := range variants {
		variants[i] = simulation.VariantResult{
			Text:  fmt.Sprintf("variant %d", i+1),
			Score: 10 * i,
			Highlights: simulation.Highlights{
				Positive: "Praise.", Neutral: "Questions.", Negative: "Doubts.",
			},
			Replies: []simulation.PersonaReply{
				{PersonaID: "p1", Reply: "nice", Sentiment: simulation.SentimentPositive},
			},
		}
	}
	return &simulation.SimulationResult{BestVariantIndex: 9, Variants: variants}
}

func newTestServer(t *testing.T, runner SimulationRunner) *Server {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 8080, AllowOrigins: []string{"*"}}
	srv, err := New(cfg, 16, st, runner, nil)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(identityHeader, user)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	require.True(t, resp.Success, "error: %s", resp.Error)

	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func TestRequestsWithoutIdentityRejected(t *testing.T) {
	srv := newTestServer(t, &stubRunner{})

	rec := doJSON(t, srv, http.MethodGet, "/api/personas", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthzNeedsNoIdentity(t *testing.T) {
	srv := newTestServer(t, &stubRunner{})

	rec := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestPersonaEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubRunner{})

	rec := doJSON(t, srv, http.MethodPost, "/api/personas", "alice", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/personas", "alice",
		map[string]string{"name": "Skeptic", "description": "questions everything"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeData[store.Persona](t, rec)
	require.NotEmpty(t, created.ID)

	rec = doJSON(t, srv, http.MethodGet, "/api/personas", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeData[[]store.Persona](t, rec)
	require.Len(t, list, 1)

	// Another user sees an empty roster.
	rec = doJSON(t, srv, http.MethodGet, "/api/personas", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[[]store.Persona](t, rec))

	rec = doJSON(t, srv, http.MethodPut, "/api/personas/"+created.ID, "alice",
		map[string]string{"name": "Optimist", "description": "loves everything"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/personas/"+created.ID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Optimist", decodeData[store.Persona](t, rec).Name)

	rec = doJSON(t, srv, http.MethodDelete, "/api/personas/"+created.ID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/personas/"+created.ID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAgoraEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubRunner{})

	rec := doJSON(t, srv, http.MethodPost, "/api/personas", "alice",
		map[string]string{"name": "Member", "description": "d"})
	persona := decodeData[store.Persona](t, rec)

	rec = doJSON(t, srv, http.MethodPost, "/api/agoras", "alice",
		map[string]any{"name": "Panel", "description": "test", "personaIds": []string{persona.ID}})
	require.Equal(t, http.StatusCreated, rec.Code)
	agora := decodeData[store.Agora](t, rec)
	assert.Equal(t, []string{persona.ID}, agora.PersonaIDs)

	// Members must belong to the caller.
	rec = doJSON(t, srv, http.MethodPost, "/api/agoras", "bob",
		map[string]any{"name": "Stolen", "personaIds": []string{persona.ID}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodPut, "/api/agoras/"+agora.ID, "alice",
		map[string]any{"name": "Panel v2", "personaIds": []string{}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/agoras/"+agora.ID, "alice", nil)
	got := decodeData[store.Agora](t, rec)
	assert.Equal(t, "Panel v2", got.Name)
	assert.Empty(t, got.PersonaIDs)

	rec = doJSON(t, srv, http.MethodDelete, "/api/agoras/"+agora.ID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSharedPostApprovalFlow(t *testing.T) {
	srv := newTestServer(t, &stubRunner{})

	rec := doJSON(t, srv, http.MethodPost, "/api/shared-posts", "alice",
		map[string]any{"idea": "dark mode launch", "variantText": "We shipped dark mode!", "nps": 60})
	require.Equal(t, http.StatusCreated, rec.Code)
	post := decodeData[store.SharedPost](t, rec)
	assert.Equal(t, store.PostStatusPending, post.Status)

	rec = doJSON(t, srv, http.MethodPost, "/api/shared-posts/"+post.ID+"/approve", "alice",
		map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.PostStatusApproved, decodeData[store.SharedPost](t, rec).Status)

	// A second decision conflicts.
	rec = doJSON(t, srv, http.MethodPost, "/api/shared-posts/"+post.ID+"/approve", "alice",
		map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Other users cannot see the post at all.
	rec = doJSON(t, srv, http.MethodGet, "/api/shared-posts/"+post.ID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
