// ABOUTME: Shared fixtures for API tests.
// ABOUTME: Builds a Server over a temp SQLite store with a fixed clock and stub Google verifier.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/wellness/internal/auth"
	"github.com/harperreed/wellness/internal/biometrics"
	"github.com/harperreed/wellness/internal/clock"
	"github.com/harperreed/wellness/internal/ingest"
	"github.com/harperreed/wellness/internal/logging"
	"github.com/harperreed/wellness/internal/storage"
	"github.com/stretchr/testify/require"
)

type stubGoogle struct {
	identity *auth.GoogleIdentity
}

func (g *stubGoogle) Verify(_ context.Context, idToken string) (*auth.GoogleIdentity, error) {
	if g.identity == nil || idToken != "good-credential" {
		return nil, errors.New("token rejected")
	}
	return g.identity, nil
}

type testEnv struct {
	server *Server
	db     *storage.DB
	issuer *auth.Issuer
	clock  *clock.Stub
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	clk := clock.Fixed()
	db, err := storage.Open(filepath.Join(t.TempDir(), "wellness.db"),
		storage.WithClock(clk), storage.WithLocation(time.UTC))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	issuer, err := auth.NewIssuer("test-secret", time.Hour, clk)
	require.NoError(t, err)

	log := logging.Discard()
	svc := biometrics.New(db, ingest.Normalizer{}, log)
	google := &stubGoogle{identity: &auth.GoogleIdentity{
		Subject: "1234",
		Email:   "grace@example.com",
		Name:    "Grace",
	}}

	opts.Clock = clk
	if opts.CORSOrigins == nil {
		opts.CORSOrigins = []string{"*"}
	}
	return &testEnv{
		server: NewServer(db, svc, issuer, google, log, opts),
		db:     db,
		issuer: issuer,
		clock:  clk,
	}
}

// do sends a request with an optional JSON body and bearer token.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

// tokenFor issues an access token for a fresh local user.
func (e *testEnv) tokenFor(t *testing.T, email string) (string, string) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/users/signup", "", map[string]string{
		"email":    email,
		"password": "correct-horse",
		"nickname": "tester",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data signInResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.Token, resp.Data.User.ID
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func decodeFieldError(t *testing.T, rec *httptest.ResponseRecorder) fieldError {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.False(t, env.Success)
	var fe fieldError
	require.NoError(t, json.Unmarshal(env.Errors, &fe), rec.Body.String())
	return fe
}
