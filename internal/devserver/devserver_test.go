package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline-crm/fieldline/internal/logger"
	"github.com/fieldline-crm/fieldline/models"
)

func newTestBackend(t *testing.T, opts Options) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(NewServer(opts, logger.Nop()).Routes())
	t.Cleanup(srv.Close)

	return srv
}

func postJSON(t *testing.T, url, idemKey string, body any) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if idemKey != "" {
		req.Header.Set("X-Idempotency-Key", idemKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp
}

func decodeRecord(t *testing.T, resp *http.Response) models.RemoteRecord {
	t.Helper()
	defer resp.Body.Close()

	var rec models.RemoteRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))

	return rec
}

func TestDevServer_Health(t *testing.T) {
	srv := newTestBackend(t, Options{})

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDevServer_CreateAndList(t *testing.T) {
	srv := newTestBackend(t, Options{})

	resp := postJSON(t, srv.URL+"/api/leads", "idem-1", models.Lead{FirstName: "Ada", Status: "new"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeRecord(t, resp)
	assert.NotEmpty(t, created.ServerKey)

	listResp, err := http.Get(srv.URL + "/api/leads")
	require.NoError(t, err)
	defer listResp.Body.Close()

	var list models.RemoteList
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	require.Equal(t, 1, list.Length)
	assert.Equal(t, created.ServerKey, list.Records[0].ServerKey)
}

func TestDevServer_Create_RejectsMalformedEntity(t *testing.T) {
	srv := newTestBackend(t, Options{})

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/leads", bytes.NewReader([]byte(`{"first_name":42}`)))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDevServer_IdempotentCreateReplaysResponse(t *testing.T) {
	srv := newTestBackend(t, Options{})

	first := decodeRecord(t, postJSON(t, srv.URL+"/api/leads", "idem-dup", models.Lead{FirstName: "Ada"}))
	second := decodeRecord(t, postJSON(t, srv.URL+"/api/leads", "idem-dup", models.Lead{FirstName: "Ada"}))

	// the replayed create returns the same record instead of a duplicate
	assert.Equal(t, first.ServerKey, second.ServerKey)

	listResp, err := http.Get(srv.URL + "/api/leads")
	require.NoError(t, err)
	defer listResp.Body.Close()

	var list models.RemoteList
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	assert.Equal(t, 1, list.Length)
}

func TestDevServer_UpdateAndDelete(t *testing.T) {
	srv := newTestBackend(t, Options{})

	created := decodeRecord(t, postJSON(t, srv.URL+"/api/companies", "", models.Company{Name: "Acme"}))

	raw, _ := json.Marshal(models.Company{Name: "Acme Corp", Industry: "software"})
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/companies/"+created.ServerKey, bytes.NewReader(raw))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	updated := decodeRecord(t, resp)
	assert.Equal(t, created.ServerKey, updated.ServerKey)
	assert.JSONEq(t, string(raw), string(updated.Data))

	delReq, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/companies/"+created.ServerKey, nil)
	require.NoError(t, err)

	delResp, err := http.DefaultClient.Do(delReq)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	// deleting again still succeeds so replays converge
	delResp2, err := http.DefaultClient.Do(delReq)
	require.NoError(t, err)
	delResp2.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp2.StatusCode)
}

func TestDevServer_Update_UnknownKey(t *testing.T) {
	srv := newTestBackend(t, Options{})

	raw, _ := json.Marshal(models.Company{Name: "Ghost"})
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/companies/no-such-key", bytes.NewReader(raw))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDevServer_FaultInjection(t *testing.T) {
	srv := newTestBackend(t, Options{FailEveryN: 2})

	first := postJSON(t, srv.URL+"/api/leads", "", models.Lead{FirstName: "A"})
	first.Body.Close()
	assert.Equal(t, http.StatusCreated, first.StatusCode)

	second := postJSON(t, srv.URL+"/api/leads", "", models.Lead{FirstName: "B"})
	second.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, second.StatusCode)

	third := postJSON(t, srv.URL+"/api/leads", "", models.Lead{FirstName: "C"})
	third.Body.Close()
	assert.Equal(t, http.StatusCreated, third.StatusCode)
}

func TestDevServer_AuthRequiredWhenSecretSet(t *testing.T) {
	srv := newTestBackend(t, Options{JWTSecret: "test-secret"})

	resp, err := http.Get(srv.URL + "/api/leads")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tokenResp, err := http.Post(srv.URL+"/api/auth/token", "application/json", nil)
	require.NoError(t, err)
	defer tokenResp.Body.Close()
	require.Equal(t, http.StatusOK, tokenResp.StatusCode)

	var issued tokenResponse
	require.NoError(t, json.NewDecoder(tokenResp.Body).Decode(&issued))
	require.NotEmpty(t, issued.Token)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/leads", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+issued.Token)

	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	authed.Body.Close()
	assert.Equal(t, http.StatusOK, authed.StatusCode)
}

func TestDevServer_SeedPopulatesCollections(t *testing.T) {
	srv := newTestBackend(t, Options{Seed: 5})

	for _, collection := range []string{"leads", "contacts", "companies", "opportunities", "activities"} {
		resp, err := http.Get(srv.URL + "/api/" + collection)
		require.NoError(t, err)

		var list models.RemoteList
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
		resp.Body.Close()
		assert.Equal(t, 5, list.Length, collection)
	}
}
