package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/content"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/dbtest"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/metadata"
	ledgermw "github.com/terraconstructs/herbledger/cmd/herbledger/internal/middleware"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/repository"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/ledger"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/roles"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/trail"
)

const admin = "admin"

type testServer struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := dbtest.New(t)

	writeLock := &sync.Mutex{}
	roleSvc := roles.NewService(repository.NewBunRoleRepository(db), admin).WithWriteLock(writeLock)
	ledgerSvc := ledger.NewService(
		repository.NewBunBatchRepository(db),
		repository.NewBunEventRepository(db),
		roleSvc,
	).WithWriteLock(writeLock)

	store, err := content.NewMemoryBlockStore(1)
	require.NoError(t, err)
	validator, err := metadata.NewValidator(4)
	require.NoError(t, err)
	trailSvc, err := trail.NewService(ledgerSvc, store, validator, 16)
	require.NoError(t, err)

	router := NewRouter(RouterOptions{
		Ledger:    ledgerSvc,
		Roles:     roleSvc,
		Trail:     trailSvc,
		Content:   store,
		Validator: validator,
		Gateway:   "https://gw.test/ipfs",
		Logger:    zerolog.Nop(),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv}
}

func (s *testServer) do(method, path, principal string, body []byte) (int, []byte) {
	s.t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, bytes.NewReader(body))
	require.NoError(s.t, err)
	if principal != "" {
		req.Header.Set(ledgermw.PrincipalHeader, principal)
	}
	resp, err := s.srv.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	return resp.StatusCode, out
}

func (s *testServer) json(method, path, principal string, in any, out any) int {
	s.t.Helper()
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		require.NoError(s.t, err)
	}
	status, raw := s.do(method, path, principal, body)
	if out != nil {
		require.NoError(s.t, json.Unmarshal(raw, out), string(raw))
	}
	return status
}

func (s *testServer) grant(principal, role string) {
	s.t.Helper()
	status := s.json(http.MethodPost, "/api/roles/grant", admin, roleRequest{Principal: principal, Role: role}, nil)
	require.Equal(s.t, http.StatusOK, status)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))
}

func TestAPI_RequiresPrincipal(t *testing.T) {
	s := newTestServer(t)
	var body errorBody
	status := s.json(http.MethodGet, "/api/batches", "", nil, &body)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", body.Code)
}

func TestRoles(t *testing.T) {
	s := newTestServer(t)

	var resp roleResponse
	status := s.json(http.MethodPost, "/api/roles/grant", admin, roleRequest{Principal: "alice", Role: "lab"}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 4, resp.Mask)
	assert.Equal(t, []string{"lab"}, resp.Roles)

	var errResp errorBody
	status = s.json(http.MethodPost, "/api/roles/grant", "mallory", roleRequest{Principal: "mallory", Role: "lab"}, &errResp)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "unauthorized", errResp.Code)

	status = s.json(http.MethodPost, "/api/roles/grant", admin, roleRequest{Principal: "alice", Role: "chef"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", errResp.Code)
	assert.Contains(t, errResp.Error, `unknown role "chef"`)

	status = s.json(http.MethodPost, "/api/roles/revoke", admin, roleRequest{Principal: " ", Role: "lab"}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, errResp.Error, "principal is required")

	// a non-admin learns nothing about its input
	status = s.json(http.MethodPost, "/api/roles/grant", "mallory", roleRequest{Principal: "mallory", Role: "chef"}, &errResp)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "unauthorized", errResp.Code)
	assert.NotContains(t, errResp.Error, "chef")

	status = s.json(http.MethodGet, "/api/roles/alice", "anyone", nil, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"lab"}, resp.Roles)

	var list []roles.Assignment
	require.Equal(t, http.StatusOK, s.json(http.MethodGet, "/api/roles", "anyone", nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "alice", list[0].Principal)

	status = s.json(http.MethodPost, "/api/roles/revoke", admin, roleRequest{Principal: "alice", Role: "lab"}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, resp.Mask)
}

func TestBatchLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.grant("A", "collector")
	s.grant("B", "middleman")
	s.grant("C", "lab")
	s.grant("D", "manufacturer")

	var created ledger.BatchCreated
	status := s.json(http.MethodPost, "/api/batches", "A", createBatchRequest{Reference: "REF1", ContentID: "cidA"}, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(1), created.BatchID)

	var errResp errorBody
	status = s.json(http.MethodPost, "/api/batches/1/stages/lab", "C", stageRequest{ContentID: "cidC"}, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "stage_out_of_order", errResp.Code)

	status = s.json(http.MethodPost, "/api/batches/1/stages/middleman", "C", stageRequest{ContentID: "cidB"}, &errResp)
	assert.Equal(t, http.StatusForbidden, status)

	for _, step := range []struct{ who, stage, cid string }{
		{"B", "middleman", "cidB"},
		{"C", "lab", "cidC"},
		{"D", "manufacturer", "cidD"},
	} {
		var resp stageResponse
		status = s.json(http.MethodPost, "/api/batches/1/stages/"+step.stage, step.who, stageRequest{ContentID: step.cid}, &resp)
		require.Equal(t, http.StatusOK, status, step.stage)
		assert.Equal(t, step.who, resp.Writer)
	}

	status = s.json(http.MethodPost, "/api/batches/1/stages/lab", "C", stageRequest{ContentID: "again"}, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_recorded", errResp.Code)

	var full ledger.FullBatch
	require.Equal(t, http.StatusOK, s.json(http.MethodGet, "/api/batches/1", "anyone", nil, &full))
	assert.Equal(t, [4]string{"cidA", "cidB", "cidC", "cidD"}, full.CIDs())

	var summary ledger.BatchSummary
	require.Equal(t, http.StatusOK, s.json(http.MethodGet, "/api/batches/1/summary", "anyone", nil, &summary))
	assert.True(t, summary.Complete())

	var record ledger.BatchRecord
	require.Equal(t, http.StatusOK, s.json(http.MethodGet, "/api/batches/1/record", "anyone", nil, &record))
	assert.Equal(t, ledger.StatusComplete, record.Status)

	var list []ledger.BatchSummary
	require.Equal(t, http.StatusOK, s.json(http.MethodGet, "/api/batches?filter=complete%20%3D%3D%20true", "anyone", nil, &list))
	assert.Len(t, list, 1)

	var report ledger.ChainReport
	require.Equal(t, http.StatusOK, s.json(http.MethodGet, "/api/events/verify", "anyone", nil, &report))
	assert.True(t, report.Valid)

	var evs []map[string]any
	require.Equal(t, http.StatusOK, s.json(http.MethodGet, "/api/events?batch_id=1", "anyone", nil, &evs))
	assert.Len(t, evs, 5)
}

func TestBatchErrors(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing batch", http.MethodGet, "/api/batches/9", nil, http.StatusNotFound, "batch_not_found"},
		{"bad id", http.MethodGet, "/api/batches/x", nil, http.StatusBadRequest, "invalid_input"},
		{"create without role", http.MethodPost, "/api/batches", createBatchRequest{ContentID: "c"}, http.StatusForbidden, "unauthorized"},
		{"unknown stage", http.MethodPost, "/api/batches/1/stages/chef", stageRequest{ContentID: "c"}, http.StatusBadRequest, "invalid_input"},
		{"stage on missing batch", http.MethodPost, "/api/batches/9/stages/lab", stageRequest{ContentID: "c"}, http.StatusNotFound, "batch_not_found"},
		{"bad filter", http.MethodGet, "/api/batches?filter=%3D%3D", nil, http.StatusBadRequest, "invalid_input"},
		{"bad limit", http.MethodGet, "/api/batches?limit=-1", nil, http.StatusBadRequest, "invalid_input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var errResp errorBody
			status := s.json(tc.method, tc.path, "E", tc.body, &errResp)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, errResp.Code)
		})
	}
}

func TestContentAndMetadata(t *testing.T) {
	s := newTestServer(t)
	s.grant("A", "collector")

	status, raw := s.do(http.MethodPost, "/api/content", "A", []byte("lab report"))
	require.Equal(t, http.StatusCreated, status)
	var stored contentResponse
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, "ipfs://"+stored.CID, stored.URI)
	assert.Equal(t, "https://gw.test/ipfs/"+stored.CID, stored.GatewayURL)

	status, raw = s.do(http.MethodGet, "/api/content/"+stored.CID, "A", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "lab report", string(raw))

	status, _ = s.do(http.MethodPost, "/api/metadata/collector", "A", []byte(`{"type":"collector"}`))
	assert.Equal(t, http.StatusBadRequest, status)

	doc := []byte(`{
		"type": "collector",
		"batchRef": "REF1",
		"collectorId": "COL-1",
		"species": "Withania somnifera",
		"quantityKg": 10,
		"location": {"lat": 1, "lon": 2},
		"harvestTimestamp": 1767225600,
		"photo": "ipfs://` + stored.CID + `"
	}`)
	status, raw = s.do(http.MethodPost, "/api/metadata/collector", "A", doc)
	require.Equal(t, http.StatusCreated, status, string(raw))
	var meta contentResponse
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, []string{stored.CID}, meta.Attachments)

	var created ledger.BatchCreated
	require.Equal(t, http.StatusCreated, s.json(http.MethodPost, "/api/batches", "A", createBatchRequest{Reference: "REF1", ContentID: meta.CID}, &created))

	var tr struct {
		Stages []struct {
			Set         bool           `json:"set"`
			Error       string         `json:"error"`
			Attachments []string       `json:"attachments"`
			Document    map[string]any `json:"document"`
		} `json:"stages"`
	}
	require.Equal(t, http.StatusOK, s.json(http.MethodGet, "/api/batches/1/trail", "anyone", nil, &tr))
	require.Len(t, tr.Stages, 4)
	assert.Empty(t, tr.Stages[0].Error)
	assert.Equal(t, []string{stored.CID}, tr.Stages[0].Attachments)
	assert.Equal(t, "COL-1", tr.Stages[0].Document["collectorId"])
	assert.False(t, tr.Stages[1].Set)
}
