package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/dbtest"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/repository"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/ledger"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/roles"
)

func TestHealthHandler_ReportsLastBatchID(t *testing.T) {
	db := dbtest.New(t)
	roleSvc := roles.NewService(repository.NewBunRoleRepository(db), admin)
	ledgerSvc := ledger.NewService(
		repository.NewBunBatchRepository(db),
		repository.NewBunEventRepository(db),
		roleSvc,
	)
	handler := HealthHandler(ledgerSvc, true, zerolog.Nop())

	check := func() (int, healthResponse) {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		var body healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return rec.Code, body
	}

	status, body := check()
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, healthResponse{Status: "ok", DevMode: true}, body)

	ctx := context.Background()
	require.NoError(t, roleSvc.Grant(ctx, admin, "A", custody.RoleCollector))
	for i := 0; i < 2; i++ {
		_, err := ledgerSvc.CreateBatch(ctx, "A", "REF", "cid")
		require.NoError(t, err)
	}
	_, body = check()
	assert.Equal(t, int64(2), body.LastBatchID)

	require.NoError(t, db.Close())
	status, body = check()
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unavailable", body.Status)
}
