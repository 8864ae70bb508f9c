package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parpool/parpool/internal/admin"
	"github.com/parpool/parpool/internal/config"
	"github.com/parpool/parpool/internal/engine"
	"github.com/parpool/parpool/internal/ledger"
	"github.com/parpool/parpool/internal/registry"
	"github.com/parpool/parpool/internal/types"
)

const operator = "operator"

// newTestServer builds a web server over an initialized two-asset sim pool.
// Returned receipts slice collects everything the server persisted.
func newTestServer(t *testing.T) (*WebServer, *[]types.OperationReceipt) {
	t.Helper()

	tokens := ledger.NewMemoryTokenLedger()
	shares := ledger.NewMemoryShareLedger()
	events := ledger.NewRingSink(64)

	eng, err := engine.New(engine.Config{
		Registry: registry.New(),
		Tokens:   tokens,
		Shares:   shares,
		Events:   events,
		FeeRate:  math.NewInt(1_000_000),
	})
	require.NoError(t, err)

	ctrl, err := admin.NewController(eng, ledger.NewStaticPermissionGate(operator))
	require.NoError(t, err)

	for _, id := range []types.AssetID{"usda", "usdb"} {
		require.NoError(t, ctrl.Register(operator, id, math.NewInt(100_000_000), math.NewInt(900_000_000)))
		require.NoError(t, ctrl.SetAccepting(operator, id, true))
		tokens.SetBalance(id, operator, types.ValueScale.MulRaw(10))
	}
	_, err = eng.Initialize(operator, "usda", types.ValueScale)
	require.NoError(t, err)
	half := types.ValueScale.QuoRaw(2)
	tokens.SetBalance("usda", ledger.PoolAccount, half)
	tokens.SetBalance("usdb", ledger.PoolAccount, half)

	persisted := &[]types.OperationReceipt{}
	server, err := NewWebServer(Config{
		Port:   "0",
		Engine: eng,
		Admin:  ctrl,
		Events: events,
		PersistReceipt: func(receipt types.OperationReceipt) error {
			*persisted = append(*persisted, receipt)
			return nil
		},
	})
	require.NoError(t, err)
	return server, persisted
}

func doJSON(t *testing.T, server *WebServer, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.router.ServeHTTP(rec, req)
	return rec
}

func TestNewWebServer(t *testing.T) {
	t.Run("NilEngineRejected", func(t *testing.T) {
		_, err := NewWebServer(Config{})
		assert.Error(t, err)
	})
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OK", body["status"])

	// Receipts persist through an in-memory hook here; without an open
	// postgres connection that must not count against health.
	poolStatus, ok := body["pool_status"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, poolStatus["database_healthy"])
	assert.Equal(t, true, poolStatus["initialized"])
}

func TestGetPool(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodGet, "/api/pool", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot types.PoolSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.True(t, snapshot.AggregateSize.Equal(types.ValueScale))
	assert.True(t, snapshot.ShareSupply.Equal(types.ValueScale))
	assert.Len(t, snapshot.Assets, 2)
	assert.Len(t, snapshot.Balances, 2)
}

func TestGetAssetLimits(t *testing.T) {
	server, _ := newTestServer(t)

	t.Run("KnownAsset", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodGet, "/api/assets/usda/limits", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var limits types.AssetLimits
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &limits))
		assert.Equal(t, types.AssetID("usda"), limits.ID)
		assert.True(t, limits.Balance.Equal(types.ValueScale.QuoRaw(2)))
		// ceiling 90% of 1e18 minus the half held
		assert.True(t, limits.MaxAddable.Equal(types.ValueScale.MulRaw(9).QuoRaw(10).Sub(types.ValueScale.QuoRaw(2))))
	})

	t.Run("UnknownAsset", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodGet, "/api/assets/ghost/limits", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestOperationEndpoints(t *testing.T) {
	t.Run("Swap", func(t *testing.T) {
		server, persisted := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/operations/swap", operationRequest{
			Caller: operator, From: "usda", To: "usdb", Amount: "1000",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var receipt types.OperationReceipt
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
		assert.Equal(t, types.OpSwap, receipt.Kind)
		assert.True(t, receipt.FeePaid.Equal(math.NewInt(1)))
		require.Len(t, *persisted, 1)
		assert.Equal(t, receipt.ID, (*persisted)[0].ID)
	})

	t.Run("SwapOverLimitConflicts", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/operations/swap", operationRequest{
			Caller: operator, From: "usda", To: "usdb", Amount: types.ValueScale.String(),
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("AddToUnknownAsset", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/operations/add", operationRequest{
			Caller: operator, Asset: "ghost", Amount: "1000",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("AddEvenly", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/operations/add-evenly", operationRequest{
			Caller: operator, Amount: "1000000",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var receipt types.OperationReceipt
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
		assert.Equal(t, types.OpAddEvenly, receipt.Kind)
		assert.Len(t, receipt.Legs, 2)
	})

	t.Run("RemoveEvenly", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/operations/remove-evenly", operationRequest{
			Caller: operator, Amount: "1000000",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("MalformedAmount", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/operations/add", operationRequest{
			Caller: operator, Asset: "usda", Amount: "not-a-number",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		server, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/api/operations/add", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		server.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAdminEndpoints(t *testing.T) {
	t.Run("UnauthorizedCallerForbidden", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/admin/fee-rate", adminRequest{
			Caller: "mallory", Rate: "2000000",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("SetFeeRate", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/admin/fee-rate", adminRequest{
			Caller: operator, Rate: "2000000",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.True(t, server.engine.FeeRate().Equal(math.NewInt(2_000_000)))
	})

	t.Run("RegisterAssetWithDefaultBounds", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/admin/assets", adminRequest{
			Caller: operator, Asset: "usdd",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, config.DefaultLowBound.String(), body["low_bound"])
		assert.Equal(t, config.DefaultHighBound.String(), body["high_bound"])
	})

	t.Run("RegisterAsset", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/admin/assets", adminRequest{
			Caller: operator, Asset: "usdc", LowBound: "0", HighBound: "500000000",
		})
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = doJSON(t, server, http.MethodPost, "/api/admin/assets", adminRequest{
			Caller: operator, Asset: "usdc", LowBound: "0", HighBound: "500000000",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("SetBounds", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/admin/assets/usda/bounds", adminRequest{
			Caller: operator, LowBound: "200000000", HighBound: "800000000",
		})
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("BoundAboveScaleRejected", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/admin/assets/usda/bounds", adminRequest{
			Caller: operator, LowBound: "0", HighBound: "1000000001",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("SetAcceptingRequiresFlag", func(t *testing.T) {
		server, _ := newTestServer(t)
		rec := doJSON(t, server, http.MethodPost, "/api/admin/assets/usda/accepting", adminRequest{
			Caller: operator,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		accepting := false
		rec = doJSON(t, server, http.MethodPost, "/api/admin/assets/usda/accepting", adminRequest{
			Caller: operator, Accepting: &accepting,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		// The asset now refuses deposits.
		rec = doJSON(t, server, http.MethodPost, "/api/operations/add", operationRequest{
			Caller: operator, Asset: "usda", Amount: "1000",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestEventsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	// Setup already emitted registration and accept events plus the initial
	// deposit. A swap adds one more.
	rec := doJSON(t, server, http.MethodPost, "/api/operations/swap", operationRequest{
		Caller: operator, From: "usda", To: "usdb", Amount: "1000",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, server, http.MethodGet, "/api/events?limit=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Events []struct {
			Kind  string          `json:"kind"`
			Event json.RawMessage `json:"event"`
		} `json:"events"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, "swap", body.Events[len(body.Events)-1].Kind)
}

func TestReceiptsDisabledWithoutPersistence(t *testing.T) {
	server, _ := newTestServer(t)
	server.persistReceipt = nil

	for _, path := range []string{"/api/receipts", "/api/receipts/" + fmt.Sprint(42), "/api/snapshots", "/api/summary"} {
		rec := doJSON(t, server, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
