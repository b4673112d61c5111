package bungee

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/provideplatform/bungee/ledger/providers"
	"github.com/provideplatform/bungee/merkletree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(o *Orchestrator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	InstallAPI(r, o)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf []byte
	if body != nil {
		var err error
		buf, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, path, bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPublicKeyHandler(t *testing.T) {
	o, _ := testOrchestrator(t)
	w := doRequest(t, testRouter(o), "GET", "/api/v1/bungee/public-key", nil)
	require.Equal(t, 200, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, o.PublicKey(), resp["public_key"])
	assert.Equal(t, o.SignatureScheme(), resp["scheme"])
}

func TestStrategiesHandler(t *testing.T) {
	o, _ := testOrchestrator(t)
	w := doRequest(t, testRouter(o), "GET", "/api/v1/bungee/strategies", nil)
	require.Equal(t, 200, w.Code)

	var resp []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{providers.LedgerStateProviderMemory}, resp)
}

func TestCreateViewHandler(t *testing.T) {
	o, _ := testOrchestrator(t, testState("A", "100"))
	r := testRouter(o)

	w := doRequest(t, r, "POST", "/api/v1/bungee/create-view", &CreateViewRequest{
		StrategyID: providers.LedgerStateProviderMemory,
	})
	require.Equal(t, 200, w.Code)

	var resp ViewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.View)
	assert.NotEmpty(t, resp.Signature)

	w = doRequest(t, r, "POST", "/api/v1/bungee/create-view", &CreateViewRequest{StrategyID: "fabric"})
	assert.Equal(t, 404, w.Code)

	w = doRequest(t, r, "POST", "/api/v1/bungee/create-view", &CreateViewRequest{})
	assert.Equal(t, 422, w.Code)

	tI := "now"
	w = doRequest(t, r, "POST", "/api/v1/bungee/create-view", &CreateViewRequest{
		StrategyID: providers.LedgerStateProviderMemory,
		TI:         &tI,
	})
	assert.Equal(t, 400, w.Code)

	require.NoError(t, o.AddStrategy("besu", &unavailableProvider{}))
	w = doRequest(t, r, "POST", "/api/v1/bungee/create-view", &CreateViewRequest{StrategyID: "besu"})
	assert.Equal(t, 503, w.Code)
}

func TestProcessAndMergeViewsHandlers(t *testing.T) {
	besu, _ := testOrchestrator(t, testState("A", "100"), testState("B", "200"))
	fabric, _ := testOrchestrator(t, testState("C", "300"))
	o, _ := testOrchestrator(t)
	r := testRouter(o)

	w := doRequest(t, r, "POST", "/api/v1/bungee/process-view", &ProcessViewRequest{
		SerializedView:  createView(t, besu, "besu"),
		PolicyID:        "PruneState",
		PolicyArguments: []string{"B"},
	})
	require.Equal(t, 200, w.Code)

	var processed ViewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &processed))
	envelope, err := processed.Envelope()
	require.NoError(t, err)

	w = doRequest(t, r, "POST", "/api/v1/bungee/process-view", &ProcessViewRequest{})
	assert.Equal(t, 422, w.Code)

	w = doRequest(t, r, "POST", "/api/v1/bungee/merge-views", &MergeViewsRequest{
		SerializedViews: []string{envelope, createView(t, fabric, "fabric")},
	})
	require.Equal(t, 200, w.Code)

	var merged MergeViewsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &merged))
	assert.NotEmpty(t, merged.IntegratedView)
	assert.NotEmpty(t, merged.Signature)

	w = doRequest(t, r, "POST", "/api/v1/bungee/merge-views", &MergeViewsRequest{
		SerializedViews: []string{envelope},
	})
	assert.Equal(t, 400, w.Code)
}

func TestVerifyMerkleRootHandler(t *testing.T) {
	o, _ := testOrchestrator(t)
	r := testRouter(o)

	leaves := []string{"x", "y", "z"}
	w := doRequest(t, r, "POST", "/api/v1/bungee/verify-merkle-root", &VerifyMerkleRootRequest{
		Input: leaves,
		Root:  merkletree.Root(leaves),
	})
	require.Equal(t, 200, w.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["result"])

	w = doRequest(t, r, "POST", "/api/v1/bungee/verify-merkle-root", &VerifyMerkleRootRequest{
		Input: leaves[1:],
		Root:  merkletree.Root(leaves),
	})
	require.Equal(t, 200, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp["result"])
}
