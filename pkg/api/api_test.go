package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohitM0/eliza-tx/pkg/logger"
	"github.com/mohitM0/eliza-tx/pkg/models"
	"github.com/mohitM0/eliza-tx/pkg/orchestrator"
)

type stubService struct {
	lastReq  models.TransferRequest
	outcome  models.Outcome
	sweepErr error
	sweeps   int
}

func (s *stubService) Submit(_ context.Context, req models.TransferRequest) models.Outcome {
	s.lastReq = req
	return s.outcome
}

func (s *stubService) RunDueSweep(_ context.Context) error {
	s.sweeps++
	return s.sweepErr
}

func newTestServer(svc *stubService) *httptest.Server {
	return httptest.NewServer(NewServer("0", svc, &logger.EmptyLogger{}).Handler())
}

func TestSubmitTransfer(t *testing.T) {
	svc := &stubService{outcome: models.Outcome{Status: models.StatusInProgress, Hash: "0xabc"}}
	srv := newTestServer(svc)
	defer srv.Close()

	body := `{"kind":"transfer","wallet_address":"0x1111111111111111111111111111111111111111","source_chain":10,"to_address":"0x2222222222222222222222222222222222222222","amount":"1.5"}`
	resp, err := http.Post(srv.URL+"/v1/transfers", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var outcome models.Outcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&outcome))
	assert.Equal(t, models.StatusInProgress, outcome.Status)
	assert.Equal(t, "0xabc", outcome.Hash)
	assert.Equal(t, models.KindTransfer, svc.lastReq.Kind)
	assert.Equal(t, 10, svc.lastReq.SourceChain)
}

func TestSubmitFailedOutcome(t *testing.T) {
	svc := &stubService{outcome: models.Outcome{Status: models.StatusFailed, Message: "no route available"}}
	srv := newTestServer(svc)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/transfers", "application/json", strings.NewReader(`{"kind":"swap"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var outcome models.Outcome
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&outcome))
	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Contains(t, outcome.Message, "no route")
}

func TestSubmitRejectsBadJSON(t *testing.T) {
	srv := newTestServer(&stubService{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/transfers", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitRejectsGet(t *testing.T) {
	srv := newTestServer(&stubService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/transfers")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestSweepEndpoint(t *testing.T) {
	svc := &stubService{}
	srv := newTestServer(svc)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/sweeps/run", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, svc.sweeps)
}

func TestSweepConflictWhenRunning(t *testing.T) {
	svc := &stubService{sweepErr: orchestrator.ErrSweepInProgress}
	srv := newTestServer(svc)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/sweeps/run", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
