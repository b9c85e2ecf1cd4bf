package status

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holla2040/beagleg/internal/axis"
	"github.com/holla2040/beagleg/internal/backend"
	"github.com/holla2040/beagleg/internal/config"
	"github.com/holla2040/beagleg/internal/peripheral"
	"github.com/holla2040/beagleg/internal/planner"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	b := config.DefaultBuilder()
	b.MoveRangeMM = [axis.NumAxes]float64{200, 200, 200, 0, 0}
	b.RequireHoming = false
	cfg, err := b.Build()
	require.NoError(t, err)

	p := planner.New(cfg, backend.NewMock(), peripheral.NewMock(), &bytes.Buffer{}, nil)
	return New(p)
}

func TestBroadcastWithNoClientsIsANoOp(t *testing.T) {
	s := newTestServer(t)
	assert.NotPanics(t, func() { s.Broadcast() })
}

func TestHandleStatusServesSnapshot(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_id")
}

func TestPlannerOnEmitDrivesBroadcast(t *testing.T) {
	b := config.DefaultBuilder()
	b.MoveRangeMM = [axis.NumAxes]float64{200, 200, 200, 0, 0}
	b.RequireHoming = false
	cfg, err := b.Build()
	require.NoError(t, err)

	p := planner.New(cfg, backend.NewMock(), peripheral.NewMock(), &bytes.Buffer{}, nil)
	s := New(p)
	calls := 0
	p.SetOnEmit(func() { calls++; s.Broadcast() })

	p.CoordinatedMove(50, [axis.NumAxes]float64{10, 0, 0, 0, 0})
	p.CoordinatedMove(50, [axis.NumAxes]float64{20, 0, 0, 0, 0})
	assert.Equal(t, 1, calls)
}
