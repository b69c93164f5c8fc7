package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/wealthpath/internal/engine"
	"github.com/your-org/wealthpath/internal/optimizer"
	"github.com/your-org/wealthpath/internal/protocol"
)

func TestHealthCheckHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	HealthCheckHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func dialTestServer(t *testing.T) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewSimulationHandler(zap.NewNop()))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	return conn
}

func sendRequest(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, payload any) {
	t.Helper()
	data, err := protocol.Encode(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// readUntil skips progress messages and returns the first envelope of
// the wanted type, failing on an error message.
func readUntil(t *testing.T, conn *websocket.Conn, want protocol.MessageType) protocol.Envelope {
	t.Helper()
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var env protocol.Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		switch env.Type {
		case want:
			return env
		case protocol.TypeProgress:
			continue
		case protocol.TypeError:
			var em protocol.ErrorMessage
			require.NoError(t, protocol.Decode(env, &em))
			t.Fatalf("server reported error: %s", em.Error)
		default:
			t.Fatalf("unexpected message type %s", env.Type)
		}
	}
}

func chunkParams() engine.Parameters {
	return engine.Parameters{
		StartCash:                 4000,
		StartEquity:               100,
		MonthlyCashContribution:   100,
		MonthlyEquityContribution: 150,
		CashRate:                  0.03,
		EquityRate:                0.06,
		CashTarget:                5000,
		AccumulationYears:         5,
		WithdrawalYears:           5,
		Payout:                    engine.FixedPayout(300),
	}
}

func TestSimulationHandlerRunChunk(t *testing.T) {
	conn := dialTestServer(t)

	sendRequest(t, conn, protocol.TypeRunChunk, protocol.RunChunkRequest{
		Params:     chunkParams(),
		Volatility: 0.1,
		StartIdx:   40,
		Count:      20,
		BaseSeed:   7,
		WorkerID:   "remote-1",
	})

	env := readUntil(t, conn, protocol.TypeResult)
	var res protocol.ChunkCompletion
	require.NoError(t, protocol.Decode(env, &res))

	assert.Equal(t, "remote-1", res.WorkerID)
	assert.Equal(t, 40, res.StartIdx)
	assert.Equal(t, 20, res.Count)
	assert.Len(t, res.EndWealth, 20)
	assert.Len(t, res.EarlyReturns, 20)
	assert.Empty(t, res.SamplePaths)
}

func TestSimulationHandlerRunChunkDeterministic(t *testing.T) {
	// The same request must yield byte-wise identical samples: remote
	// chunks take part in the common-random-number scheme.
	run := func() protocol.ChunkCompletion {
		conn := dialTestServer(t)
		sendRequest(t, conn, protocol.TypeRunChunk, protocol.RunChunkRequest{
			Params:     chunkParams(),
			Volatility: 0.2,
			StartIdx:   0,
			Count:      10,
			BaseSeed:   99,
		})
		env := readUntil(t, conn, protocol.TypeResult)
		var res protocol.ChunkCompletion
		require.NoError(t, protocol.Decode(env, &res))
		return res
	}

	a, b := run(), run()
	assert.Equal(t, a.EndWealth, b.EndWealth)
	assert.Equal(t, a.Successes, b.Successes)
}

func TestSimulationHandlerRejectsBadChunk(t *testing.T) {
	conn := dialTestServer(t)

	params := chunkParams()
	params.TaxRate = 5 // invalid
	sendRequest(t, conn, protocol.TypeRunChunk, protocol.RunChunkRequest{
		Params: params,
		Count:  10,
	})

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	require.Equal(t, protocol.TypeError, env.Type)

	var em protocol.ErrorMessage
	require.NoError(t, protocol.Decode(env, &em))
	assert.Contains(t, em.Error, "tax rate")
}

func TestSimulationHandlerOptimize(t *testing.T) {
	conn := dialTestServer(t)

	sendRequest(t, conn, protocol.TypeOptimize, protocol.OptimizeRequest{
		Params:    chunkParams(),
		Objective: "maximize-payout",
		Budget:    250,
		Grid: optimizer.GridConfig{
			SplitSteps: 1,
			PayoutMin:  100,
			PayoutMax:  200,
			PayoutStep: 100,
		},
		Iterations: 30,
		ChunkSize:  15,
		Volatility: 0.1,
		SeedBase:   42,
	})

	env := readUntil(t, conn, protocol.TypeBest)
	var best protocol.BestMessage
	require.NoError(t, protocol.Decode(env, &best))

	require.True(t, best.Viable)
	require.NotNil(t, best.Params)
	assert.GreaterOrEqual(t, best.Index, 0)
	require.NotNil(t, best.Summary)
	assert.Equal(t, 30, best.Summary.Iterations)
}

func TestSimulationHandlerOptimizeNoViable(t *testing.T) {
	conn := dialTestServer(t)

	sendRequest(t, conn, protocol.TypeOptimize, protocol.OptimizeRequest{
		Params: chunkParams(),
		Grid: optimizer.GridConfig{
			SplitSteps: 1,
			PayoutMin:  50000, // nothing sustains this
			PayoutMax:  50000,
			PayoutStep: 1,
		},
		Iterations: 20,
		Volatility: 0.1,
		SeedBase:   42,
	})

	env := readUntil(t, conn, protocol.TypeBest)
	var best protocol.BestMessage
	require.NoError(t, protocol.Decode(env, &best))

	assert.False(t, best.Viable, "an empty grid outcome is a distinguished result, not an error")
	assert.Equal(t, -1, best.Index)
	assert.Nil(t, best.Params)
}
