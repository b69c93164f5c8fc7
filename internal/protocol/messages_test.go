package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/wealthpath/internal/engine"
	"github.com/your-org/wealthpath/internal/optimizer"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	req := RunChunkRequest{
		Params: engine.Parameters{
			StartCash:         1000,
			AccumulationYears: 1,
			WithdrawalYears:   1,
			Payout:            engine.PercentPayout(0.04),
		},
		Volatility: 0.15,
		StartIdx:   200,
		Count:      100,
		BaseSeed:   42,
		WorkerID:   "w-3",
	}

	data, err := Encode(TypeRunChunk, req)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeRunChunk, env.Type)

	var got RunChunkRequest
	require.NoError(t, Decode(env, &got))
	assert.Equal(t, req, got)
	assert.Equal(t, engine.PayoutPercentOfWealth, got.Params.Payout.Kind(),
		"the payout union survives the wire")
}

func TestDecodeBadPayload(t *testing.T) {
	env := Envelope{Type: TypeRunChunk, Payload: json.RawMessage(`{"count": "many"}`)}
	var req RunChunkRequest
	err := Decode(env, &req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run-chunk")
}

func TestOptimizeRequestStrategy(t *testing.T) {
	obj, err := OptimizeRequest{}.Strategy()
	require.NoError(t, err)
	assert.Equal(t, "maximize-payout", obj.Name())

	obj, err = OptimizeRequest{Objective: "minimize-budget", TargetPayout: engine.FixedPayout(500)}.Strategy()
	require.NoError(t, err)
	assert.Equal(t, optimizer.MinimizeBudget{TargetPayout: engine.FixedPayout(500)}, obj)

	_, err = OptimizeRequest{Objective: "paperclips"}.Strategy()
	assert.Error(t, err)
}
