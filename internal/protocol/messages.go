// Package protocol defines the wire messages and WebSocket session for
// driving chunked Monte Carlo runs and optimizer searches remotely.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/your-org/wealthpath/internal/engine"
	"github.com/your-org/wealthpath/internal/montecarlo"
	"github.com/your-org/wealthpath/internal/optimizer"
)

// MessageType tags the envelope payload.
type MessageType string

const (
	TypeRunChunk MessageType = "run-chunk"
	TypeOptimize MessageType = "optimize"
	TypeProgress MessageType = "progress"
	TypeResult   MessageType = "result"
	TypeBest     MessageType = "best"
	TypeError    MessageType = "error"
)

// Envelope wraps every message on the wire.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps a payload into an envelope and marshals it.
func Encode(t MessageType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	return json.Marshal(Envelope{Type: t, Payload: raw})
}

// Decode unmarshals an envelope's payload into out.
func Decode(env Envelope, out any) error {
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return nil
}

// RunChunkRequest asks the peer to simulate the iteration range
// [StartIdx, StartIdx+Count) with per-iteration seeds derived from
// BaseSeed, exactly as the in-process pool would.
type RunChunkRequest struct {
	Params      engine.Parameters `json:"params"`
	Volatility  float64           `json:"volatility"`
	StartIdx    int               `json:"start_idx"`
	Count       int               `json:"count"`
	BaseSeed    int64             `json:"base_seed"`
	WorkerID    string            `json:"worker_id"`
	SamplePaths int               `json:"sample_paths"`
}

// OptimizeRequest asks the peer to run a grid search. Count > 0 limits
// evaluation to the candidate range [StartIdx, StartIdx+Count) for
// pooled evaluation across several peers.
type OptimizeRequest struct {
	Params       engine.Parameters     `json:"params"`
	Objective    string                `json:"objective"` // maximize-payout | minimize-budget
	Budget       float64               `json:"budget,omitempty"`
	TargetPayout engine.Payout         `json:"target_payout,omitempty"`
	Grid         optimizer.GridConfig  `json:"grid"`
	Score        optimizer.ScoreConfig `json:"score"`

	Iterations int     `json:"iterations"`
	ChunkSize  int     `json:"chunk_size,omitempty"`
	Workers    int     `json:"workers,omitempty"`
	Volatility float64 `json:"volatility"`
	SeedBase   int64   `json:"seed_base"`

	StartIdx int `json:"start_idx,omitempty"`
	Count    int `json:"count,omitempty"`
}

// Strategy resolves the request's objective tag.
func (r OptimizeRequest) Strategy() (optimizer.Objective, error) {
	switch r.Objective {
	case "maximize-payout", "":
		return optimizer.MaximizePayout{Budget: r.Budget}, nil
	case "minimize-budget":
		return optimizer.MinimizeBudget{TargetPayout: r.TargetPayout}, nil
	default:
		return nil, fmt.Errorf("unknown objective %q", r.Objective)
	}
}

// ProgressMessage reports throttled run progress.
type ProgressMessage struct {
	RunID     string `json:"run_id"`
	WorkerID  string `json:"worker_id,omitempty"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	ETAMillis int64  `json:"eta_millis,omitempty"`
}

// ChunkCompletion carries the raw per-path values of a finished chunk.
// The coordinator merges these before computing any percentile.
type ChunkCompletion struct {
	RunID    string `json:"run_id"`
	WorkerID string `json:"worker_id,omitempty"`
	StartIdx int    `json:"start_idx"`
	Count    int    `json:"count"`

	EndWealth          []float64 `json:"end_wealth"`
	RealEndWealth      []float64 `json:"real_end_wealth"`
	WealthAtRetirement []float64 `json:"wealth_at_retirement"`
	EarlyReturns       []float64 `json:"early_returns"`
	FillMonths         []int     `json:"fill_months"`
	Successes          int       `json:"successes"`
	Ruins              int       `json:"ruins"`
	Preserved          int       `json:"preserved"`

	SamplePaths []engine.History `json:"sample_paths,omitempty"`
}

// BestMessage carries the optimizer outcome. Viable is false when every
// candidate was disqualified; that is a distinguished empty result, not
// an error.
type BestMessage struct {
	RunID   string              `json:"run_id"`
	Viable  bool                `json:"viable"`
	Index   int                 `json:"index"`
	Params  *engine.Parameters  `json:"params,omitempty"`
	Score   float64             `json:"score"`
	Summary *montecarlo.Summary `json:"summary,omitempty"`
}

// ErrorMessage terminates a run after a fatal failure.
type ErrorMessage struct {
	RunID string `json:"run_id,omitempty"`
	Error string `json:"error"`
}
