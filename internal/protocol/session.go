package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/your-org/wealthpath/internal/engine"
	"github.com/your-org/wealthpath/internal/metrics"
	"github.com/your-org/wealthpath/internal/montecarlo"
	"github.com/your-org/wealthpath/internal/optimizer"
)

// progressEvery throttles progress messages on the wire.
const progressEvery = 250 * time.Millisecond

// Session serves one WebSocket client. Requests are processed one at a
// time; a transport or simulation failure terminates the session with a
// single error message and discards in-flight work.
type Session struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex
}

// NewSession wraps an upgraded connection.
func NewSession(conn *websocket.Conn, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{conn: conn, logger: logger}
}

// Serve reads requests until the connection closes or the context is
// cancelled.
func (s *Session) Serve(ctx context.Context) {
	defer s.conn.Close()
	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("session read ended", zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.sendError("", err)
			return
		}

		switch env.Type {
		case TypeRunChunk:
			var req RunChunkRequest
			if err := Decode(env, &req); err != nil {
				s.sendError("", err)
				return
			}
			s.handleRunChunk(ctx, req)
		case TypeOptimize:
			var req OptimizeRequest
			if err := Decode(env, &req); err != nil {
				s.sendError("", err)
				return
			}
			s.handleOptimize(ctx, req)
		default:
			s.sendError("", errors.New("unexpected message type "+string(env.Type)))
			return
		}
	}
}

// handleRunChunk simulates the requested iteration range serially (the
// remote peer is one worker of the larger pool) and streams throttled
// progress before the completion message.
func (s *Session) handleRunChunk(ctx context.Context, req RunChunkRequest) {
	runID := uuid.NewString()
	if err := req.Params.Validate(); err != nil {
		s.sendError(runID, err)
		return
	}
	if req.Count <= 0 {
		s.sendError(runID, errors.New("chunk count must be positive"))
		return
	}

	months := req.Params.Months()
	chunk := montecarlo.NewChunkResult(months)
	lastProgress := time.Now()

	for i := 0; i < req.Count; i++ {
		if ctx.Err() != nil {
			return
		}
		globalIdx := req.StartIdx + i
		hist, err := engine.Simulate(req.Params, req.Volatility,
			&engine.Options{Seed: montecarlo.DeriveSeed(req.BaseSeed, globalIdx)})
		if err != nil {
			s.sendError(runID, err)
			return
		}
		pm := metrics.Extract(hist, req.Params, metrics.Config{})
		chunk.Add(hist, pm)
		if i < req.SamplePaths {
			chunk.SamplePaths = append(chunk.SamplePaths, hist)
		}

		if time.Since(lastProgress) >= progressEvery {
			lastProgress = time.Now()
			s.send(TypeProgress, ProgressMessage{
				RunID: runID, WorkerID: req.WorkerID,
				Completed: i + 1, Total: req.Count,
			})
		}
	}

	s.send(TypeResult, ChunkCompletion{
		RunID:              runID,
		WorkerID:           req.WorkerID,
		StartIdx:           req.StartIdx,
		Count:              chunk.Paths,
		EndWealth:          chunk.EndWealth,
		RealEndWealth:      chunk.RealEndWealth,
		WealthAtRetirement: chunk.WealthAtRetirement,
		EarlyReturns:       chunk.EarlyReturns,
		FillMonths:         chunk.FillMonths,
		Successes:          chunk.Successes,
		Ruins:              chunk.Ruins,
		Preserved:          chunk.Preserved,
		SamplePaths:        chunk.SamplePaths,
	})
}

func (s *Session) handleOptimize(ctx context.Context, req OptimizeRequest) {
	runID := uuid.NewString()
	obj, err := req.Strategy()
	if err != nil {
		s.sendError(runID, err)
		return
	}
	if err := req.Params.Validate(); err != nil {
		s.sendError(runID, err)
		return
	}

	opt := optimizer.New(req.Params, obj, req.Grid, req.Score, montecarlo.Options{
		Iterations: req.Iterations,
		ChunkSize:  req.ChunkSize,
		Workers:    req.Workers,
		BaseSeed:   req.SeedBase,
		Volatility: req.Volatility,
	}, s.logger)

	lastProgress := time.Now()
	opt.OnCandidate = func(done, total int, _ *optimizer.Candidate) {
		if time.Since(lastProgress) < progressEvery && done < total {
			return
		}
		lastProgress = time.Now()
		s.send(TypeProgress, ProgressMessage{RunID: runID, Completed: done, Total: total})
	}

	var best *optimizer.Candidate
	if req.Count > 0 {
		best, err = opt.EvaluateRange(ctx, req.StartIdx, req.Count)
	} else {
		best, err = opt.Run(ctx)
	}

	switch {
	case errors.Is(err, optimizer.ErrNoViableCandidate):
		// Score stays zero: -Inf does not survive JSON and Viable already
		// marks the outcome.
		s.send(TypeBest, BestMessage{RunID: runID, Viable: false, Index: -1})
	case err != nil:
		s.sendError(runID, err)
	default:
		params := best.Params
		msg := BestMessage{RunID: runID, Viable: true, Index: best.Index, Params: &params, Score: best.Score}
		if best.Result != nil {
			summary := best.Result.Summary
			msg.Summary = &summary
		}
		s.send(TypeBest, msg)
	}
}

func (s *Session) send(t MessageType, payload any) {
	data, err := Encode(t, payload)
	if err != nil {
		s.logger.Error("encode message", zap.Error(err))
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("session write failed", zap.Error(err))
	}
}

func (s *Session) sendError(runID string, err error) {
	s.logger.Warn("session request failed", zap.String("run_id", runID), zap.Error(err))
	s.send(TypeError, ErrorMessage{RunID: runID, Error: err.Error()})
}
