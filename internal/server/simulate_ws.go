package server

import (
	"github.com/gin-gonic/gin"

	"agora/internal/simulation"
)

// wsMessage is the single envelope for every frame the socket sends.
type wsMessage struct {
	Type      string                       `json:"type"`
	Completed int                          `json:"completed,omitempty"`
	Total     int                          `json:"total,omitempty"`
	RunID     string                       `json:"runId,omitempty"`
	Result    *simulation.SimulationResult `json:"result,omitempty"`
	Error     string                       `json:"error,omitempty"`
}

// handleSimulateWS runs one simulation per connection: the client sends a
// request frame, the server streams progress frames and one terminal frame,
// then closes.
func (s *Server) handleSimulateWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	var req simulateRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(wsMessage{Type: "error", Error: "invalid request frame"})
		return
	}
	if err := req.validate(); err != nil {
		_ = conn.WriteJSON(wsMessage{Type: "error", Error: err.Error()})
		return
	}

	personas, err := s.resolvePersonas(c, req)
	if err != nil {
		_ = conn.WriteJSON(wsMessage{Type: "error", Error: err.Error()})
		return
	}

	runReq := simulation.RunRequest{
		Idea:          req.Idea,
		Personas:      personas,
		ReactionCount: req.ReactionCount,
	}

	// All writes stay on this goroutine; the runner only feeds the channel.
	progress := make(chan progressEvent, 1024)
	type runOutcome struct {
		result *simulation.SimulationResult
		err    error
	}
	done := make(chan runOutcome, 1)

	go func() {
		result, runErr := s.runner.Run(c.Request.Context(), runReq, func(completed, total int) {
			select {
			case progress <- progressEvent{Completed: completed, Total: total}:
			default:
			}
		})
		done <- runOutcome{result: result, err: runErr}
	}()

	for {
		select {
		case ev := <-progress:
			if err := conn.WriteJSON(wsMessage{Type: "progress", Completed: ev.Completed, Total: ev.Total}); err != nil {
				s.logger.Warn("websocket write failed: %v", err)
				return
			}

		case outcome := <-done:
			for {
				select {
				case ev := <-progress:
					if err := conn.WriteJSON(wsMessage{Type: "progress", Completed: ev.Completed, Total: ev.Total}); err != nil {
						return
					}
					continue
				default:
				}
				break
			}
			if outcome.err != nil {
				_ = conn.WriteJSON(wsMessage{Type: "error", Error: outcome.err.Error()})
				return
			}
			runID := s.cacheResult(identity(c), outcome.result)
			_ = conn.WriteJSON(wsMessage{Type: "result", RunID: runID, Result: outcome.result})
			return

		case <-c.Request.Context().Done():
			return
		}
	}
}
