package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agora/internal/simulation"
	"agora/internal/store"
)

const (
	minIdeaLength = 10
	maxIdeaLength = 500

	sseHeartbeatInterval = 15 * time.Second
)

type simulateRequest struct {
	Idea          string   `json:"idea" binding:"required"`
	ReactionCount int      `json:"reactionCount" binding:"required"`
	AgoraID       string   `json:"agoraId"`
	PersonaIDs    []string `json:"personaIds"`
}

func (r *simulateRequest) validate() error {
	length := len(strings.TrimSpace(r.Idea))
	if length < minIdeaLength || length > maxIdeaLength {
		return fmt.Errorf("idea must be between %d and %d characters", minIdeaLength, maxIdeaLength)
	}
	if r.ReactionCount < 1 {
		return fmt.Errorf("reactionCount must be positive")
	}
	return nil
}

type progressEvent struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

type simulateResponse struct {
	RunID  string                       `json:"runId"`
	Result *simulation.SimulationResult `json:"result"`
}

// resolvePersonas turns the request's persona selection into engine personas:
// an agora's members, an explicit ID list, or the caller's full roster.
func (s *Server) resolvePersonas(c *gin.Context, req simulateRequest) ([]simulation.Persona, error) {
	ctx := c.Request.Context()
	owner := identity(c)

	var ids []string
	switch {
	case req.AgoraID != "":
		agora, err := s.store.GetAgora(ctx, owner, req.AgoraID)
		if err != nil {
			return nil, err
		}
		ids = agora.PersonaIDs
	case len(req.PersonaIDs) > 0:
		ids = req.PersonaIDs
	default:
		stored, err := s.store.ListPersonas(ctx, owner)
		if err != nil {
			return nil, err
		}
		return toEnginePersonas(stored), nil
	}

	personas := make([]simulation.Persona, 0, len(ids))
	for _, id := range ids {
		p, err := s.store.GetPersona(ctx, owner, id)
		if err != nil {
			return nil, err
		}
		personas = append(personas, simulation.Persona{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	return personas, nil
}

func toEnginePersonas(stored []store.Persona) []simulation.Persona {
	personas := make([]simulation.Persona, len(stored))
	for i, p := range stored {
		personas[i] = simulation.Persona{ID: p.ID, Name: p.Name, Description: p.Description}
	}
	return personas
}

func wantsEventStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream") || c.Query("stream") == "1"
}

func (s *Server) handleSimulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if err := req.validate(); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	personas, err := s.resolvePersonas(c, req)
	if err != nil {
		respondError(c, err)
		return
	}

	runReq := simulation.RunRequest{
		Idea:          req.Idea,
		Personas:      personas,
		ReactionCount: req.ReactionCount,
	}

	if wantsEventStream(c) {
		s.streamSimulation(c, runReq)
		return
	}

	result, err := s.runner.Run(c.Request.Context(), runReq, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	runID := s.cacheResult(identity(c), result)
	c.JSON(http.StatusOK, okResponse(simulateResponse{RunID: runID, Result: result}))
}

// streamSimulation runs the simulation while emitting SSE progress events,
// then one terminal result or error event.
func (s *Server) streamSimulation(c *gin.Context, runReq simulation.RunRequest) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	// Buffered so a slow client cannot stall reaction goroutines.
	progress := make(chan progressEvent, 1024)
	type runOutcome struct {
		result *simulation.SimulationResult
		err    error
	}
	done := make(chan runOutcome, 1)

	go func() {
		result, err := s.runner.Run(c.Request.Context(), runReq, func(completed, total int) {
			select {
			case progress <- progressEvent{Completed: completed, Total: total}:
			default:
			}
		})
		done <- runOutcome{result: result, err: err}
	}()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case ev := <-progress:
			writeSSEEvent(c, "progress", ev)

		case outcome := <-done:
			// Flush any progress still queued before the terminal event.
			for {
				select {
				case ev := <-progress:
					writeSSEEvent(c, "progress", ev)
					continue
				default:
				}
				break
			}
			if outcome.err != nil {
				s.logger.Warn("streamed simulation failed: %v", outcome.err)
				writeSSEEvent(c, "error", gin.H{"error": outcome.err.Error()})
				return
			}
			runID := s.cacheResult(identity(c), outcome.result)
			writeSSEEvent(c, "result", simulateResponse{RunID: runID, Result: outcome.result})
			return

		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			w.Flush()

		case <-c.Request.Context().Done():
			s.logger.Info("SSE client disconnected mid-run")
			return
		}
	}
}

func writeSSEEvent(c *gin.Context, event string, payload any) {
	c.SSEvent(event, payload)
	c.Writer.Flush()
}

func (s *Server) cacheResult(owner string, result *simulation.SimulationResult) string {
	runID := "run-" + uuid.New().String()[:8]
	s.cache.Add(runID, cachedRun{owner: owner, result: result})
	return runID
}

func (s *Server) handleGetSimulation(c *gin.Context) {
	run, ok := s.cache.Get(c.Param("id"))
	if !ok || run.owner != identity(c) {
		c.JSON(http.StatusNotFound, errorResponse("simulation not found"))
		return
	}
	c.JSON(http.StatusOK, okResponse(simulateResponse{RunID: c.Param("id"), Result: run.result}))
}
