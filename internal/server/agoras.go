package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agora/internal/store"
)

type agoraRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	PersonaIDs  []string `json:"personaIds"`
}

func (s *Server) handleListAgoras(c *gin.Context) {
	agoras, err := s.store.ListAgoras(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if agoras == nil {
		agoras = []store.Agora{}
	}
	c.JSON(http.StatusOK, okResponse(agoras))
}

func (s *Server) handleCreateAgora(c *gin.Context) {
	var req agoraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	agora := &store.Agora{
		Owner:       identity(c),
		Name:        req.Name,
		Description: req.Description,
		PersonaIDs:  req.PersonaIDs,
	}
	if err := s.store.CreateAgora(c.Request.Context(), agora); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, okResponse(agora))
}

func (s *Server) handleGetAgora(c *gin.Context) {
	agora, err := s.store.GetAgora(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResponse(agora))
}

// handleUpdateAgora rewrites the agora including its member set, so member
// management happens through PUT.
func (s *Server) handleUpdateAgora(c *gin.Context) {
	var req agoraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	agora := &store.Agora{
		ID:          c.Param("id"),
		Owner:       identity(c),
		Name:        req.Name,
		Description: req.Description,
		PersonaIDs:  req.PersonaIDs,
	}
	if err := s.store.UpdateAgora(c.Request.Context(), agora); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResponse(agora))
}

func (s *Server) handleDeleteAgora(c *gin.Context) {
	if err := s.store.DeleteAgora(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResponse(nil))
}
