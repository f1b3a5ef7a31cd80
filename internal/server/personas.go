package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agora/internal/store"
)

type personaRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
}

func (s *Server) handleListPersonas(c *gin.Context) {
	personas, err := s.store.ListPersonas(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if personas == nil {
		personas = []store.Persona{}
	}
	c.JSON(http.StatusOK, okResponse(personas))
}

func (s *Server) handleCreatePersona(c *gin.Context) {
	var req personaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	persona := &store.Persona{
		Owner:       identity(c),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.store.CreatePersona(c.Request.Context(), persona); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, okResponse(persona))
}

func (s *Server) handleGetPersona(c *gin.Context) {
	persona, err := s.store.GetPersona(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResponse(persona))
}

func (s *Server) handleUpdatePersona(c *gin.Context) {
	var req personaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	persona := &store.Persona{
		ID:          c.Param("id"),
		Owner:       identity(c),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.store.UpdatePersona(c.Request.Context(), persona); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResponse(persona))
}

func (s *Server) handleDeletePersona(c *gin.Context) {
	if err := s.store.DeletePersona(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResponse(nil))
}
