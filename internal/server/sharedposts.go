package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agora/internal/store"
)

type sharedPostRequest struct {
	Idea        string `json:"idea" binding:"required"`
	VariantText string `json:"variantText" binding:"required"`
	Score       int    `json:"nps"`
}

type approveRequest struct {
	Status store.PostStatus `json:"status" binding:"required"`
}

func (s *Server) handleListSharedPosts(c *gin.Context) {
	posts, err := s.store.ListSharedPosts(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if posts == nil {
		posts = []store.SharedPost{}
	}
	c.JSON(http.StatusOK, okResponse(posts))
}

func (s *Server) handleCreateSharedPost(c *gin.Context) {
	var req sharedPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	post := &store.SharedPost{
		Owner:       identity(c),
		Idea:        req.Idea,
		VariantText: req.VariantText,
		Score:       req.Score,
	}
	if err := s.store.CreateSharedPost(c.Request.Context(), post); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, okResponse(post))
}

func (s *Server) handleGetSharedPost(c *gin.Context) {
	post, err := s.store.GetSharedPost(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResponse(post))
}

// handleApproveSharedPost applies a review decision to a pending post.
func (s *Server) handleApproveSharedPost(c *gin.Context) {
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	post, err := s.store.SetSharedPostStatus(c.Request.Context(), identity(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResponse(post))
}

func (s *Server) handleDeleteSharedPost(c *gin.Context) {
	if err := s.store.DeleteSharedPost(c.Request.Context(), identity(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, okResponse(nil))
}
