package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"agora/internal/simulation"
	"agora/internal/store"
)

// identityHeader carries the opaque caller identity resolved by the external
// identity provider. The server only scopes rows by it.
const identityHeader = "X-Agora-User"

const identityKey = "agora.identity"

func (s *Server) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader(identityHeader)
		if user == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("missing "+identityHeader+" header"))
			return
		}
		c.Set(identityKey, user)
		c.Next()
	}
}

func identity(c *gin.Context) string {
	return c.GetString(identityKey)
}

// APIResponse is the uniform JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func okResponse(data any) APIResponse {
	return APIResponse{Success: true, Data: data}
}

func errorResponse(msg string) APIResponse {
	return APIResponse{Success: false, Error: msg}
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var valErr *simulation.ValidationError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.As(err, &valErr):
		status = http.StatusBadRequest
	}
	c.JSON(status, errorResponse(err.Error()))
}
