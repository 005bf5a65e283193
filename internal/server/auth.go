package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// authorizeHost checks the host secret for the game in the path and writes
// the error response when it does not match.
func (s *Server) authorizeHost(c *gin.Context, hostID string) bool {
	if err := s.machine.Authorize(c.Request.Context(), c.Param("id"), strings.TrimSpace(hostID)); err != nil {
		s.fail(c, err)
		return false
	}
	return true
}
