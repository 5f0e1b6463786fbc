package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "pickfast/internal/transport/http/response"
)

// RecoveryResponse answers a recovered panic with the error envelope. It is
// the gin.RecoveryFunc handed to ginzap.CustomRecoveryWithZap, which logs the
// stack.
func RecoveryResponse(c *gin.Context, _ any) {
	c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeServerError, "internal error"))
}
