package api

import (
	"net/http"

	"whatsapp-crm/internal/dispatch"

	"github.com/gin-gonic/gin"
)

type DispatchHandler struct {
	Dispatcher *dispatch.Dispatcher
}

func NewDispatchHandler(d *dispatch.Dispatcher) *DispatchHandler {
	return &DispatchHandler{Dispatcher: d}
}

// RunDispatch drains one batch of pending queue items. The background loop
// does this on a ticker; the endpoint exists for operators and tests.
func (h *DispatchHandler) RunDispatch(c *gin.Context) {
	processed, err := h.Dispatcher.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": processed})
}
