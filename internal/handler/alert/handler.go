package alert

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/service/alert"
	"github.com/jwalitptl/surveillance-api/internal/service/audit"
	"github.com/jwalitptl/surveillance-api/pkg/errors"
	"github.com/jwalitptl/surveillance-api/pkg/httputil"
)

type Handler struct {
	service alert.Service
}

func NewHandler(service alert.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes expects a group already guarded by the API key middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/send-alert", h.SendAlert)
}

func (h *Handler) SendAlert(c *gin.Context) {
	var req model.SendAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid alert request", err).WithDetail(err.Error()))
		return
	}

	ctx := audit.WithClientIP(c.Request.Context(), c.ClientIP())
	resp, err := h.service.Send(ctx, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithJSON(c, resp)
}
