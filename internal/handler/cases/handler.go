package cases

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/service/cases"
	"github.com/jwalitptl/surveillance-api/pkg/errors"
	"github.com/jwalitptl/surveillance-api/pkg/httputil"
)

type Handler struct {
	service cases.Service
}

func NewHandler(service cases.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/report-case", h.ReportCase)
}

func (h *Handler) ReportCase(c *gin.Context) {
	var req model.ReportCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid case report", err).WithDetail(err.Error()))
		return
	}

	record, err := h.service.Report(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, gin.H{
		"id":      record.ID,
		"message": "Case reported successfully",
	})
}
