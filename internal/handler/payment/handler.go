package payment

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/service/audit"
	"github.com/jwalitptl/surveillance-api/internal/service/payment"
	"github.com/jwalitptl/surveillance-api/pkg/errors"
	"github.com/jwalitptl/surveillance-api/pkg/httputil"
)

type Handler struct {
	service payment.Service
}

func NewHandler(service payment.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the operator endpoints. The group must already be
// guarded by the API key middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	mpesa := r.Group("/mpesa")
	{
		mpesa.GET("/token", h.Token)
		mpesa.POST("/stkpush", h.STKPush)
	}
}

// RegisterCallbackRoutes mounts the provider callback, which Daraja calls
// without credentials.
func (h *Handler) RegisterCallbackRoutes(r *gin.RouterGroup) {
	r.POST("/mpesa/callback", h.Callback)
}

func (h *Handler) Token(c *gin.Context) {
	ctx := audit.WithClientIP(c.Request.Context(), c.ClientIP())
	token, err := h.service.Token(ctx)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithJSON(c, token)
}

func (h *Handler) STKPush(c *gin.Context) {
	var req model.STKPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid payment request", err).WithDetail(err.Error()))
		return
	}

	ctx := audit.WithClientIP(c.Request.Context(), c.ClientIP())
	resp, err := h.service.Initiate(ctx, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithJSON(c, resp)
}

func (h *Handler) Callback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("unreadable callback body", err))
		return
	}

	ctx := audit.WithClientIP(c.Request.Context(), c.ClientIP())
	if err := h.service.HandleCallback(ctx, json.RawMessage(body)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithJSON(c, gin.H{"status": "received"})
}
