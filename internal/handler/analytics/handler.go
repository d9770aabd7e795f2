package analytics

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/surveillance-api/internal/handler"
	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/service/forecast"
	"github.com/jwalitptl/surveillance-api/internal/service/surveillance"
	"github.com/jwalitptl/surveillance-api/pkg/httputil"
)

// Defaults are the window sizes used when a query omits them.
type Defaults struct {
	RiskDays        int
	HotspotDays     int
	HotspotMinCases int
}

type Handler struct {
	forecast     forecast.Service
	surveillance surveillance.Service
	defaults     Defaults
}

func NewHandler(forecast forecast.Service, surveillance surveillance.Service, defaults Defaults) *Handler {
	return &Handler{
		forecast:     forecast,
		surveillance: surveillance,
		defaults:     defaults,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/predict", h.Predict)
	r.GET("/risk", h.Risk)
	r.GET("/hotspots", h.Hotspots)
	r.GET("/personalized-tips", h.Tips)
	r.GET("/diseases", h.Diseases)
}

func (h *Handler) Predict(c *gin.Context) {
	daysFromNow, err := handler.OptionalInt(c, "days_from_now")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	span, err := handler.OptionalInt(c, "range", "predict_range")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	req := model.PredictRequest{
		Disease:     c.Query("disease"),
		DaysFromNow: daysFromNow,
		Range:       span,
	}

	prediction, err := h.forecast.Predict(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if prediction.Range != nil {
		httputil.RespondWithJSON(c, prediction.Range)
		return
	}
	httputil.RespondWithJSON(c, prediction.Single)
}

func (h *Handler) Risk(c *gin.Context) {
	days, err := handler.IntDefault(c, "days", h.defaults.RiskDays, 1)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	resp, err := h.surveillance.Risk(c.Request.Context(), handler.OptionalQuery(c, "location"), days)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithJSON(c, resp)
}

func (h *Handler) Hotspots(c *gin.Context) {
	days, err := handler.IntDefault(c, "days", h.defaults.HotspotDays, 1)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	minCases, err := handler.IntDefault(c, "min_cases", h.defaults.HotspotMinCases, 0)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	resp, err := h.surveillance.Hotspots(c.Request.Context(), days, minCases)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithJSON(c, resp)
}

func (h *Handler) Tips(c *gin.Context) {
	resp, err := h.surveillance.Tips(c.Request.Context(), handler.OptionalQuery(c, "location"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithJSON(c, resp)
}

func (h *Handler) Diseases(c *gin.Context) {
	diseases, err := h.forecast.Diseases(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if diseases == nil {
		diseases = []string{}
	}
	httputil.RespondWithJSON(c, gin.H{"diseases": diseases})
}
