package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pitchpanel/pitchpanel-backend/internal/http/response"
	"github.com/pitchpanel/pitchpanel-backend/internal/modules/analyzer"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/apierr"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
	"github.com/pitchpanel/pitchpanel-backend/internal/requestdata"
)

type AnalyzeHandler struct {
	log      *logger.Logger
	analyzer *analyzer.Analyzer
}

func NewAnalyzeHandler(log *logger.Logger, a *analyzer.Analyzer) *AnalyzeHandler {
	return &AnalyzeHandler{log: log.With("Handler", "AnalyzeHandler"), analyzer: a}
}

func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var in analyzer.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}

	rd := requestdata.GetRequestData(c.Request.Context())
	report, err := h.analyzer.Analyze(dbctx.Context{Ctx: c.Request.Context()}, rd, in)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, report)
}
