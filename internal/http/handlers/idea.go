package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pitchpanel/pitchpanel-backend/internal/http/response"
	"github.com/pitchpanel/pitchpanel-backend/internal/modules/evaluation"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/apierr"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
	"github.com/pitchpanel/pitchpanel-backend/internal/requestdata"
)

type IdeaHandler struct {
	log    *logger.Logger
	engine *evaluation.Engine
}

func NewIdeaHandler(log *logger.Logger, engine *evaluation.Engine) *IdeaHandler {
	return &IdeaHandler{log: log.With("Handler", "IdeaHandler"), engine: engine}
}

func (h *IdeaHandler) Create(c *gin.Context) {
	var in evaluation.SubmitIdeaInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}

	rd := requestdata.GetRequestData(c.Request.Context())
	idea, err := h.engine.SubmitIdea(dbctx.Context{Ctx: c.Request.Context()}, rd, in)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondCreated(c, idea)
}

func (h *IdeaHandler) Get(c *gin.Context) {
	ideaID, ok := parseIDParam(c)
	if !ok {
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	progress, err := h.engine.GetProgress(dbctx.Context{Ctx: c.Request.Context()}, rd, ideaID)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, progress)
}

func (h *IdeaHandler) Delete(c *gin.Context) {
	ideaID, ok := parseIDParam(c)
	if !ok {
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	if err := h.engine.DeleteIdea(dbctx.Context{Ctx: c.Request.Context()}, rd, ideaID); err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, fmt.Errorf("invalid idea id"))
		return uuid.Nil, false
	}
	return id, true
}
