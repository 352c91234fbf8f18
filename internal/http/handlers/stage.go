package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pitchpanel/pitchpanel-backend/internal/http/response"
	"github.com/pitchpanel/pitchpanel-backend/internal/modules/evaluation"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/apierr"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
	"github.com/pitchpanel/pitchpanel-backend/internal/requestdata"
)

type StageHandler struct {
	log    *logger.Logger
	engine *evaluation.Engine
}

func NewStageHandler(log *logger.Logger, engine *evaluation.Engine) *StageHandler {
	return &StageHandler{log: log.With("Handler", "StageHandler"), engine: engine}
}

func (h *StageHandler) Start(c *gin.Context) {
	ideaID, ok := parseIDParam(c)
	if !ok {
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	sess, err := h.engine.StartStage(dbctx.Context{Ctx: c.Request.Context()}, rd, ideaID, c.Param("persona"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"stage_id": sess.Stage.ID,
		"persona":  sess.Stage.Persona,
		"messages": sess.Messages,
		"resumed":  sess.Resumed,
	})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// Message streams the evaluator reply as SSE: one "delta" event per token
// chunk, then a single "done" event carrying the turn outcome. An error after
// headers are sent becomes an "error" event, since the status line is gone.
func (h *StageHandler) Message(c *gin.Context) {
	ideaID, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.RespondError(c, http.StatusInternalServerError, apierr.CodeInternal, fmt.Errorf("streaming unsupported"))
		return
	}
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	rd := requestdata.GetRequestData(c.Request.Context())
	res, err := h.engine.SendMessage(dbctx.Context{Ctx: c.Request.Context()}, rd, ideaID, c.Param("persona"), req.Content, func(delta string) {
		writeEvent(c, flusher, "delta", gin.H{"text": delta})
	})
	if err != nil {
		ae := apierr.From(err)
		writeEvent(c, flusher, "error", gin.H{"code": ae.Code, "message": ae.Error()})
		return
	}

	done := gin.H{
		"user_message_id":      res.UserMessage.ID,
		"evaluator_message_id": res.EvaluatorMessage.ID,
		"completable":          res.Completable,
	}
	if res.Marker != nil {
		done["marker"] = res.Marker
	}
	if res.AutoFinish != nil {
		done["auto_finished"] = true
		done["summary"] = res.AutoFinish.Summary
		done["score"] = res.AutoFinish.Score
		done["next_stage"] = res.AutoFinish.NextStage
	}
	writeEvent(c, flusher, "done", done)
}

func (h *StageHandler) Finish(c *gin.Context) {
	ideaID, ok := parseIDParam(c)
	if !ok {
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	fin, err := h.engine.FinishStage(dbctx.Context{Ctx: c.Request.Context()}, rd, ideaID, c.Param("persona"))
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"summary":    fin.Summary,
		"score":      fin.Score,
		"next_stage": fin.NextStage,
	})
}

func writeEvent(c *gin.Context, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
