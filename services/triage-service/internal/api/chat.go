package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stoik/triage/services/triage-service/internal/triage"
)

type chatRequest struct {
	Message        string  `json:"message" binding:"required"`
	ConversationID *string `json:"conversationId"`
}

func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "메시지를 입력해주세요.")
		return
	}

	in := triage.ChatRequest{Message: req.Message}
	if req.ConversationID != nil && *req.ConversationID != "" {
		id, err := uuid.Parse(*req.ConversationID)
		if err != nil {
			badRequest(c, "잘못된 대화 ID입니다.")
			return
		}
		in.ConversationID = &id
	}

	reply, err := h.triage.Chat(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "Chat", err, "AI 채팅 중 오류가 발생했습니다.")
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *Handler) ListConversations(c *gin.Context) {
	convs, err := h.repo.ListConversations(c.Request.Context())
	if err != nil {
		h.fail(c, "ListConversations", err, "대화 목록을 가져오는 중 오류가 발생했습니다.")
		return
	}
	c.JSON(http.StatusOK, convs)
}

func (h *Handler) ListMessages(c *gin.Context) {
	id, ok := parseID(c, "대화")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.repo.GetConversation(ctx, id); err != nil {
		h.fail(c, "ListMessages", err, "메시지를 가져오는 중 오류가 발생했습니다.")
		return
	}

	msgs, err := h.repo.GetMessages(ctx, id)
	if err != nil {
		h.fail(c, "ListMessages", err, "메시지를 가져오는 중 오류가 발생했습니다.")
		return
	}
	c.JSON(http.StatusOK, msgs)
}
