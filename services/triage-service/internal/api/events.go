package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stoik/triage/internal/models"
)

func (h *Handler) ExtractEvents(c *gin.Context) {
	id, ok := parseID(c, "이메일")
	if !ok {
		return
	}

	out, err := h.triage.ExtractEvents(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "ExtractEvents", err, "일정 추출 중 오류가 발생했습니다.")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.repo.ListEvents(c.Request.Context())
	if err != nil {
		h.fail(c, "ListEvents", err, "일정을 가져오는 중 오류가 발생했습니다.")
		return
	}
	c.JSON(http.StatusOK, events)
}

type createEventRequest struct {
	Title       string  `json:"title" binding:"required"`
	StartDate   string  `json:"startDate" binding:"required"`
	EndDate     *string `json:"endDate"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "title과 startDate는 필수입니다.")
		return
	}

	saved, err := h.triage.CreateEvent(c.Request.Context(), models.ExtractedEvent{
		Title:       req.Title,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		h.fail(c, "CreateEvent", err, "일정을 저장하는 중 오류가 발생했습니다.")
		return
	}
	c.JSON(http.StatusCreated, saved)
}
