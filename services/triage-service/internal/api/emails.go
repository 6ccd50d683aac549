package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stoik/triage/internal/models"
	"github.com/stoik/triage/services/triage-service/internal/importer"
	"github.com/stoik/triage/services/triage-service/internal/search"
)

// emailView adds the display label for the classification.
type emailView struct {
	models.EmailRecord
	ClassificationLabel *string `json:"classificationLabel,omitempty"`
}

func toView(e models.EmailRecord) emailView {
	v := emailView{EmailRecord: e}
	if e.Classification != nil {
		label := e.Classification.DisplayLabel()
		v.ClassificationLabel = &label
	}
	return v
}

func toViews(emails []models.EmailRecord) []emailView {
	views := make([]emailView, 0, len(emails))
	for _, e := range emails {
		views = append(views, toView(e))
	}
	return views
}

func (h *Handler) Import(c *gin.Context) {
	var (
		emails   []models.NewEmail
		filename string
	)

	file, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		emails, filename = importer.SampleEmails(), importer.SampleFilename
	case err != nil:
		badRequest(c, "업로드된 파일을 읽을 수 없습니다.")
		return
	default:
		if file.Size > maxUploadBytes {
			badRequest(c, "파일이 너무 큽니다.")
			return
		}
		f, err := file.Open()
		if err != nil {
			badRequest(c, "업로드된 파일을 읽을 수 없습니다.")
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		f.Close()
		if err != nil {
			badRequest(c, "업로드된 파일을 읽을 수 없습니다.")
			return
		}

		filename = file.Filename
		emails, err = importer.Parse(filename, data)
		if err != nil {
			h.logger.Warn("Import rejected", zap.String("filename", filename), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "inserted": 0, "message": importer.UserMessage(err)})
			return
		}
	}

	ids, err := h.repo.ImportEmails(c.Request.Context(), filename, emails)
	if err != nil {
		h.logger.Error("Import failed", zap.String("filename", filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "inserted": 0, "message": "가져오기 중 오류가 발생했습니다."})
		return
	}

	h.logger.Info("Imported emails", zap.String("filename", filename), zap.Int("count", len(ids)))
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"inserted": len(ids),
		"message":  fmt.Sprintf("%d개의 이메일을 성공적으로 가져왔습니다.", len(ids)),
	})
}

type searchRequest struct {
	Message string `json:"message" binding:"required"`
	TopK    *int   `json:"topK"`
}

func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		badRequest(c, "검색어를 입력해주세요.")
		return
	}

	topK := h.defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK < MinTopK || topK > MaxTopK {
		badRequest(c, fmt.Sprintf("topK는 %d에서 %d 사이여야 합니다.", MinTopK, MaxTopK))
		return
	}

	results, err := h.triage.Search(c.Request.Context(), strings.TrimSpace(req.Message), topK)
	if err != nil {
		h.fail(c, "Search", err, "검색 중 오류가 발생했습니다.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"answer":    search.FormatAnswer(req.Message, results),
		"citations": results,
		"debug": gin.H{
			"topK":      topK,
			"hitsCount": len(results),
		},
	})
}

func (h *Handler) ListEmails(c *gin.Context) {
	var filter *models.Category
	if raw := c.Query("classification"); raw != "" {
		cat := models.Category(raw)
		if !cat.Valid() {
			badRequest(c, "알 수 없는 분류입니다.")
			return
		}
		filter = &cat
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "잘못된 limit 값입니다.")
			return
		}
		limit = n
	}

	emails, err := h.repo.ListEmails(c.Request.Context(), filter, limit)
	if err != nil {
		h.fail(c, "ListEmails", err, "이메일 목록을 가져오는 중 오류가 발생했습니다.")
		return
	}
	c.JSON(http.StatusOK, toViews(emails))
}

func (h *Handler) ListUnextracted(c *gin.Context) {
	emails, err := h.repo.ListUnextracted(c.Request.Context(), 0)
	if err != nil {
		h.fail(c, "ListUnextracted", err, "이메일 목록을 가져오는 중 오류가 발생했습니다.")
		return
	}
	c.JSON(http.StatusOK, toViews(emails))
}

func (h *Handler) GetEmail(c *gin.Context) {
	id, ok := parseID(c, "이메일")
	if !ok {
		return
	}

	email, err := h.repo.GetEmailByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "GetEmail", err, "이메일을 가져오는 중 오류가 발생했습니다.")
		return
	}
	c.JSON(http.StatusOK, toView(email))
}

func (h *Handler) ClassifyEmail(c *gin.Context) {
	id, ok := parseID(c, "이메일")
	if !ok {
		return
	}

	result, err := h.triage.Classify(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "ClassifyEmail", err, "분류 중 오류가 발생했습니다.")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"emailId":        id,
		"classification": result.Classification,
		"confidence":     result.Confidence,
		"label":          result.Classification.DisplayLabel(),
	})
}

func (h *Handler) ClassifyAll(c *gin.Context) {
	only := true
	if raw := c.Query("onlyUnclassified"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "잘못된 onlyUnclassified 값입니다.")
			return
		}
		only = v
	}

	result, err := h.triage.ClassifyAll(c.Request.Context(), only)
	if err != nil {
		h.fail(c, "ClassifyAll", err, "일괄 분류 중 오류가 발생했습니다.")
		return
	}
	c.JSON(http.StatusOK, result)
}
