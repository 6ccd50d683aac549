package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stoik/triage/internal/models"
	"github.com/stoik/triage/services/mock-server/internal/mock"
)

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []models.ChatMessage `json:"messages" binding:"required"`
	Stream   bool                 `json:"stream"`
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "11434"
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	addr := fmt.Sprintf(":%s", port)
	logger.Info("Starting mock Ollama server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, newRouter(logger)); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func newRouter(logger *zap.Logger) *gin.Engine {
	r := gin.Default()

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/chat", handleChat(logger))
		api.POST("/embeddings", handleEmbeddings)
		api.GET("/tags", handleTags)
	}

	return r
}

func handleChat(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		content := mock.Complete(req.Messages)
		logger.Debug("Mock completion",
			zap.String("model", req.Model),
			zap.String("task", mock.DetectTask(req.Messages)),
			zap.Int("messages", len(req.Messages)),
		)

		c.JSON(http.StatusOK, gin.H{
			"model":      req.Model,
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
			"message": models.ChatMessage{
				Role:    models.RoleAssistant,
				Content: content,
			},
			"done": true,
		})
	}
}

func handleEmbeddings(c *gin.Context) {
	var req embeddingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"embedding": mock.Embedding(req.Prompt)})
}

func handleTags(c *gin.Context) {
	list := make([]gin.H, 0, len(mock.Models))
	for _, name := range mock.Models {
		list = append(list, gin.H{"name": name})
	}
	c.JSON(http.StatusOK, gin.H{"models": list})
}
