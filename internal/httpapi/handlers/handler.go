package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hanzhang719/mindline/internal/ai"
	"github.com/hanzhang719/mindline/internal/chat"
	"github.com/hanzhang719/mindline/internal/config"
	"github.com/hanzhang719/mindline/internal/store/rabbitmq"
	"github.com/hanzhang719/mindline/internal/store/redisstore"
	"gorm.io/gorm"
)

type Handler struct {
	DB     *gorm.DB
	Cfg    config.Config
	Redis  *redisstore.Store
	Alerts *rabbitmq.Publisher
	Chat   *chat.Controller
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, alerts *rabbitmq.Publisher) *Handler {
	reg := ai.NewRegistry()
	reg.Register("gemini", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.GeminiModel
		}
		return ai.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, m), nil
	})
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		_ = ctx
		m := strings.TrimSpace(model)
		if m == "" {
			m = cfg.OllamaModel
		}
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, m), nil
	})

	switch strings.ToLower(cfg.AIProvider) {
	case "gemini", "ollama":
	default:
		panic(fmt.Sprintf("unsupported AI_PROVIDER=%q", cfg.AIProvider))
	}

	ctrl := chat.NewController(reg, cfg.AIProvider, "", cfg.ChatGreeting,
		time.Duration(cfg.AITimeoutSecs)*time.Second)

	return &Handler{DB: db, Cfg: cfg, Redis: rds, Alerts: alerts, Chat: ctrl}
}
