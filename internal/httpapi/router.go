package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hanzhang719/mindline/internal/common"
	"github.com/hanzhang719/mindline/internal/config"
	"github.com/hanzhang719/mindline/internal/httpapi/handlers"
	"github.com/hanzhang719/mindline/internal/httpapi/middleware"
	"github.com/hanzhang719/mindline/internal/store/rabbitmq"
	"github.com/hanzhang719/mindline/internal/store/redisstore"
	"gorm.io/gorm"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, alerts *rabbitmq.Publisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(db, cfg, rds, alerts)

	r.GET("/ping", h.Ping)

	api := r.Group("/api")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	authGroup := api.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)

	// Conversation surface (JWT required)
	authGroup.POST("/chat/sessions", h.CreateChatSession)
	authGroup.GET("/chat/sessions", h.ListChatSessions)
	authGroup.GET("/chat/sessions/current", h.CurrentChatSession)
	authGroup.POST("/chat/sessions/:session_id/switch", h.SwitchChatSession)
	authGroup.POST("/chat/messages", h.SendChatMessage)
	authGroup.GET("/chat/assessment", h.GetAssessment)

	return r
}
