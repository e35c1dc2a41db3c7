package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hanzhang719/mindline/internal/chat"
	"github.com/hanzhang719/mindline/internal/common"
	"github.com/hanzhang719/mindline/internal/httpapi/middleware"
	"github.com/hanzhang719/mindline/internal/models"
	"github.com/hanzhang719/mindline/internal/prompt"
	"github.com/hanzhang719/mindline/internal/risk"
	"github.com/hanzhang719/mindline/internal/store/rabbitmq"
)

func (h *Handler) CreateChatSession(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sess, err := h.Chat.NewSession(uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create session")
		return
	}
	common.OK(c, sess)
}

func (h *Handler) ListChatSessions(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sessions, err := h.Chat.ListSessions(uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list sessions")
		return
	}
	common.OK(c, gin.H{"sessions": sessions})
}

func (h *Handler) CurrentChatSession(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sess, err := h.Chat.CurrentSession(uid)
	if err != nil {
		common.Fail(c, http.StatusNotFound, 40004, "session not found")
		return
	}
	common.OK(c, sess)
}

func (h *Handler) SwitchChatSession(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	sess, err := h.Chat.SwitchSession(uid, c.Param("session_id"))
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			common.Fail(c, http.StatusNotFound, 40004, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to switch session")
		return
	}
	common.OK(c, sess)
}

type sendMessageReq struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if h.Redis != nil {
		allowed, err := h.Redis.AllowSend(c.Request.Context(), uid,
			h.Cfg.ChatRateLimitPerMin, time.Minute)
		if err != nil {
			// Rate limiting is best effort; a Redis outage must not take
			// chat down with it.
			log.Printf("rate limit check failed user=%d: %v", uid, err)
		} else if !allowed {
			common.Fail(c, http.StatusTooManyRequests, 42901, "too many messages, slow down")
			return
		}
	}

	user, ok := h.loadUser(c, uid)
	if !ok {
		return
	}

	sess, err := h.Chat.Send(c.Request.Context(), uid, profileOf(user), req.SessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			common.Fail(c, http.StatusBadRequest, 10004, "message is required")
		case errors.Is(err, chat.ErrSendInFlight):
			common.Fail(c, http.StatusConflict, 40901, "previous message still processing")
		case errors.Is(err, chat.ErrSessionNotFound):
			common.Fail(c, http.StatusNotFound, 40004, "session not found")
		default:
			common.Fail(c, http.StatusInternalServerError, 50004, "failed to send message")
		}
		return
	}

	reply := ""
	if n := len(sess.Messages); n > 0 {
		reply = sess.Messages[n-1].Content
	}
	common.OK(c, gin.H{
		"session_id": sess.SessionID,
		"title":      sess.Title,
		"reply":      reply,
		"messages":   sess.Messages,
	})
}

func (h *Handler) GetAssessment(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var (
		sess chat.Session
		err  error
	)
	if sid := c.Query("session_id"); sid != "" {
		sess, err = h.Chat.GetSession(uid, sid)
	} else {
		sess, err = h.Chat.CurrentSession(uid)
	}
	if err != nil {
		common.Fail(c, http.StatusNotFound, 40004, "session not found")
		return
	}

	assessment := risk.Evaluate(sess.Messages)

	if assessment.Tier == risk.TierUrgent && h.Alerts != nil {
		h.publishUrgentAlert(c, uid, sess.SessionID, assessment)
	}

	common.OK(c, gin.H{
		"session_id": sess.SessionID,
		"assessment": assessment,
	})
}

// publishUrgentAlert notifies the care team at most once per session. The
// assessment response never fails because of the alerting path.
func (h *Handler) publishUrgentAlert(c *gin.Context, uid uint64, sessionID string, a risk.Assessment) {
	first, err := h.Chat.MarkAlerted(uid, sessionID)
	if err != nil || !first {
		return
	}

	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		log.Printf("alert: load user %d: %v", uid, err)
		return
	}

	alert := rabbitmq.AlertMessage{
		UserID:    uid,
		Email:     user.Email,
		Name:      user.Name,
		SessionID: sessionID,
		Status:    a.Status,
		Label:     a.Label,
	}
	if err := h.Alerts.PublishAlert(c.Request.Context(), alert); err != nil {
		log.Printf("alert: publish user=%d session=%s: %v", uid, sessionID, err)
	}
}

func profileOf(u *models.User) prompt.Profile {
	return prompt.Profile{
		Name:           u.Name,
		Age:            u.Age,
		BloodGroup:     u.BloodGroup,
		MedicalInfo:    u.MedicalInfo,
		MedicalHistory: u.MedicalHistory,
	}
}
