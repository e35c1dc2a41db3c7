package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hanzhang719/mindline/internal/auth"
	"github.com/hanzhang719/mindline/internal/common"
	"github.com/hanzhang719/mindline/internal/httpapi/middleware"
	"github.com/hanzhang719/mindline/internal/models"
	"gorm.io/gorm"
)

// tokenTTL matches the original session length of the product.
const tokenTTL = 5 * time.Hour

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"status": "up"})
}

type registerReq struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Age            int    `json:"age"`
	BloodGroup     string `json:"blood_group"`
	MedicalInfo    string `json:"medical_info"`
	MedicalHistory string `json:"medical_history"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "name, email and password required")
		return
	}
	if req.Age <= 0 {
		common.Fail(c, http.StatusBadRequest, 10005, "age must be a positive number")
		return
	}
	if !models.ValidBloodGroup(req.BloodGroup) {
		common.Fail(c, http.StatusBadRequest, 10006, "invalid blood group")
		return
	}

	var count int64
	if err := h.DB.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	if count > 0 {
		common.Fail(c, http.StatusBadRequest, 10003, "user already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
		return
	}

	user := models.User{
		Email:          req.Email,
		PasswordHash:   hash,
		Name:           req.Name,
		Age:            req.Age,
		BloodGroup:     req.BloodGroup,
		MedicalInfo:    orDefaultNone(req.MedicalInfo),
		MedicalHistory: orDefaultNone(req.MedicalHistory),
	}
	if err := h.DB.Create(&user).Error; err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "failed to create user (maybe email already exists)")
		return
	}

	token, err := auth.SignJWT(user.ID, h.Cfg.JWTSecret, tokenTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	common.OK(c, gin.H{"token": token, "user": user})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	var user models.User
	err := h.DB.Where("email = ?", req.Email).First(&user).Error
	// Same response for unknown email and wrong password.
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !auth.CheckPassword(user.PasswordHash, req.Password)) {
		common.Fail(c, http.StatusBadRequest, 10010, "invalid credentials")
		return
	}
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}

	token, err := auth.SignJWT(user.ID, h.Cfg.JWTSecret, tokenTTL)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	common.OK(c, gin.H{"token": token, "user": user})
}

func (h *Handler) Me(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	user, ok := h.loadUser(c, uid)
	if !ok {
		return
	}
	common.OK(c, user)
}

// loadUser fetches the caller's profile, writing the error response itself
// when that fails.
func (h *Handler) loadUser(c *gin.Context, uid uint64) (*models.User, bool) {
	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return nil, false
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return nil, false
	}
	return &user, true
}

func orDefaultNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
