package handler

import (
	"context"

	settingapp "github.com/bizhub/backend/internal/application/setting"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Settings reads and writes tenant settings
type Settings interface {
	Get(ctx context.Context, tenantID uuid.UUID, key string) (*settingapp.SettingResponse, error)
	Set(ctx context.Context, tenantID uuid.UUID, key string, req settingapp.SetSettingRequest) (*settingapp.SettingResponse, error)
}

// SettingHandler serves the tenant settings API
type SettingHandler struct {
	BaseHandler
	settings Settings
}

// NewSettingHandler creates a new SettingHandler
func NewSettingHandler(settings Settings) *SettingHandler {
	return &SettingHandler{settings: settings}
}

// Get returns the resolved value; secrets come back masked
func (h *SettingHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	resp, err := h.settings.Get(c.Request.Context(), tenantID, c.Param("key"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *SettingHandler) Set(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	var req settingapp.SetSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	resp, err := h.settings.Set(c.Request.Context(), tenantID, c.Param("key"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
