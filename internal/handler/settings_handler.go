package handler

import (
	"net/http"

	"crm-backend/internal/middleware"
	"crm-backend/internal/service"
	"crm-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	settingsService service.SettingsService
}

func NewSettingsHandler(settingsService service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

func (h *SettingsHandler) RegisterRoutes(router *gin.RouterGroup) {
	settings := router.Group("/api/settings")
	{
		settings.GET("/approval", middleware.RequirePermission("approvals.read"), h.GetApprovalSettings)
		settings.PUT("/approval", middleware.RequirePermission("settings.write"), h.UpdateApprovalSettings)
	}
}

// GetApprovalSettings returns the current discount thresholds
// @Summary      Get approval settings
// @Description  Returns the manager and admin discount thresholds the workflow routes on
// @Tags         settings
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.SettingsResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/settings/approval [get]
func (h *SettingsHandler) GetApprovalSettings(c *gin.Context) {
	settings, err := h.settingsService.Get(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, settings))
}

// UpdateApprovalSettings updates the discount thresholds
// @Summary      Update approval settings
// @Description  Updates the discount thresholds. Applies to approvals requested after the change; open cycles keep their recorded threshold.
// @Tags         settings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.UpdateSettingsDTO  true  "Thresholds"
// @Success      200      {object}  response.Response{data=service.SettingsResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/settings/approval [put]
func (h *SettingsHandler) UpdateApprovalSettings(c *gin.Context) {
	var req service.UpdateSettingsDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.UpdatedBy = contextUserID(c)

	settings, err := h.settingsService.Update(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, settings))
}
