package handler

import (
	"net/http"
	"strconv"

	"crm-backend/internal/middleware"
	"crm-backend/internal/service"
	"crm-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type TaxHandler struct {
	taxService service.TaxService
}

func NewTaxHandler(taxService service.TaxService) *TaxHandler {
	return &TaxHandler{taxService: taxService}
}

func (h *TaxHandler) RegisterRoutes(router *gin.RouterGroup) {
	tax := router.Group("/api/tax-rules")
	{
		tax.GET("", middleware.RequirePermission("tax_rules.read"), h.GetTaxRules)
		tax.GET("/active", middleware.RequirePermission("tax_rules.read"), h.GetActiveTaxRate)
		tax.POST("", middleware.RequirePermission("tax_rules.write"), h.CreateTaxRule)
		tax.PUT("/:id", middleware.RequirePermission("tax_rules.write"), h.UpdateTaxRule)
		tax.DELETE("/:id", middleware.RequirePermission("tax_rules.write"), h.DeleteTaxRule)
	}
}

// GetTaxRules returns tax rules ordered by effective_from DESC
// @Summary      List tax rules
// @Description  Retrieves a paginated list of tax rules, newest effective date first
// @Tags         tax-rules
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 10)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/tax-rules [get]
func (h *TaxHandler) GetTaxRules(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	rules, total, err := h.taxService.GetTaxRules(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, rules, total, page, limit))
}

// GetActiveTaxRate resolves the tax rule in effect today for a given type
// @Summary      Get active tax rate
// @Description  Returns the tax rule currently in effect for the given type
// @Tags         tax-rules
// @Produce      json
// @Security     BearerAuth
// @Param        type  query     string  true  "Tax type (VAT, SALES_TAX, WITHHOLDING)"
// @Success      200   {object}  response.Response{data=service.ActiveTaxRateResponse}
// @Failure      404   {object}  response.Response
// @Router       /api/tax-rules/active [get]
func (h *TaxHandler) GetActiveTaxRate(c *gin.Context) {
	taxType := c.DefaultQuery("type", "VAT")

	rate, err := h.taxService.GetActiveTaxRate(c.Request.Context(), taxType)
	if err != nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rate))
}

// CreateTaxRule creates a new tax rule entry
// @Summary      Create tax rule
// @Description  Creates a tax rule, rejecting overlaps with existing rules of the same type
// @Tags         tax-rules
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateTaxRuleRequest  true  "Create Tax Rule Payload"
// @Success      201      {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/tax-rules [post]
func (h *TaxHandler) CreateTaxRule(c *gin.Context) {
	var req service.CreateTaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.taxService.CreateTaxRule(c.Request.Context(), req, contextUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateTaxRule updates an existing tax rule
// @Summary      Update tax rule
// @Description  Updates a tax rule's rate, description or effective window
// @Tags         tax-rules
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Tax Rule ID"
// @Param        payload  body      service.UpdateTaxRuleRequest  true  "Update Tax Rule Payload"
// @Success      200      {object}  response.Response{data=service.TaxRuleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/tax-rules/{id} [put]
func (h *TaxHandler) UpdateTaxRule(c *gin.Context) {
	var req service.UpdateTaxRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.taxService.UpdateTaxRule(c.Request.Context(), c.Param("id"), req, contextUserID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteTaxRule soft deletes a tax rule
// @Summary      Delete tax rule
// @Description  Soft deletes a tax rule by ID
// @Tags         tax-rules
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tax Rule ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/tax-rules/{id} [delete]
func (h *TaxHandler) DeleteTaxRule(c *gin.Context) {
	if err := h.taxService.DeleteTaxRule(c.Request.Context(), c.Param("id"), contextUserID(c)); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Tax rule deleted successfully"))
}
