package handler

import (
	"net/http"

	"crm-backend/internal/middleware"
	"crm-backend/internal/service"
	"crm-backend/pkg/pagination"
	"crm-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type QuotationHandler struct {
	quotationService service.QuotationService
	approvalService  service.ApprovalService
	guard            gin.HandlerFunc
}

func NewQuotationHandler(quotationService service.QuotationService, approvalService service.ApprovalService, guard gin.HandlerFunc) *QuotationHandler {
	if guard == nil {
		guard = func(c *gin.Context) { c.Next() }
	}
	return &QuotationHandler{
		quotationService: quotationService,
		approvalService:  approvalService,
		guard:            guard,
	}
}

func (h *QuotationHandler) RegisterRoutes(router *gin.RouterGroup) {
	quotations := router.Group("/api/quotations")
	{
		quotations.POST("", middleware.RequirePermission("quotations.write"), h.guard, h.CreateQuotation)
		quotations.GET("", middleware.RequirePermission("quotations.read"), h.ListQuotations)
		quotations.GET("/:id", middleware.RequirePermission("quotations.read"), h.GetQuotation)
		quotations.PUT("/:id", middleware.RequirePermission("quotations.write"), h.guard, h.UpdateQuotation)
		quotations.DELETE("/:id", middleware.RequirePermission("quotations.write"), h.DeleteQuotation)
		quotations.GET("/:id/timeline", middleware.RequirePermission("approvals.read"), h.GetApprovalTimeline)
	}
}

// CreateQuotation creates a new quotation
// @Summary      Create quotation
// @Description  Creates a draft quotation; totals are computed server-side from items, discount, and the active tax rule
// @Tags         quotations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateQuotationDTO  true  "Create Quotation Payload"
// @Success      201      {object}  response.Response{data=service.QuotationResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/quotations [post]
func (h *QuotationHandler) CreateQuotation(c *gin.Context) {
	var req service.CreateQuotationDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.CreatedBy = contextUserID(c)

	quotation, err := h.quotationService.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, quotation))
}

// ListQuotations returns a paginated list of quotations
// @Summary      List quotations
// @Description  Retrieves quotations, optionally filtered by client or status
// @Tags         quotations
// @Security     BearerAuth
// @Produce      json
// @Param        client_id  query     string  false  "Filter by client ID"
// @Param        status     query     string  false  "Filter by status (DRAFT, SENT, ACCEPTED, DECLINED, EXPIRED)"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=object}
// @Failure      500        {object}  response.Response
// @Router       /api/quotations [get]
func (h *QuotationHandler) ListQuotations(c *gin.Context) {
	params := pagination.Parse(c)

	quotations, total, err := h.quotationService.List(c.Request.Context(), c.Query("client_id"), c.Query("status"), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, quotations, total, params.Page, params.Limit))
}

// GetQuotation returns one quotation with its items and lock state
// @Summary      Get quotation
// @Description  Retrieves a single quotation including items, lock state, and whether its discount requires approval
// @Tags         quotations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quotation ID"
// @Success      200  {object}  response.Response{data=service.QuotationResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/quotations/{id} [get]
func (h *QuotationHandler) GetQuotation(c *gin.Context) {
	quotation, err := h.quotationService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quotation))
}

// UpdateQuotation updates a quotation unless an open approval locks it
// @Summary      Update quotation
// @Description  Applies a partial update. Rejected with 409 while an approval cycle is open on the quotation.
// @Tags         quotations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Quotation ID"
// @Param        payload  body      service.UpdateQuotationDTO  true  "Update Payload"
// @Success      200      {object}  response.Response{data=service.QuotationResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/quotations/{id} [put]
func (h *QuotationHandler) UpdateQuotation(c *gin.Context) {
	var req service.UpdateQuotationDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.ID = c.Param("id")
	req.UpdatedBy = contextUserID(c)

	quotation, err := h.quotationService.Update(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, quotation))
}

// DeleteQuotation soft-deletes a quotation
// @Summary      Delete quotation
// @Description  Soft-deletes a quotation. Rejected with 409 while an approval cycle is open on it.
// @Tags         quotations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quotation ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/quotations/{id} [delete]
func (h *QuotationHandler) DeleteQuotation(c *gin.Context) {
	if err := h.quotationService.Delete(c.Request.Context(), c.Param("id"), contextUserID(c)); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
}

// GetApprovalTimeline returns all approval events across the quotation's cycles
// @Summary      Quotation approval timeline
// @Description  Returns the approval event history across every cycle opened for this quotation, oldest first
// @Tags         quotations
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quotation ID"
// @Success      200  {object}  response.Response{data=[]service.TimelineEventResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/quotations/{id}/timeline [get]
func (h *QuotationHandler) GetApprovalTimeline(c *gin.Context) {
	events, err := h.approvalService.GetTimeline(c.Request.Context(), "", c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, events))
}
