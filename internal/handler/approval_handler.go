package handler

import (
	"net/http"

	"crm-backend/internal/middleware"
	"crm-backend/internal/service"
	"crm-backend/pkg/pagination"
	"crm-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
	metricsService  service.ApprovalMetricsService
	guard           gin.HandlerFunc
}

// NewApprovalHandler wires the approval workflow endpoints. guard is the
// idempotency middleware applied to mutating routes; pass nil to skip.
func NewApprovalHandler(approvalService service.ApprovalService, metricsService service.ApprovalMetricsService, guard gin.HandlerFunc) *ApprovalHandler {
	if guard == nil {
		guard = func(c *gin.Context) { c.Next() }
	}
	return &ApprovalHandler{
		approvalService: approvalService,
		metricsService:  metricsService,
		guard:           guard,
	}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/api/approvals")
	{
		approvals.POST("", middleware.RequirePermission("approvals.request"), h.guard, h.RequestApproval)
		approvals.GET("", middleware.RequirePermission("approvals.read"), h.ListApprovals)
		approvals.GET("/metrics", middleware.RequirePermission("dashboard.read"), h.GetMetrics)
		approvals.GET("/:id/timeline", middleware.RequirePermission("approvals.read"), h.GetTimeline)
		approvals.PUT("/:id/approve", middleware.RequirePermission("approvals.approve"), h.guard, h.Approve)
		approvals.PUT("/:id/reject", middleware.RequirePermission("approvals.approve"), h.guard, h.Reject)
		approvals.PUT("/:id/escalate", middleware.RequirePermission("approvals.approve"), h.guard, h.Escalate)
		approvals.POST("/:id/resubmit", middleware.RequirePermission("approvals.request"), h.guard, h.Resubmit)
		approvals.POST("/bulk-approve", middleware.RequirePermission("approvals.approve"), h.guard, h.BulkApprove)
	}
}

// RequestApproval opens a new discount approval cycle for a quotation
// @Summary      Request discount approval
// @Description  Opens an approval cycle for a quotation discount exceeding the manager threshold. The quotation is locked against edits until the cycle resolves.
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RequestApprovalDTO  true  "Approval Request Payload"
// @Success      201      {object}  response.Response{data=service.ApprovalResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals [post]
func (h *ApprovalHandler) RequestApproval(c *gin.Context) {
	var req service.RequestApprovalDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.RequestedBy = contextUserID(c)
	req.RequestedByRole = contextUserRole(c)

	result, err := h.approvalService.RequestApproval(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListApprovals returns a paginated list of approvals
// @Summary      List discount approvals
// @Description  Retrieves a paginated list of discount approvals, optionally filtered by status, quotation, or approver
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        status        query     string  false  "Filter by status (PENDING, APPROVED, REJECTED, ESCALATED)"
// @Param        quotation_id  query     string  false  "Filter by quotation ID"
// @Param        approver_id   query     string  false  "Filter by approver ID"
// @Param        page          query     int     false  "Page number (default 1)"
// @Param        limit         query     int     false  "Number of items per page (default 20)"
// @Success      200           {object}  response.Response{data=object}
// @Failure      500           {object}  response.Response
// @Router       /api/approvals [get]
func (h *ApprovalHandler) ListApprovals(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.ApprovalListFilter{
		Status:      c.Query("status"),
		QuotationID: c.Query("quotation_id"),
		ApproverID:  c.Query("approver_id"),
		Page:        params.Page,
		Limit:       params.Limit,
	}

	approvals, total, err := h.approvalService.ListApprovals(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, approvals, total, params.Page, params.Limit))
}

// GetMetrics returns approval workflow metrics
// @Summary      Approval metrics
// @Description  Aggregated approval counts, turnaround, rejection rate, and escalation count over an optional date range
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        from         query     string  false  "Range start (RFC3339)"
// @Param        to           query     string  false  "Range end (RFC3339)"
// @Param        approver_id  query     string  false  "Filter by approver ID"
// @Success      200          {object}  response.Response{data=service.ApprovalMetricsResponse}
// @Failure      400          {object}  response.Response
// @Router       /api/approvals/metrics [get]
func (h *ApprovalHandler) GetMetrics(c *gin.Context) {
	filter := service.ApprovalMetricsFilter{
		From:       c.Query("from"),
		To:         c.Query("to"),
		ApproverID: c.Query("approver_id"),
	}

	metrics, err := h.metricsService.Metrics(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, metrics))
}

// GetTimeline returns the event history for one approval
// @Summary      Approval timeline
// @Description  Returns the append-only event history of an approval cycle, oldest first
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Approval ID"
// @Success      200  {object}  response.Response{data=[]service.TimelineEventResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/approvals/{id}/timeline [get]
func (h *ApprovalHandler) GetTimeline(c *gin.Context) {
	events, err := h.approvalService.GetTimeline(c.Request.Context(), c.Param("id"), "")
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, events))
}

// Approve approves a pending or escalated discount request
// @Summary      Approve discount
// @Description  Approves a pending or escalated discount approval. The actor's role must cover the required approval level.
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true   "Approval ID"
// @Param        payload  body      service.ApprovalDecisionDTO  false  "Optional comments"
// @Success      200      {object}  response.Response{data=service.ApprovalResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{id}/approve [put]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	var req service.ApprovalDecisionDTO
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.ApprovalID = c.Param("id")
	req.UserID = contextUserID(c)
	req.UserRole = contextUserRole(c)

	result, err := h.approvalService.Approve(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Reject rejects a pending or escalated discount request
// @Summary      Reject discount
// @Description  Rejects a pending or escalated discount approval with a mandatory reason. The quotation unlocks and the requester may resubmit.
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Approval ID"
// @Param        payload  body      service.RejectApprovalDTO  true  "Rejection reason"
// @Success      200      {object}  response.Response{data=service.ApprovalResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{id}/reject [put]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	var req service.RejectApprovalDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.ApprovalID = c.Param("id")
	req.UserID = contextUserID(c)
	req.UserRole = contextUserRole(c)

	result, err := h.approvalService.Reject(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Escalate pushes a pending approval to admin level
// @Summary      Escalate approval
// @Description  Escalates a pending approval so only an admin can resolve it
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true   "Approval ID"
// @Param        payload  body      service.EscalateApprovalDTO  false  "Optional escalation reason"
// @Success      200      {object}  response.Response{data=service.ApprovalResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{id}/escalate [put]
func (h *ApprovalHandler) Escalate(c *gin.Context) {
	var req service.EscalateApprovalDTO
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.ApprovalID = c.Param("id")
	req.UserID = contextUserID(c)
	req.UserRole = contextUserRole(c)

	result, err := h.approvalService.Escalate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Resubmit opens a new cycle after a rejection
// @Summary      Resubmit approval
// @Description  Opens a fresh approval cycle for a rejected request, linked to the prior cycle. Only the original requester may resubmit.
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Rejected Approval ID"
// @Param        payload  body      service.ResubmitApprovalDTO  true  "Resubmission payload"
// @Success      201      {object}  response.Response{data=service.ApprovalResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/approvals/{id}/resubmit [post]
func (h *ApprovalHandler) Resubmit(c *gin.Context) {
	var req service.ResubmitApprovalDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.ApprovalID = c.Param("id")
	req.ResubmittedBy = contextUserID(c)
	req.ResubmittedByRole = contextUserRole(c)

	result, err := h.approvalService.Resubmit(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// BulkApprove approves several approvals in one call
// @Summary      Bulk approve
// @Description  Approves a batch of approvals independently; failed items are reported per ID without affecting the rest
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BulkApproveDTO  true  "Bulk approval payload"
// @Success      200      {object}  response.Response{data=[]service.BulkApproveResult}
// @Failure      400      {object}  response.Response
// @Router       /api/approvals/bulk-approve [post]
func (h *ApprovalHandler) BulkApprove(c *gin.Context) {
	var req service.BulkApproveDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.UserID = contextUserID(c)
	req.UserRole = contextUserRole(c)

	results, err := h.approvalService.BulkApprove(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, results))
}

// --- Context helpers shared across handlers ---

func contextUserID(c *gin.Context) string {
	v, _ := c.Get("userID")
	s, _ := v.(string)
	return s
}

func contextUserRole(c *gin.Context) string {
	v, _ := c.Get("userRole")
	s, _ := v.(string)
	return s
}
