package handler

import (
	"net/http"

	"crm-backend/internal/middleware"
	"crm-backend/internal/service"
	"crm-backend/pkg/pagination"
	"crm-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	guard          gin.HandlerFunc
}

func NewPaymentHandler(paymentService service.PaymentService, guard gin.HandlerFunc) *PaymentHandler {
	if guard == nil {
		guard = func(c *gin.Context) { c.Next() }
	}
	return &PaymentHandler{paymentService: paymentService, guard: guard}
}

func (h *PaymentHandler) RegisterRoutes(router *gin.RouterGroup) {
	payments := router.Group("/api/payments")
	{
		payments.POST("", middleware.RequirePermission("payments.write"), h.guard, h.RecordPayment)
		payments.GET("", middleware.RequirePermission("payments.read"), h.ListPayments)
		payments.GET("/:id", middleware.RequirePermission("payments.read"), h.GetPayment)
		payments.POST("/:id/refunds", middleware.RequirePermission("payments.write"), h.guard, h.RecordRefund)
	}

	router.GET("/api/quotations/:id/payments", middleware.RequirePermission("payments.read"), h.ListQuotationPayments)
}

// RecordPayment records money received against an accepted quotation
// @Summary      Record payment
// @Description  Records a payment against an accepted quotation. Cumulative payments may not exceed the quotation total.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RecordPaymentDTO  true  "Payment Payload"
// @Success      201      {object}  response.Response{data=service.PaymentResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/payments [post]
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.RecordedBy = contextUserID(c)

	payment, err := h.paymentService.RecordPayment(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}

// ListPayments returns a paginated payment list
// @Summary      List payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        client_id  query     string  false  "Filter by client ID"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=object}
// @Failure      500        {object}  response.Response
// @Router       /api/payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	params := pagination.Parse(c)

	payments, total, err := h.paymentService.List(c.Request.Context(), c.Query("client_id"), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, payments, total, params.Page, params.Limit))
}

// GetPayment returns a payment with its refunds
// @Summary      Get payment
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  response.Response{data=service.PaymentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payment))
}

// RecordRefund records a refund against a payment
// @Summary      Record refund
// @Description  Records a refund. Cumulative refunds may not exceed the payment amount; a fully refunded payment flips to REFUNDED.
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Payment ID"
// @Param        payload  body      service.RecordRefundDTO  true  "Refund Payload"
// @Success      201      {object}  response.Response{data=service.RefundResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/payments/{id}/refunds [post]
func (h *PaymentHandler) RecordRefund(c *gin.Context) {
	var req service.RecordRefundDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.PaymentID = c.Param("id")
	req.RecordedBy = contextUserID(c)

	refund, err := h.paymentService.RecordRefund(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, refund))
}

// ListQuotationPayments returns all payments for one quotation
// @Summary      List quotation payments
// @Tags         payments
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Quotation ID"
// @Success      200  {object}  response.Response{data=[]service.PaymentResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/quotations/{id}/payments [get]
func (h *PaymentHandler) ListQuotationPayments(c *gin.Context) {
	payments, err := h.paymentService.ListByQuotation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}
