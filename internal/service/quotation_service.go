package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"crm-backend/internal/approval"
	"crm-backend/internal/model"
	"crm-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type QuotationItemDTO struct {
	Description string `json:"description" binding:"required,max=255"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice   string `json:"unit_price" binding:"required"` // decimal string
}

type CreateQuotationDTO struct {
	ClientID           string             `json:"client_id" binding:"required"`
	Items              []QuotationItemDTO `json:"items" binding:"required,min=1,dive"`
	DiscountPercentage string             `json:"discount_percentage"` // optional, defaults to 0
	TaxType            string             `json:"tax_type"`            // optional; resolved against active rules
	ValidUntil         string             `json:"valid_until"`         // RFC3339, optional
	Note               string             `json:"note"`
	CreatedBy          string             `json:"-"`
}

type UpdateQuotationDTO struct {
	ID                 string             `json:"-"`
	Items              []QuotationItemDTO `json:"items" binding:"omitempty,min=1,dive"`
	DiscountPercentage *string            `json:"discount_percentage"`
	TaxType            *string            `json:"tax_type"`
	ValidUntil         *string            `json:"valid_until"`
	Note               *string            `json:"note"`
	Status             *string            `json:"status"`
	UpdatedBy          string             `json:"-"`
}

type QuotationItemResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type QuotationResponse struct {
	ID                 string                  `json:"id"`
	QuoteNo            string                  `json:"quote_no"`
	ClientID           string                  `json:"client_id"`
	ClientName         string                  `json:"client_name,omitempty"`
	Status             string                  `json:"status"`
	DiscountPercentage string                  `json:"discount_percentage"`
	Subtotal           string                  `json:"subtotal"`
	DiscountAmount     string                  `json:"discount_amount"`
	TaxAmount          string                  `json:"tax_amount"`
	TotalAmount        string                  `json:"total_amount"`
	RequiresApproval   bool                    `json:"requires_approval"`
	LockedByApproval   *string                 `json:"locked_by_approval"`
	Items              []QuotationItemResponse `json:"items,omitempty"`
	Note               string                  `json:"note,omitempty"`
	ValidUntil         *string                 `json:"valid_until"`
	CreatedAt          string                  `json:"created_at"`
	UpdatedAt          string                  `json:"updated_at"`
}

// --- Interface ---

type QuotationService interface {
	Create(ctx context.Context, req CreateQuotationDTO) (QuotationResponse, error)
	GetByID(ctx context.Context, id string) (QuotationResponse, error)
	List(ctx context.Context, clientID, status string, page, limit int) ([]QuotationResponse, int64, error)
	Update(ctx context.Context, req UpdateQuotationDTO) (QuotationResponse, error)
	Delete(ctx context.Context, id string, deletedBy string) error
	// ApplyApprovedDiscount stamps the approved discount onto the
	// quotation once its approval cycle resolves.
	ApplyApprovedDiscount(ctx context.Context, quotationID uuid.UUID, discount decimal.Decimal) error
}

type quotationService struct {
	db              *gorm.DB
	quotationRepo   repository.QuotationRepository
	clientRepo      repository.ClientRepository
	taxRuleRepo     repository.TaxRuleRepository
	approvalRepo    repository.ApprovalRepository
	auditRepo       repository.AuditRepository
	txManager       repository.TransactionManager
	thresholdSource ThresholdSource
}

func NewQuotationService(
	db *gorm.DB,
	quotationRepo repository.QuotationRepository,
	clientRepo repository.ClientRepository,
	taxRuleRepo repository.TaxRuleRepository,
	approvalRepo repository.ApprovalRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	thresholdSource ThresholdSource,
) QuotationService {
	return &quotationService{
		db:              db,
		quotationRepo:   quotationRepo,
		clientRepo:      clientRepo,
		taxRuleRepo:     taxRuleRepo,
		approvalRepo:    approvalRepo,
		auditRepo:       auditRepo,
		txManager:       txManager,
		thresholdSource: thresholdSource,
	}
}

// --- Implementation ---

func (s *quotationService) Create(ctx context.Context, req CreateQuotationDTO) (QuotationResponse, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return QuotationResponse{}, &approval.ValidationError{Field: "client_id", Message: "not a valid uuid"}
	}
	createdBy, err := uuid.Parse(req.CreatedBy)
	if err != nil {
		return QuotationResponse{}, &approval.ValidationError{Field: "created_by", Message: "not a valid uuid"}
	}

	if _, err := s.clientRepo.FindByID(ctx, clientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return QuotationResponse{}, &approval.ValidationError{Field: "client_id", Message: "client not found"}
		}
		return QuotationResponse{}, fmt.Errorf("failed to load client: %w", err)
	}

	discount := decimal.Zero
	if req.DiscountPercentage != "" {
		discount, err = decimal.NewFromString(req.DiscountPercentage)
		if err != nil {
			return QuotationResponse{}, &approval.ValidationError{Field: "discount_percentage", Message: "not a valid decimal"}
		}
	}
	if err := approval.ValidateDiscount(discount); err != nil {
		return QuotationResponse{}, err
	}

	items, subtotal, err := buildItems(req.Items)
	if err != nil {
		return QuotationResponse{}, err
	}

	taxRule, err := s.resolveTaxRule(ctx, req.TaxType)
	if err != nil {
		return QuotationResponse{}, err
	}

	var validUntil *time.Time
	if req.ValidUntil != "" {
		t, err := time.Parse(time.RFC3339, req.ValidUntil)
		if err != nil {
			return QuotationResponse{}, &approval.ValidationError{Field: "valid_until", Message: "not a valid RFC3339 timestamp"}
		}
		validUntil = &t
	}

	quotation := &model.Quotation{
		ClientID:           clientID,
		CreatedByID:        createdBy,
		Status:             model.QuotationStatusDraft,
		DiscountPercentage: discount,
		Items:              items,
		Note:               req.Note,
		ValidUntil:         validUntil,
	}
	applyTotals(quotation, subtotal, discount, taxRule)

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		quoteNo, err := s.generateQuoteNo(txCtx)
		if err != nil {
			return fmt.Errorf("failed to generate quote number: %w", err)
		}
		quotation.QuoteNo = quoteNo

		if err := s.quotationRepo.Create(txCtx, quotation); err != nil {
			return fmt.Errorf("failed to create quotation: %w", err)
		}

		return s.audit(txCtx, createdBy, model.ActionCreateQuotation, quotation)
	})
	if err != nil {
		return QuotationResponse{}, err
	}

	return s.respond(ctx, quotation.ID)
}

func (s *quotationService) GetByID(ctx context.Context, id string) (QuotationResponse, error) {
	quotationID, err := uuid.Parse(id)
	if err != nil {
		return QuotationResponse{}, &approval.ValidationError{Field: "id", Message: "not a valid uuid"}
	}
	return s.respond(ctx, quotationID)
}

func (s *quotationService) List(ctx context.Context, clientID, status string, page, limit int) ([]QuotationResponse, int64, error) {
	var clientFilter *uuid.UUID
	if clientID != "" {
		id, err := uuid.Parse(clientID)
		if err != nil {
			return nil, 0, &approval.ValidationError{Field: "client_id", Message: "not a valid uuid"}
		}
		clientFilter = &id
	}

	quotations, total, err := s.quotationRepo.List(ctx, clientFilter, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list quotations: %w", err)
	}

	responses := make([]QuotationResponse, 0, len(quotations))
	for i := range quotations {
		resp := toQuotationResponse(&quotations[i])
		responses = append(responses, resp)
	}
	return responses, total, nil
}

func (s *quotationService) Update(ctx context.Context, req UpdateQuotationDTO) (QuotationResponse, error) {
	quotationID, err := uuid.Parse(req.ID)
	if err != nil {
		return QuotationResponse{}, &approval.ValidationError{Field: "id", Message: "not a valid uuid"}
	}
	updatedBy, err := uuid.Parse(req.UpdatedBy)
	if err != nil {
		return QuotationResponse{}, &approval.ValidationError{Field: "updated_by", Message: "not a valid uuid"}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Same advisory lock the approval workflow takes: an edit and a
		// concurrent approval request for this quotation serialize here,
		// so the lock check below cannot go stale before the write.
		if err := repository.LockQuotation(txCtx, s.db, quotationID); err != nil {
			return fmt.Errorf("failed to lock quotation: %w", err)
		}

		if open, err := s.approvalRepo.FindOpenByQuotation(txCtx, quotationID); err == nil {
			return &approval.QuotationLockedError{QuotationID: quotationID, ApprovalID: open.ID}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check quotation lock: %w", err)
		}

		quotation, err := s.quotationRepo.FindByIDForUpdate(txCtx, quotationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &approval.ValidationError{Field: "id", Message: "quotation not found"}
			}
			return fmt.Errorf("failed to load quotation: %w", err)
		}

		if err := s.applyUpdate(txCtx, quotation, req); err != nil {
			return err
		}

		if err := s.quotationRepo.Update(txCtx, quotation); err != nil {
			return fmt.Errorf("failed to update quotation: %w", err)
		}
		if req.Items != nil {
			if err := s.quotationRepo.ReplaceItems(txCtx, quotation.ID, quotation.Items); err != nil {
				return fmt.Errorf("failed to replace quotation items: %w", err)
			}
		}

		return s.audit(txCtx, updatedBy, model.ActionUpdateQuotation, quotation)
	})
	if err != nil {
		return QuotationResponse{}, err
	}

	return s.respond(ctx, quotationID)
}

// applyUpdate merges the patch onto the loaded quotation and recomputes
// the money columns when anything that feeds them changed.
func (s *quotationService) applyUpdate(txCtx context.Context, quotation *model.Quotation, req UpdateQuotationDTO) error {
	recompute := false
	subtotal := quotation.Subtotal

	if req.Items != nil {
		items, itemsSubtotal, err := buildItems(req.Items)
		if err != nil {
			return err
		}
		quotation.Items = items
		subtotal = itemsSubtotal
		recompute = true
	}

	discount := quotation.DiscountPercentage
	if req.DiscountPercentage != nil {
		parsed, err := decimal.NewFromString(*req.DiscountPercentage)
		if err != nil {
			return &approval.ValidationError{Field: "discount_percentage", Message: "not a valid decimal"}
		}
		if err := approval.ValidateDiscount(parsed); err != nil {
			return err
		}
		discount = parsed
		recompute = true
	}

	taxRule := quotation.TaxRule
	if req.TaxType != nil {
		resolved, err := s.resolveTaxRule(txCtx, *req.TaxType)
		if err != nil {
			return err
		}
		taxRule = resolved
		recompute = true
	}

	if req.ValidUntil != nil {
		if *req.ValidUntil == "" {
			quotation.ValidUntil = nil
		} else {
			t, err := time.Parse(time.RFC3339, *req.ValidUntil)
			if err != nil {
				return &approval.ValidationError{Field: "valid_until", Message: "not a valid RFC3339 timestamp"}
			}
			quotation.ValidUntil = &t
		}
	}
	if req.Note != nil {
		quotation.Note = *req.Note
	}
	if req.Status != nil {
		if !isValidQuotationStatus(*req.Status) {
			return &approval.ValidationError{Field: "status", Message: "must be one of DRAFT, SENT, ACCEPTED, DECLINED, EXPIRED"}
		}
		quotation.Status = *req.Status
	}

	if recompute {
		quotation.DiscountPercentage = discount
		applyTotals(quotation, subtotal, discount, taxRule)
	}
	return nil
}

func (s *quotationService) Delete(ctx context.Context, id string, deletedBy string) error {
	quotationID, err := uuid.Parse(id)
	if err != nil {
		return &approval.ValidationError{Field: "id", Message: "not a valid uuid"}
	}
	userID, err := uuid.Parse(deletedBy)
	if err != nil {
		return &approval.ValidationError{Field: "deleted_by", Message: "not a valid uuid"}
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := repository.LockQuotation(txCtx, s.db, quotationID); err != nil {
			return fmt.Errorf("failed to lock quotation: %w", err)
		}

		if open, err := s.approvalRepo.FindOpenByQuotation(txCtx, quotationID); err == nil {
			return &approval.QuotationLockedError{QuotationID: quotationID, ApprovalID: open.ID}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check quotation lock: %w", err)
		}

		quotation, err := s.quotationRepo.FindByID(txCtx, quotationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &approval.ValidationError{Field: "id", Message: "quotation not found"}
			}
			return fmt.Errorf("failed to load quotation: %w", err)
		}

		if err := s.quotationRepo.Delete(txCtx, quotationID); err != nil {
			return fmt.Errorf("failed to delete quotation: %w", err)
		}

		return s.audit(txCtx, userID, model.ActionDeleteQuotation, quotation)
	})
}

func (s *quotationService) ApplyApprovedDiscount(ctx context.Context, quotationID uuid.UUID, discount decimal.Decimal) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		quotation, err := s.quotationRepo.FindByIDWithItems(txCtx, quotationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &approval.ValidationError{Field: "quotation_id", Message: "quotation not found"}
			}
			return fmt.Errorf("failed to load quotation: %w", err)
		}

		subtotal := decimal.Zero
		for _, item := range quotation.Items {
			subtotal = subtotal.Add(item.LineTotal)
		}
		quotation.DiscountPercentage = discount
		applyTotals(quotation, subtotal, discount, quotation.TaxRule)

		if err := s.quotationRepo.Update(txCtx, quotation); err != nil {
			return fmt.Errorf("failed to update quotation: %w", err)
		}
		return nil
	})
}

// --- Helpers ---

func (s *quotationService) generateQuoteNo(ctx context.Context) (string, error) {
	today := time.Now().Format("20060102")
	prefix := "QUO-" + today + "-"

	count, err := s.quotationRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

func (s *quotationService) resolveTaxRule(ctx context.Context, taxType string) (*model.TaxRule, error) {
	if taxType == "" {
		return nil, nil
	}
	rule, err := s.taxRuleRepo.FindActiveByType(ctx, taxType, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &approval.ValidationError{Field: "tax_type", Message: fmt.Sprintf("no active tax rule for %s", taxType)}
		}
		return nil, fmt.Errorf("failed to resolve tax rule: %w", err)
	}
	return rule, nil
}

func (s *quotationService) respond(ctx context.Context, id uuid.UUID) (QuotationResponse, error) {
	quotation, err := s.quotationRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return QuotationResponse{}, &approval.ValidationError{Field: "id", Message: "quotation not found"}
		}
		return QuotationResponse{}, fmt.Errorf("failed to load quotation: %w", err)
	}

	resp := toQuotationResponse(quotation)

	if open, err := s.approvalRepo.FindOpenByQuotation(ctx, id); err == nil {
		locked := open.ID.String()
		resp.LockedByApproval = &locked
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return QuotationResponse{}, fmt.Errorf("failed to check quotation lock: %w", err)
	}

	if thresholds, err := s.thresholdSource.CurrentThresholds(ctx); err == nil {
		resp.RequiresApproval = approval.RequiresApproval(quotation.DiscountPercentage, thresholds)
	}

	return resp, nil
}

func (s *quotationService) audit(txCtx context.Context, userID uuid.UUID, action string, quotation *model.Quotation) error {
	details, _ := json.Marshal(map[string]string{
		"quote_no": quotation.QuoteNo,
		"client":   quotation.ClientID.String(),
		"total":    quotation.TotalAmount.StringFixed(2),
		"discount": quotation.DiscountPercentage.StringFixed(2),
	})
	entry := &model.AuditLog{
		UserID:     &userID,
		Action:     action,
		EntityID:   quotation.ID.String(),
		EntityName: quotation.QuoteNo,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(txCtx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func buildItems(dtos []QuotationItemDTO) ([]model.QuotationItem, decimal.Decimal, error) {
	items := make([]model.QuotationItem, 0, len(dtos))
	subtotal := decimal.Zero
	for i, dto := range dtos {
		unitPrice, err := decimal.NewFromString(dto.UnitPrice)
		if err != nil {
			return nil, decimal.Zero, &approval.ValidationError{
				Field:   fmt.Sprintf("items[%d].unit_price", i),
				Message: "not a valid decimal",
			}
		}
		if unitPrice.IsNegative() {
			return nil, decimal.Zero, &approval.ValidationError{
				Field:   fmt.Sprintf("items[%d].unit_price", i),
				Message: "must not be negative",
			}
		}
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(dto.Quantity)))
		items = append(items, model.QuotationItem{
			Description: dto.Description,
			Quantity:    dto.Quantity,
			UnitPrice:   unitPrice,
			LineTotal:   lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return items, subtotal, nil
}

// applyTotals recomputes the money columns. Tax applies to the
// post-discount amount.
func applyTotals(q *model.Quotation, subtotal, discount decimal.Decimal, taxRule *model.TaxRule) {
	q.Subtotal = subtotal
	q.DiscountAmount = subtotal.Mul(discount).Div(decimal.NewFromInt(100))
	afterDiscount := subtotal.Sub(q.DiscountAmount)

	q.TaxAmount = decimal.Zero
	if taxRule != nil {
		q.TaxRuleID = &taxRule.ID
		q.TaxRule = taxRule
		q.TaxAmount = afterDiscount.Mul(taxRule.Rate)
	}
	q.TotalAmount = afterDiscount.Add(q.TaxAmount)
}

func isValidQuotationStatus(status string) bool {
	switch status {
	case model.QuotationStatusDraft, model.QuotationStatusSent, model.QuotationStatusAccepted,
		model.QuotationStatusDeclined, model.QuotationStatusExpired:
		return true
	}
	return false
}

func toQuotationResponse(q *model.Quotation) QuotationResponse {
	resp := QuotationResponse{
		ID:                 q.ID.String(),
		QuoteNo:            q.QuoteNo,
		ClientID:           q.ClientID.String(),
		Status:             q.Status,
		DiscountPercentage: q.DiscountPercentage.StringFixed(2),
		Subtotal:           q.Subtotal.StringFixed(2),
		DiscountAmount:     q.DiscountAmount.StringFixed(2),
		TaxAmount:          q.TaxAmount.StringFixed(2),
		TotalAmount:        q.TotalAmount.StringFixed(2),
		Note:               q.Note,
		CreatedAt:          q.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          q.UpdatedAt.Format(time.RFC3339),
	}
	if q.Client != nil {
		resp.ClientName = q.Client.Name
	}
	if q.ValidUntil != nil {
		t := q.ValidUntil.Format(time.RFC3339)
		resp.ValidUntil = &t
	}
	for i := range q.Items {
		item := &q.Items[i]
		resp.Items = append(resp.Items, QuotationItemResponse{
			ID:          item.ID.String(),
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			LineTotal:   item.LineTotal.StringFixed(2),
		})
	}
	return resp
}
