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
	"gorm.io/gorm"
)

// --- DTOs ---

type ClientAddressDTO struct {
	AddressType string `json:"address_type" binding:"required,oneof=BILLING SHIPPING"`
	FullAddress string `json:"full_address" binding:"required"`
	IsDefault   bool   `json:"is_default"`
}

type CreateClientDTO struct {
	Name          string             `json:"name" binding:"required,max=255"`
	CompanyName   string             `json:"company_name" binding:"max=255"`
	TaxCode       string             `json:"tax_code" binding:"max=50"`
	ContactPerson string             `json:"contact_person" binding:"max=255"`
	Phone         string             `json:"phone" binding:"max=50"`
	Email         string             `json:"email" binding:"omitempty,email"`
	Status        string             `json:"status" binding:"omitempty,oneof=LEAD ACTIVE INACTIVE"`
	Addresses     []ClientAddressDTO `json:"addresses" binding:"omitempty,dive"`
	CreatedBy     string             `json:"-"`
}

type UpdateClientDTO struct {
	ID            string              `json:"-"`
	Name          *string             `json:"name" binding:"omitempty,max=255"`
	CompanyName   *string             `json:"company_name"`
	TaxCode       *string             `json:"tax_code"`
	ContactPerson *string             `json:"contact_person"`
	Phone         *string             `json:"phone"`
	Email         *string             `json:"email" binding:"omitempty,email"`
	Status        *string             `json:"status" binding:"omitempty,oneof=LEAD ACTIVE INACTIVE"`
	Addresses     *[]ClientAddressDTO `json:"addresses" binding:"omitempty,dive"`
	UpdatedBy     string              `json:"-"`
}

type ClientAddressResponse struct {
	ID          string `json:"id"`
	AddressType string `json:"address_type"`
	FullAddress string `json:"full_address"`
	IsDefault   bool   `json:"is_default"`
}

type ClientResponse struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	CompanyName   string                  `json:"company_name,omitempty"`
	TaxCode       string                  `json:"tax_code,omitempty"`
	ContactPerson string                  `json:"contact_person,omitempty"`
	Phone         string                  `json:"phone,omitempty"`
	Email         string                  `json:"email,omitempty"`
	Status        string                  `json:"status"`
	Addresses     []ClientAddressResponse `json:"addresses,omitempty"`
	CreatedAt     string                  `json:"created_at"`
	UpdatedAt     string                  `json:"updated_at"`
}

// --- Interface ---

type ClientService interface {
	Create(ctx context.Context, req CreateClientDTO) (ClientResponse, error)
	GetByID(ctx context.Context, id string) (ClientResponse, error)
	List(ctx context.Context, status, search string, page, limit int) ([]ClientResponse, int64, error)
	Update(ctx context.Context, req UpdateClientDTO) (ClientResponse, error)
	Delete(ctx context.Context, id string, deletedBy string) error
}

type clientService struct {
	clientRepo repository.ClientRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
}

func NewClientService(clientRepo repository.ClientRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) ClientService {
	return &clientService{clientRepo: clientRepo, auditRepo: auditRepo, txManager: txManager}
}

// --- Implementation ---

func (s *clientService) Create(ctx context.Context, req CreateClientDTO) (ClientResponse, error) {
	createdBy, err := uuid.Parse(req.CreatedBy)
	if err != nil {
		return ClientResponse{}, &approval.ValidationError{Field: "created_by", Message: "not a valid uuid"}
	}

	status := req.Status
	if status == "" {
		status = model.ClientStatusLead
	}

	client := &model.Client{
		Name:          req.Name,
		CompanyName:   req.CompanyName,
		TaxCode:       req.TaxCode,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Status:        status,
		Addresses:     buildAddresses(req.Addresses),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.clientRepo.Create(txCtx, client); err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		return s.audit(txCtx, createdBy, model.ActionCreateClient, client)
	})
	if err != nil {
		return ClientResponse{}, err
	}

	return s.respond(ctx, client.ID)
}

func (s *clientService) GetByID(ctx context.Context, id string) (ClientResponse, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return ClientResponse{}, &approval.ValidationError{Field: "id", Message: "not a valid uuid"}
	}
	return s.respond(ctx, clientID)
}

func (s *clientService) List(ctx context.Context, status, search string, page, limit int) ([]ClientResponse, int64, error) {
	clients, total, err := s.clientRepo.List(ctx, status, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clients: %w", err)
	}

	responses := make([]ClientResponse, 0, len(clients))
	for i := range clients {
		responses = append(responses, toClientResponse(&clients[i]))
	}
	return responses, total, nil
}

func (s *clientService) Update(ctx context.Context, req UpdateClientDTO) (ClientResponse, error) {
	clientID, err := uuid.Parse(req.ID)
	if err != nil {
		return ClientResponse{}, &approval.ValidationError{Field: "id", Message: "not a valid uuid"}
	}
	updatedBy, err := uuid.Parse(req.UpdatedBy)
	if err != nil {
		return ClientResponse{}, &approval.ValidationError{Field: "updated_by", Message: "not a valid uuid"}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		client, err := s.clientRepo.FindByID(txCtx, clientID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &approval.ValidationError{Field: "id", Message: "client not found"}
			}
			return fmt.Errorf("failed to load client: %w", err)
		}

		if req.Name != nil {
			client.Name = *req.Name
		}
		if req.CompanyName != nil {
			client.CompanyName = *req.CompanyName
		}
		if req.TaxCode != nil {
			client.TaxCode = *req.TaxCode
		}
		if req.ContactPerson != nil {
			client.ContactPerson = *req.ContactPerson
		}
		if req.Phone != nil {
			client.Phone = *req.Phone
		}
		if req.Email != nil {
			client.Email = *req.Email
		}
		if req.Status != nil {
			client.Status = *req.Status
		}

		if err := s.clientRepo.Update(txCtx, client); err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}
		if req.Addresses != nil {
			if err := s.clientRepo.ReplaceAddresses(txCtx, client.ID, buildAddresses(*req.Addresses)); err != nil {
				return fmt.Errorf("failed to replace client addresses: %w", err)
			}
		}

		return s.audit(txCtx, updatedBy, model.ActionUpdateClient, client)
	})
	if err != nil {
		return ClientResponse{}, err
	}

	return s.respond(ctx, clientID)
}

func (s *clientService) Delete(ctx context.Context, id string, deletedBy string) error {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return &approval.ValidationError{Field: "id", Message: "not a valid uuid"}
	}
	userID, err := uuid.Parse(deletedBy)
	if err != nil {
		return &approval.ValidationError{Field: "deleted_by", Message: "not a valid uuid"}
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		client, err := s.clientRepo.FindByID(txCtx, clientID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &approval.ValidationError{Field: "id", Message: "client not found"}
			}
			return fmt.Errorf("failed to load client: %w", err)
		}

		if err := s.clientRepo.Delete(txCtx, clientID); err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}
		return s.audit(txCtx, userID, model.ActionDeleteClient, client)
	})
}

// --- Helpers ---

func (s *clientService) respond(ctx context.Context, id uuid.UUID) (ClientResponse, error) {
	client, err := s.clientRepo.FindByIDWithAddresses(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ClientResponse{}, &approval.ValidationError{Field: "id", Message: "client not found"}
		}
		return ClientResponse{}, fmt.Errorf("failed to load client: %w", err)
	}
	return toClientResponse(client), nil
}

func (s *clientService) audit(txCtx context.Context, userID uuid.UUID, action string, client *model.Client) error {
	details, _ := json.Marshal(map[string]string{
		"name":   client.Name,
		"status": client.Status,
	})
	entry := &model.AuditLog{
		UserID:     &userID,
		Action:     action,
		EntityID:   client.ID.String(),
		EntityName: client.Name,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(txCtx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func buildAddresses(dtos []ClientAddressDTO) []model.ClientAddress {
	addresses := make([]model.ClientAddress, 0, len(dtos))
	for _, dto := range dtos {
		addresses = append(addresses, model.ClientAddress{
			AddressType: dto.AddressType,
			FullAddress: dto.FullAddress,
			IsDefault:   dto.IsDefault,
		})
	}
	return addresses
}

func toClientResponse(c *model.Client) ClientResponse {
	resp := ClientResponse{
		ID:            c.ID.String(),
		Name:          c.Name,
		CompanyName:   c.CompanyName,
		TaxCode:       c.TaxCode,
		ContactPerson: c.ContactPerson,
		Phone:         c.Phone,
		Email:         c.Email,
		Status:        c.Status,
		CreatedAt:     c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     c.UpdatedAt.Format(time.RFC3339),
	}
	for i := range c.Addresses {
		addr := &c.Addresses[i]
		resp.Addresses = append(resp.Addresses, ClientAddressResponse{
			ID:          addr.ID.String(),
			AddressType: addr.AddressType,
			FullAddress: addr.FullAddress,
			IsDefault:   addr.IsDefault,
		})
	}
	return resp
}
