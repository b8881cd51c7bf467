package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/nifgashim/trek-api/internal/auth"
	"github.com/nifgashim/trek-api/internal/models"
	"gorm.io/gorm"
)

type ScannerKeyHandler struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
}

func NewScannerKeyHandler(db *gorm.DB, authHandler *auth.AuthHandler) *ScannerKeyHandler {
	return &ScannerKeyHandler{db: db, authHandler: authHandler}
}

type CreateScannerKeyInput struct {
	auth.AuthInput
	Body struct {
		Name      string     `json:"name" required:"true" doc:"Operator label, recorded as checked_in_by"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
}

type ScannerKeyResponse struct {
	ID         uint       `json:"id"`
	Name       string     `json:"name"`
	Key        string     `json:"key,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

type CreateScannerKeyOutput struct {
	Body ScannerKeyResponse
}

func (h *ScannerKeyHandler) HandleCreate(ctx context.Context, input *CreateScannerKeyInput) (*CreateScannerKeyOutput, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}

	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate key")
	}
	key := hex.EncodeToString(keyBytes)

	scannerKey := models.ScannerKey{
		Name:        input.Body.Name,
		Key:         key,
		CreatedByID: userID,
		ExpiresAt:   input.Body.ExpiresAt,
	}
	if err := h.db.Create(&scannerKey).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to save key")
	}

	// The secret is shown exactly once, at creation.
	res := &CreateScannerKeyOutput{}
	res.Body = ScannerKeyResponse{
		ID:        scannerKey.ID,
		Name:      scannerKey.Name,
		Key:       key,
		CreatedAt: scannerKey.CreatedAt,
		ExpiresAt: scannerKey.ExpiresAt,
	}
	return res, nil
}

type ListScannerKeysInput struct {
	auth.AuthInput
}

type ListScannerKeysOutput struct {
	Body struct {
		Keys []ScannerKeyResponse `json:"keys"`
	}
}

func (h *ScannerKeyHandler) HandleList(ctx context.Context, input *ListScannerKeysInput) (*ListScannerKeysOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	var keys []models.ScannerKey
	if err := h.db.Order("created_at").Find(&keys).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list keys")
	}

	res := &ListScannerKeysOutput{}
	for _, k := range keys {
		res.Body.Keys = append(res.Body.Keys, ScannerKeyResponse{
			ID:         k.ID,
			Name:       k.Name,
			CreatedAt:  k.CreatedAt,
			ExpiresAt:  k.ExpiresAt,
			LastUsedAt: k.LastUsedAt,
		})
	}
	return res, nil
}

type DeleteScannerKeyInput struct {
	auth.AuthInput
	ID uint `path:"id"`
}

func (h *ScannerKeyHandler) HandleDelete(ctx context.Context, input *DeleteScannerKeyInput) (*MessageResponse, error) {
	if _, err := h.authHandler.Authorize(ctx, input.Cookie); err != nil {
		return nil, err
	}

	res := h.db.Delete(&models.ScannerKey{}, input.ID)
	if res.Error != nil {
		return nil, huma.Error500InternalServerError("Failed to delete key")
	}
	if res.RowsAffected == 0 {
		return nil, huma.Error404NotFound("Key not found")
	}

	out := &MessageResponse{}
	out.Body.Message = "Key revoked"
	return out, nil
}
