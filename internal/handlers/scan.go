package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/nifgashim/trek-api/internal/auth"
	"github.com/nifgashim/trek-api/internal/checkin"
)

type ScanHandler struct {
	verifier    *checkin.Verifier
	authHandler *auth.AuthHandler
}

func NewScanHandler(verifier *checkin.Verifier, authHandler *auth.AuthHandler) *ScanHandler {
	return &ScanHandler{verifier: verifier, authHandler: authHandler}
}

type ScanRequest struct {
	ScannerKey string `header:"X-Scanner-Key" required:"true" doc:"Operator device key"`
	Body       struct {
		Token string `json:"token" required:"true" doc:"Scanned QR payload"`
		Day   *int   `json:"day,omitempty" doc:"Trailhead day number; omit to accept any registered day"`
	}
}

type ScanResponse struct {
	Body checkin.Outcome
}

// HandleScan always answers 200 with a structured outcome: the scanner UI
// renders the outcome's message, so rejections are never bare errors.
func (h *ScanHandler) HandleScan(ctx context.Context, input *ScanRequest) (*ScanResponse, error) {
	operator, err := h.authHandler.AuthorizeScanner(input.ScannerKey)
	if err != nil {
		return nil, huma.Error401Unauthorized("Invalid scanner key")
	}

	outcome, err := h.verifier.Verify(ctx, input.Body.Token, input.Body.Day, operator)
	if err != nil {
		return nil, huma.Error500InternalServerError("Verification failed: " + err.Error())
	}
	return &ScanResponse{Body: outcome}, nil
}
