package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nifgashim/trek-api/internal/auth"
)

type Handlers struct {
	Auth         *auth.AuthHandler
	Registration *RegistrationHandler
	Webhook      *WebhookHandler
	Scan         *ScanHandler
	Admin        *AdminHandler
	ScannerKeys  *ScannerKeyHandler
	Export       *ExportHandler
}

func RegisterRoutes(r *chi.Mux, h Handlers) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Initialize Huma API
	config := huma.DefaultConfig("Nifgashim API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: "auth_token",
		},
		"scannerKey": {
			Type: "apiKey",
			In:   "header",
			Name: "X-Scanner-Key",
		},
	}
	api := humachi.New(r, config)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Organizer login
	r.Get("/auth/discord/login", h.Auth.HandleLogin)
	r.Get("/auth/discord/callback", h.Auth.HandleCallback)

	// Gateway callbacks: raw handlers, terse machine responses.
	r.Post("/webhooks/tranzila", h.Webhook.HandleTranzila)
	r.Post("/webhooks/meshulam", h.Webhook.HandleMeshulam)

	// Registrant-facing
	huma.Post(api, "/registrations", h.Registration.HandleCreate)
	huma.Get(api, "/registrations/{id}", h.Registration.HandleGet)
	huma.Put(api, "/registrations/{id}/days", h.Registration.HandleUpdateDays)

	// Trailhead scanners
	huma.Post(api, "/scan", h.Scan.HandleScan, func(o *huma.Operation) {
		o.Security = []map[string][]string{{"scannerKey": {}}}
	})

	// Organizer API; each operation authorizes the session cookie itself.
	adminOp := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}}
	}
	huma.Post(api, "/admin/trips", h.Admin.HandleCreateTrip, adminOp)
	huma.Put(api, "/admin/registrations/{id}/days", h.Registration.HandleAdminUpdateDays, adminOp)
	huma.Post(api, "/admin/registrations/{id}/resend", h.Admin.HandleResendTokens, adminOp)
	huma.Post(api, "/admin/registrations/{id}/exempt", h.Admin.HandleExempt, adminOp)
	huma.Post(api, "/admin/registrations/{id}/cancel", h.Admin.HandleCancel, adminOp)
	huma.Post(api, "/admin/notify-pending", h.Admin.HandleNotifyPending, adminOp)
	huma.Post(api, "/admin/scanner-keys", h.ScannerKeys.HandleCreate, adminOp)
	huma.Get(api, "/admin/scanner-keys", h.ScannerKeys.HandleList, adminOp)
	huma.Delete(api, "/admin/scanner-keys/{id}", h.ScannerKeys.HandleDelete, adminOp)

	// CSV download needs a raw response; guarded by the cookie middleware.
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.AdminMiddleware)
		r.Get("/admin/export", h.Export.HandleExport)
	})
}
