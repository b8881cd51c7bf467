package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/nifgashim/trek-api/internal/payments"
	"github.com/nifgashim/trek-api/internal/store"
	"github.com/sirupsen/logrus"
)

// WebhookHandler receives raw gateway callbacks. The consumer is a machine,
// so responses are terse status codes; detail goes to the log. A 404 tells
// the gateway to stop retrying a permanently missing registration; a 200
// acknowledges everything else, including absorbed replays.
type WebhookHandler struct {
	tranzila   payments.TranzilaAdapter
	meshulam   payments.MeshulamAdapter
	reconciler *payments.Reconciler
	log        *logrus.Logger
}

func NewWebhookHandler(tranzila payments.TranzilaAdapter, meshulam payments.MeshulamAdapter, reconciler *payments.Reconciler, log *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{tranzila: tranzila, meshulam: meshulam, reconciler: reconciler, log: log}
}

func (h *WebhookHandler) HandleTranzila(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	ev, err := h.tranzila.Normalize(r.PostForm)
	if err != nil {
		h.log.WithError(err).Warn("unrecognized tranzila callback")
		http.Error(w, "bad callback", http.StatusBadRequest)
		return
	}
	h.dispatch(w, r, ev)
}

func (h *WebhookHandler) HandleMeshulam(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	ev, err := h.meshulam.Normalize(body)
	if err != nil {
		h.log.WithError(err).Warn("unrecognized meshulam callback")
		http.Error(w, "bad callback", http.StatusBadRequest)
		return
	}
	h.dispatch(w, r, ev)
}

func (h *WebhookHandler) dispatch(w http.ResponseWriter, r *http.Request, ev payments.Event) {
	_, err := h.reconciler.HandleCallback(r.Context(), ev)
	if errors.Is(err, store.ErrRegistrationNotFound) {
		http.Error(w, "registration not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("registration_id", ev.RegistrationID).Error("callback processing failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Write([]byte("OK"))
}
