package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"

	"github.com/nifgashim/trek-api/internal/models"
	"github.com/nifgashim/trek-api/internal/store"
	"github.com/sirupsen/logrus"
)

// ExportHandler streams registrations and their check-ins as CSV, one row
// per participant. A raw handler rather than a huma operation so the
// response can be a plain text/csv download.
type ExportHandler struct {
	store *store.Store
	log   *logrus.Logger
}

func NewExportHandler(s *store.Store, log *logrus.Logger) *ExportHandler {
	return &ExportHandler{store: s, log: log}
}

func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	filter := store.Filter{TripID: r.URL.Query().Get("trip_id")}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = models.RegistrationStatus(status)
	}

	regs, err := h.store.FilterRegistrations(r.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("export query failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="registrations.csv"`)

	cw := csv.NewWriter(w)

	cw.Write([]string{
		"registration_id", "trip_id", "status", "payment_status",
		"transaction_id", "amount", "amount_paid", "selected_days",
		"participant_name", "id_number", "phone", "email",
		"checked_in_days", "checked_in_by",
	})

	for _, reg := range regs {
		for _, p := range reg.Participants {
			days, operators := checkInColumns(reg.CheckIns, p.Key())
			cw.Write([]string{
				reg.ID,
				reg.TripID,
				string(reg.Status),
				string(reg.PaymentStatus),
				reg.TransactionID,
				fmt.Sprintf("%.2f", reg.Amount),
				fmt.Sprintf("%.2f", reg.AmountPaid),
				joinInts(reg.SelectedDays),
				p.Name,
				p.IDNumber,
				p.Phone,
				p.Email,
				days,
				operators,
			})
		}
	}

	// The headers are already sent, so a failed write can only truncate
	// the download. Make sure it at least shows up in the log.
	cw.Flush()
	if err := cw.Error(); err != nil {
		h.log.WithError(err).Error("export write failed")
	}
}

func checkInColumns(checkIns []models.CheckIn, participantKey string) (days, operators string) {
	var d, o []string
	for _, c := range checkIns {
		if c.ParticipantKey != participantKey {
			continue
		}
		if c.DayNumber != nil {
			d = append(d, fmt.Sprintf("%d", *c.DayNumber))
		} else {
			d = append(d, "-")
		}
		o = append(o, c.CheckedInBy)
	}
	return strings.Join(d, ";"), strings.Join(o, ";")
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ";")
}
