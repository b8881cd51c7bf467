package payments

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// MeshulamAdapter normalizes Meshulam's JSON webhook. Status arrives as the
// string "success", the string "1" or the number 1 depending on API version,
// and the registration id is nested in a customFields blob that is sometimes
// a JSON-encoded string and sometimes an object.
type MeshulamAdapter struct {
	PageCode string
}

func (a MeshulamAdapter) Name() string { return "meshulam" }

type meshulamCallback struct {
	Status json.RawMessage `json:"status"`
	Data   struct {
		PageCode       string          `json:"pageCode"`
		TransactionID  string          `json:"transactionId"`
		Sum            json.RawMessage `json:"sum"`
		RegistrationID string          `json:"registrationId"`
		CustomFields   json.RawMessage `json:"customFields"`
	} `json:"data"`
}

func (a MeshulamAdapter) Normalize(body []byte) (Event, error) {
	var cb meshulamCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrUnrecognizedCallback, err)
	}
	// A configured page code rejects callbacks for another payment page.
	if a.PageCode != "" && cb.Data.PageCode != "" && cb.Data.PageCode != a.PageCode {
		return Event{}, fmt.Errorf("%w: meshulam callback for page %q", ErrUnrecognizedCallback, cb.Data.PageCode)
	}

	rid := cb.Data.RegistrationID
	if rid == "" {
		rid = registrationIDFromCustomFields(cb.Data.CustomFields)
	}
	if rid == "" {
		return Event{}, fmt.Errorf("%w: meshulam callback without registration reference", ErrUnrecognizedCallback)
	}

	outcome := OutcomeFailure
	if statusIsSuccess(cb.Status) {
		outcome = OutcomeSuccess
	}

	return Event{
		Gateway:        a.Name(),
		RegistrationID: rid,
		TransactionID:  cb.Data.TransactionID,
		Outcome:        outcome,
		RawAmount:      looseFloat(cb.Data.Sum),
	}, nil
}

// statusIsSuccess accepts the three encodings seen in the wild:
// "success", "1" and 1.
func statusIsSuccess(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == "success" || s == "1"
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n == 1
	}
	return false
}

// registrationIDFromCustomFields digs the registration id out of the
// customFields blob, whichever of its two shapes arrived.
func registrationIDFromCustomFields(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		// JSON-encoded string holding an object.
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return ""
		}
		if err := json.Unmarshal([]byte(inner), &fields); err != nil {
			return ""
		}
	}
	for _, key := range []string{"registrationId", "registration_id", "cField1"} {
		if v, ok := fields[key]; ok {
			var s string
			if err := json.Unmarshal(v, &s); err == nil && s != "" {
				return s
			}
		}
	}
	return ""
}

func looseFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	return 0
}
