package payments

import (
	"fmt"
	"net/url"
	"strconv"
)

// TranzilaAdapter normalizes Tranzila's form-encoded server callback.
// Success is status "1"; the registration id travels in the pass-through
// field we set when opening the payment page.
type TranzilaAdapter struct {
	Terminal string
}

func (a TranzilaAdapter) Name() string { return "tranzila" }

func (a TranzilaAdapter) Normalize(form url.Values) (Event, error) {
	// A configured terminal rejects callbacks addressed to another one.
	if terminal := form.Get("terminal"); a.Terminal != "" && terminal != "" && terminal != a.Terminal {
		return Event{}, fmt.Errorf("%w: tranzila callback for terminal %q", ErrUnrecognizedCallback, terminal)
	}

	rid := form.Get("registration_id")
	if rid == "" {
		rid = form.Get("myid")
	}
	if rid == "" {
		return Event{}, fmt.Errorf("%w: tranzila callback without registration reference", ErrUnrecognizedCallback)
	}

	status := form.Get("Response")
	if status == "" {
		status = form.Get("status")
	}

	outcome := OutcomeFailure
	// Observed success encodings: "1" and the approval code "000".
	if status == "1" || status == "000" {
		outcome = OutcomeSuccess
	}

	amount, _ := strconv.ParseFloat(form.Get("sum"), 64)

	txn := form.Get("ConfirmationCode")
	if txn == "" {
		txn = form.Get("index")
	}

	return Event{
		Gateway:        a.Name(),
		RegistrationID: rid,
		TransactionID:  txn,
		Outcome:        outcome,
		RawAmount:      amount,
	}, nil
}
