package payments

import (
	"errors"
	"net/url"
	"testing"
)

func TestTranzilaNormalize(t *testing.T) {
	adapter := TranzilaAdapter{Terminal: "nifgashim"}

	t.Run("success status 1", func(t *testing.T) {
		form := url.Values{}
		form.Set("Response", "000")
		form.Set("registration_id", "reg-1")
		form.Set("sum", "255.00")
		form.Set("ConfirmationCode", "T1")

		ev, err := adapter.Normalize(form)
		if err != nil {
			t.Fatalf("Normalize returned error: %v", err)
		}
		if ev.Outcome != OutcomeSuccess {
			t.Errorf("expected success, got %s", ev.Outcome)
		}
		if ev.RegistrationID != "reg-1" || ev.TransactionID != "T1" {
			t.Errorf("unexpected ids: %+v", ev)
		}
		if ev.RawAmount != 255 {
			t.Errorf("expected amount 255, got %v", ev.RawAmount)
		}
	})

	t.Run("legacy status field", func(t *testing.T) {
		form := url.Values{}
		form.Set("status", "1")
		form.Set("myid", "reg-2")
		form.Set("index", "77")

		ev, err := adapter.Normalize(form)
		if err != nil {
			t.Fatalf("Normalize returned error: %v", err)
		}
		if ev.Outcome != OutcomeSuccess {
			t.Errorf("expected success, got %s", ev.Outcome)
		}
		if ev.RegistrationID != "reg-2" || ev.TransactionID != "77" {
			t.Errorf("unexpected ids: %+v", ev)
		}
	})

	t.Run("decline", func(t *testing.T) {
		form := url.Values{}
		form.Set("Response", "004")
		form.Set("registration_id", "reg-3")

		ev, err := adapter.Normalize(form)
		if err != nil {
			t.Fatalf("Normalize returned error: %v", err)
		}
		if ev.Outcome != OutcomeFailure {
			t.Errorf("expected failure, got %s", ev.Outcome)
		}
	})

	t.Run("missing registration reference", func(t *testing.T) {
		form := url.Values{}
		form.Set("Response", "000")
		if _, err := adapter.Normalize(form); !errors.Is(err, ErrUnrecognizedCallback) {
			t.Errorf("expected ErrUnrecognizedCallback, got %v", err)
		}
	})

	t.Run("wrong terminal rejected", func(t *testing.T) {
		form := url.Values{}
		form.Set("Response", "000")
		form.Set("registration_id", "reg-4")
		form.Set("terminal", "someone-else")
		if _, err := adapter.Normalize(form); !errors.Is(err, ErrUnrecognizedCallback) {
			t.Errorf("expected ErrUnrecognizedCallback, got %v", err)
		}
	})

	t.Run("matching terminal accepted", func(t *testing.T) {
		form := url.Values{}
		form.Set("Response", "000")
		form.Set("registration_id", "reg-5")
		form.Set("terminal", "nifgashim")
		ev, err := adapter.Normalize(form)
		if err != nil {
			t.Fatalf("Normalize returned error: %v", err)
		}
		if ev.RegistrationID != "reg-5" {
			t.Errorf("unexpected event: %+v", ev)
		}
	})
}

func TestMeshulamNormalize(t *testing.T) {
	adapter := MeshulamAdapter{PageCode: "abc"}

	cases := []struct {
		name    string
		body    string
		outcome Outcome
		rid     string
		amount  float64
	}{
		{
			name:    "string success, custom fields object",
			body:    `{"status":"success","data":{"transactionId":"T1","sum":255,"customFields":{"registrationId":"reg-1"}}}`,
			outcome: OutcomeSuccess,
			rid:     "reg-1",
			amount:  255,
		},
		{
			name:    "numeric status, custom fields as encoded string",
			body:    `{"status":1,"data":{"transactionId":"T2","sum":"180","customFields":"{\"registrationId\":\"reg-2\"}"}}`,
			outcome: OutcomeSuccess,
			rid:     "reg-2",
			amount:  180,
		},
		{
			name:    "string one, top-level registration id",
			body:    `{"status":"1","data":{"transactionId":"T3","registrationId":"reg-3"}}`,
			outcome: OutcomeSuccess,
			rid:     "reg-3",
		},
		{
			name:    "failure status",
			body:    `{"status":"error","data":{"transactionId":"T4","customFields":{"cField1":"reg-4"}}}`,
			outcome: OutcomeFailure,
			rid:     "reg-4",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := adapter.Normalize([]byte(tc.body))
			if err != nil {
				t.Fatalf("Normalize returned error: %v", err)
			}
			if ev.Outcome != tc.outcome {
				t.Errorf("expected outcome %s, got %s", tc.outcome, ev.Outcome)
			}
			if ev.RegistrationID != tc.rid {
				t.Errorf("expected rid %s, got %s", tc.rid, ev.RegistrationID)
			}
			if tc.amount != 0 && ev.RawAmount != tc.amount {
				t.Errorf("expected amount %v, got %v", tc.amount, ev.RawAmount)
			}
		})
	}

	t.Run("no registration reference anywhere", func(t *testing.T) {
		_, err := adapter.Normalize([]byte(`{"status":"success","data":{"transactionId":"T9"}}`))
		if !errors.Is(err, ErrUnrecognizedCallback) {
			t.Errorf("expected ErrUnrecognizedCallback, got %v", err)
		}
	})

	t.Run("wrong page code rejected", func(t *testing.T) {
		_, err := adapter.Normalize([]byte(`{"status":"success","data":{"pageCode":"xyz","registrationId":"reg-9"}}`))
		if !errors.Is(err, ErrUnrecognizedCallback) {
			t.Errorf("expected ErrUnrecognizedCallback, got %v", err)
		}
	})

	t.Run("matching page code accepted", func(t *testing.T) {
		ev, err := adapter.Normalize([]byte(`{"status":"success","data":{"pageCode":"abc","registrationId":"reg-10"}}`))
		if err != nil {
			t.Fatalf("Normalize returned error: %v", err)
		}
		if ev.RegistrationID != "reg-10" {
			t.Errorf("unexpected event: %+v", ev)
		}
	})

	t.Run("not json", func(t *testing.T) {
		_, err := adapter.Normalize([]byte("Response=000"))
		if !errors.Is(err, ErrUnrecognizedCallback) {
			t.Errorf("expected ErrUnrecognizedCallback, got %v", err)
		}
	})
}
