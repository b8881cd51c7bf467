package handlers

import (
	"context"
	"testing"

	"github.com/nifgashim/trek-api/internal/models"
)

func TestScannerKeyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	h := NewScannerKeyHandler(env.db, env.authHandler)
	cookie := env.adminCookie(t)

	create := &CreateScannerKeyInput{}
	create.Cookie = cookie
	create.Body.Name = "gate-volunteer"
	created, err := h.HandleCreate(context.Background(), create)
	if err != nil {
		t.Fatalf("HandleCreate returned error: %v", err)
	}
	if created.Body.Key == "" {
		t.Fatal("expected the secret in the create response")
	}

	list := &ListScannerKeysInput{}
	list.Cookie = cookie
	listed, err := h.HandleList(context.Background(), list)
	if err != nil {
		t.Fatalf("HandleList returned error: %v", err)
	}
	if len(listed.Body.Keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(listed.Body.Keys))
	}
	if listed.Body.Keys[0].Key != "" {
		t.Error("listing must not expose the secret")
	}

	if _, err := env.authHandler.AuthorizeScanner(created.Body.Key); err != nil {
		t.Errorf("AuthorizeScanner rejected a fresh key: %v", err)
	}

	del := &DeleteScannerKeyInput{ID: created.Body.ID}
	del.Cookie = cookie
	if _, err := h.HandleDelete(context.Background(), del); err != nil {
		t.Fatalf("HandleDelete returned error: %v", err)
	}
	var count int64
	env.db.Model(&models.ScannerKey{}).Count(&count)
	if count != 0 {
		t.Errorf("expected key deleted, %d remain", count)
	}

	if _, err := h.HandleDelete(context.Background(), del); err == nil {
		t.Error("expected not found when deleting twice")
	}
}
