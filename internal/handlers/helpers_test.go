package handlers

import (
	"context"
	"io"
	"testing"

	"github.com/nifgashim/trek-api/internal/auth"
	"github.com/nifgashim/trek-api/internal/checkin"
	"github.com/nifgashim/trek-api/internal/config"
	"github.com/nifgashim/trek-api/internal/models"
	"github.com/nifgashim/trek-api/internal/notifier"
	"github.com/nifgashim/trek-api/internal/payments"
	"github.com/nifgashim/trek-api/internal/store"
	"github.com/nifgashim/trek-api/internal/token"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeSender records outbound emails instead of calling the email API.
type fakeSender struct {
	emails []notifier.Email
}

func (s *fakeSender) Send(ctx context.Context, msg notifier.Email) error {
	s.emails = append(s.emails, msg)
	return nil
}

type testEnv struct {
	db          *gorm.DB
	store       *store.Store
	codec       *token.Codec
	sender      *fakeSender
	mailer      *notifier.TokenMailer
	reconciler  *payments.Reconciler
	verifier    *checkin.Verifier
	authHandler *auth.AuthHandler
	log         *logrus.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	db.AutoMigrate(
		&models.Trip{}, &models.TripParticipant{},
		&models.Registration{}, &models.Participant{},
		&models.CheckIn{}, &models.DayEditLog{},
		&models.User{}, &models.ScannerKey{},
	)

	log := logrus.New()
	log.SetOutput(io.Discard)

	s := store.New(db)
	codec := token.NewCodec()
	sender := &fakeSender{}
	mailer := notifier.NewTokenMailer(sender, "http://frontend.test")
	reconciler := payments.NewReconciler(s, codec, mailer, nil, log)

	return &testEnv{
		db:          db,
		store:       s,
		codec:       codec,
		sender:      sender,
		mailer:      mailer,
		reconciler:  reconciler,
		verifier:    checkin.NewVerifier(s, codec, log),
		authHandler: auth.NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db),
		log:         log,
	}
}

func (e *testEnv) seedTrip(t *testing.T) *models.Trip {
	t.Helper()
	trip := &models.Trip{ID: "trip-1", Name: "Shvil HaGolan", DayCount: 4}
	if err := e.store.CreateTrip(context.Background(), trip); err != nil {
		t.Fatalf("CreateTrip returned error: %v", err)
	}
	return trip
}

func (e *testEnv) adminCookie(t *testing.T) string {
	t.Helper()
	user := models.User{DiscordID: "admin-1", Username: "admin"}
	e.db.Create(&user)
	token, err := e.authHandler.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	return "auth_token=" + token
}
