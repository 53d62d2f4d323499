package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	jwttoken "carebridge/internal/jwt_token"
	"carebridge/internal/platform/config"
	"carebridge/internal/verification/handler"
	"carebridge/internal/verification/models"
	"carebridge/internal/verification/service"
	"carebridge/internal/verification/store"
	id "carebridge/pkg/domain"
	"carebridge/pkg/platform/audit/publishers/compliance"
	auditmemory "carebridge/pkg/platform/audit/store/memory"
)

// =============================================================================
// Console Test Suite
// =============================================================================
// Runs verifyctl against the real handler and service on an in-memory store,
// so the wire contract between the console and the service is exercised.

type ConsoleSuite struct {
	suite.Suite
	ctx     context.Context
	records *store.InMemory
	server  *httptest.Server
	fresh   *models.Record
	jwt     *jwttoken.JWTService
}

func TestConsoleSuite(t *testing.T) {
	suite.Run(t, new(ConsoleSuite))
}

func (s *ConsoleSuite) SetupTest() {
	s.ctx = context.Background()
	s.records = store.NewInMemory()
	svc, err := service.New(s.records, service.WithAuditPublisher(compliance.New(auditmemory.NewInMemoryStore())))
	s.Require().NoError(err)

	s.jwt = jwttoken.NewJWTService("console-test-key", "carebridge", "carebridge-admin")
	r := chi.NewRouter()
	handler.New(svc, jwttoken.NewJWTServiceAdapter(s.jwt), slog.New(slog.DiscardHandler), nil).Register(r)
	s.server = httptest.NewServer(r)
	s.T().Cleanup(s.server.Close)

	s.fresh = models.NewRecord(id.NewTherapistID(), "Avery", "Nguyen", "avery@example.com", "PSY-1", "CA", time.Now().Add(-time.Hour))
	s.Require().NoError(s.records.Create(s.ctx, s.fresh))

	token, err := s.jwt.GenerateAdminToken("ops@carebridge.test", time.Hour)
	s.Require().NoError(err)
	s.T().Setenv("VERIFY_BASE_URL", s.server.URL)
	s.T().Setenv("VERIFY_TOKEN", token)
	s.T().Setenv("JWT_SIGNING_KEY", "console-test-key")
}

func (s *ConsoleSuite) exec(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	envFile := filepath.Join(s.T().TempDir(), "missing.env")
	err := run(s.ctx, append([]string{"--env-file", envFile}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func (s *ConsoleSuite) TestList() {
	out, err := s.exec("list")
	s.Require().NoError(err)
	s.Contains(out, s.fresh.ID.String())
	s.Contains(out, "1/4")
	s.Contains(out, "License Verification")

	out, err = s.exec("list", "--status", "active")
	s.Require().NoError(err)
	s.NotContains(out, s.fresh.ID.String())

	_, err = s.exec("list", "--status", "archived")
	s.Error(err)
}

func (s *ConsoleSuite) TestShow() {
	out, err := s.exec("show", s.fresh.ID.String())
	s.Require().NoError(err)
	s.Contains(out, "[x] 1. Registration")
	s.Contains(out, "[>] 2. License Verification")
	s.Contains(out, "[ ] 4. Final Activation")
}

func (s *ConsoleSuite) TestDecideWalksThePipeline() {
	out, err := s.exec("decide", s.fresh.ID.String(), "license", "approve", "--notes", "board lookup ok")
	s.Require().NoError(err)
	s.Contains(out, "[>] 3. Background Check")

	stored, err := s.records.FindByID(s.ctx, s.fresh.ID)
	s.Require().NoError(err)
	s.True(stored.LicenseVerified)
	s.Contains(stored.VerificationNotes, "board lookup ok")

	_, err = s.exec("decide", s.fresh.ID.String(), "final", "approve")
	s.Require().Error(err)
	s.Contains(err.Error(), "not actionable")
}

func (s *ConsoleSuite) TestDecideRejectsBadArguments() {
	_, err := s.exec("decide", s.fresh.ID.String(), "registration", "approve")
	s.Error(err)
	_, err = s.exec("decide", s.fresh.ID.String(), "license", "maybe")
	s.Error(err)
	_, err = s.exec("decide", s.fresh.ID.String())
	s.Error(err)
}

func (s *ConsoleSuite) TestUnauthorizedToken() {
	s.T().Setenv("VERIFY_TOKEN", "not-a-token")
	_, err := s.exec("list")
	s.Require().Error(err)
	s.Contains(err.Error(), "not permitted")
}

func (s *ConsoleSuite) TestTokenCommand() {
	out, err := s.exec("token", "--subject", "ops@carebridge.test", "--ttl", "5m")
	s.Require().NoError(err)

	claims, err := s.jwt.ValidateToken(strings.TrimSpace(out))
	s.Require().NoError(err)
	s.Equal("ops@carebridge.test", claims.Subject)
	s.Equal(jwttoken.RoleAdmin, claims.Role)

	_, err = s.exec("token")
	s.Error(err)
}

func (s *ConsoleSuite) TestUnknownCommand() {
	_, err := s.exec("approve-all")
	s.Error(err)
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "")
	cfg, err := loadSettings(filepath.Join(t.TempDir(), "absent.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Auth.JWTSigningKey != config.DevSigningKey {
		t.Fatalf("expected dev signing key fallback, got %q", cfg.Auth.JWTSigningKey)
	}
	if cfg.Client.Timeout != 10*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.Client.Timeout)
	}
}
