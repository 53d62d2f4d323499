package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"carebridge/internal/verification/handler/mocks"
	"carebridge/internal/verification/models"
	"carebridge/internal/verification/service"
	"carebridge/internal/verification/store"
	"carebridge/internal/verification/workflow"
	id "carebridge/pkg/domain"
	dErrors "carebridge/pkg/domain-errors"
	"carebridge/pkg/platform/audit/publishers/compliance"
	auditmemory "carebridge/pkg/platform/audit/store/memory"
	auth "carebridge/pkg/platform/middleware/auth"
	"carebridge/pkg/requestcontext"
	"carebridge/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// =============================================================================
// Verification Handler Test Suite
// =============================================================================
// Justification for unit tests: the handler owns wire parsing, the auth/role
// gate, and error-code to status mapping. Decision semantics are covered by the
// service and workflow packages.

type tokenTable map[string]*auth.JWTClaims

func (t tokenTable) ValidateToken(token string) (*auth.JWTClaims, error) {
	if c, ok := t[token]; ok {
		return c, nil
	}
	return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
}

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  http.Handler
	rec     *models.Record
	now     time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := tokenTable{
		"admin-token":  {Subject: "ops@carebridge.test", Role: auth.RoleAdmin, JTI: "j1"},
		"viewer-token": {Subject: "viewer@carebridge.test", Role: "viewer", JTI: "j2"},
	}
	h := New(s.service, tokens, logger, nil)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r

	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.rec = models.NewRecord(id.MustParseTherapistID("4b0a6a0e-0c77-4a8b-9f3f-2a0d5b1f6c11"),
		"Ada", "Lovelace", "ada@example.com", "LIC-1", "CA", s.now)
}

func (s *HandlerSuite) decisionPath() string {
	return "/api/therapists/" + s.rec.ID.String() + "/verification"
}

func (s *HandlerSuite) TestList() {
	s.Run("returns records as a JSON array", func() {
		s.service.EXPECT().List(gomock.Any(), "onboarding").Return([]*models.Record{s.rec}, nil)

		req := testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/api/therapists?status=onboarding", nil), "viewer-token")
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[[]models.TherapistResponse](s.T(), rr)
		s.Require().Len(*body, 1)
		s.Equal(s.rec.ID.String(), (*body)[0].ID)
		s.Equal("onboarding", (*body)[0].AccountStatus)
	})

	s.Run("unknown status is a bad request", func() {
		s.service.EXPECT().List(gomock.Any(), "archived").
			Return(nil, dErrors.New(dErrors.CodeBadRequest, "unknown status filter"))

		req := testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/api/therapists?status=archived", nil), "viewer-token")
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest, "bad_request")
	})

	s.Run("requires a token", func() {
		rr := testutil.DoRequest(s.router, httptest.NewRequest(http.MethodGet, "/api/therapists", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *HandlerSuite) TestGet() {
	s.Run("returns record and workflow summary", func() {
		s.service.EXPECT().Get(gomock.Any(), s.rec.ID).Return(s.rec, workflow.Summarize(s.rec), nil)

		req := testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/api/therapists/"+s.rec.ID.String(), nil), "viewer-token")
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[detailResponse](s.T(), rr)
		s.Equal(s.rec.ID.String(), body.Therapist.ID)
		s.Equal(1, body.Workflow.Progress)
		s.Equal(models.StageLicense.Label(), body.Workflow.CurrentStep)
		s.Len(body.Workflow.Stages, models.StageCount)
	})

	s.Run("malformed id is rejected before the service", func() {
		req := testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/api/therapists/not-a-uuid", nil), "viewer-token")
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusBadRequest, rr.Code)
	})

	s.Run("unknown id is not found", func() {
		s.service.EXPECT().Get(gomock.Any(), s.rec.ID).
			Return(nil, workflow.Summary{}, dErrors.New(dErrors.CodeNotFound, "therapist not found"))

		req := testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/api/therapists/"+s.rec.ID.String(), nil), "viewer-token")
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusNotFound, "not_found")
	})
}

func (s *HandlerSuite) TestRegister() {
	s.Run("creates a record without a token", func() {
		s.service.EXPECT().Register(gomock.Any(), service.RegisterInput{
			FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
			LicenseNumber: "LIC-1", LicenseState: "CA",
		}).Return(s.rec, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/therapists", map[string]string{
			"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com",
			"license_number": "LIC-1", "license_state": "CA",
		})
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusCreated, rr.Code)
		body := testutil.UnmarshalResponse[models.TherapistResponse](s.T(), rr)
		s.Equal(s.rec.ID.String(), body.ID)
		s.False(body.LicenseVerified)
	})

	s.Run("malformed body", func() {
		req := testutil.NewRawRequest(s.T(), http.MethodPost, "/api/therapists", "{")
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestDecide() {
	s.Run("applies a decision for an admin", func() {
		updated := s.rec.Clone()
		updated.LicenseVerified = true
		updated.BackgroundCheckStatus = models.BackgroundInProgress
		s.service.EXPECT().
			Decide(gomock.Any(), s.rec.ID, models.StageLicense, models.DecisionApproved, "looks good").
			DoAndReturn(func(ctx context.Context, _ id.TherapistID, _ models.Stage, _ models.Decision, _ string) (*models.Record, error) {
				s.Equal("ops@carebridge.test", requestcontext.ActorID(ctx))
				s.NotEmpty(requestcontext.RequestID(ctx))
				return updated, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.decisionPath(),
			models.NewDecisionRequest(models.StageLicense, models.DecisionApproved, "looks good"))
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))

		s.Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[models.TherapistResponse](s.T(), rr)
		s.True(body.LicenseVerified)
		s.Equal(string(models.BackgroundInProgress), body.BackgroundCheckStatus)
	})

	s.Run("missing token is unauthorized", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.decisionPath(),
			models.NewDecisionRequest(models.StageLicense, models.DecisionApproved, ""))
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusUnauthorized, "unauthorized")
	})

	s.Run("non-admin token is forbidden", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.decisionPath(),
			models.NewDecisionRequest(models.StageLicense, models.DecisionApproved, ""))
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "viewer-token"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("unknown stage and status are bad requests", func() {
		for _, body := range []map[string]string{
			{"stage": "registration", "status": "approved"},
			{"stage": "documents", "status": "maybe"},
			{"status": "approved"},
		} {
			req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.decisionPath(), body)
			rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))
			s.Equal(http.StatusBadRequest, rr.Code, "body %v", body)
		}
	})

	s.Run("service errors map to status codes", func() {
		tests := []struct {
			err    error
			status int
			code   string
		}{
			{models.StageNotActionable(models.StageFinal, models.StatusPending), http.StatusConflict, string(dErrors.CodeInvalidState)},
			{models.DecisionInProgress(), http.StatusConflict, string(dErrors.CodeConflict)},
			{dErrors.New(dErrors.CodeNotFound, "therapist not found"), http.StatusNotFound, "not_found"},
			{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		}
		for _, tt := range tests {
			s.service.EXPECT().Decide(gomock.Any(), s.rec.ID, models.StageFinal, models.DecisionRejected, "").Return(nil, tt.err)

			req := testutil.NewJSONRequest(s.T(), http.MethodPost, s.decisionPath(),
				models.NewDecisionRequest(models.StageFinal, models.DecisionRejected, ""))
			rr := testutil.DoRequest(s.router, testutil.WithBearer(req, "admin-token"))
			testutil.AssertStatusAndError(s.T(), rr, tt.status, tt.code)
		}
	})
}

func TestDecisionRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	records := store.NewInMemory()
	events := auditmemory.NewInMemoryStore()
	svc, err := service.New(records, service.WithAuditPublisher(compliance.New(events)))
	if err != nil {
		t.Fatal(err)
	}
	tokens := tokenTable{"admin-token": {Subject: "ops@carebridge.test", Role: auth.RoleAdmin, JTI: "j1"}}
	r := chi.NewRouter()
	New(svc, tokens, slog.New(slog.NewTextHandler(io.Discard, nil)), nil).Register(r)

	rec := models.NewRecord(id.MustParseTherapistID("0f6f1d8e-5c1b-4f0e-9b9a-3c2d1e0f4a55"),
		"Grace", "Hopper", "grace@example.com", "LIC-9", "VA", now)

	testutil.Given(t, "a therapist awaiting license review", func(t *testing.T) {
		if err := records.Create(context.Background(), rec); err != nil {
			t.Fatal(err)
		}

		testutil.When(t, "an admin approves the documents stage", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/api/therapists/"+rec.ID.String()+"/verification",
				map[string]string{"stage": "documents", "status": "approved"})
			rr := testutil.DoRequest(r, testutil.WithBearer(req, "admin-token"))

			testutil.Then(t, "the background check starts", func(t *testing.T) {
				if rr.Code != http.StatusOK {
					t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
				}
				body := testutil.UnmarshalResponse[models.TherapistResponse](t, rr)
				if !body.LicenseVerified || body.BackgroundCheckStatus != string(models.BackgroundInProgress) {
					t.Fatalf("unexpected record %+v", body)
				}
			})

			testutil.Then(t, "one compliance event names the admin", func(t *testing.T) {
				trail, err := events.ListByTherapist(context.Background(), rec.ID)
				if err != nil {
					t.Fatal(err)
				}
				if len(trail) != 1 || trail[0].ActorID != "ops@carebridge.test" {
					t.Fatalf("unexpected trail %+v", trail)
				}
			})
		})

		testutil.When(t, "the same stage is approved again", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/api/therapists/"+rec.ID.String()+"/verification",
				map[string]string{"stage": "documents", "status": "approved"})
			rr := testutil.DoRequest(r, testutil.WithBearer(req, "admin-token"))

			testutil.Then(t, "it is refused as not actionable", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(dErrors.CodeInvalidState))
			})
		})
	})
}
