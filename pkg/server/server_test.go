package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qe-tools/quality-atlas/pkg/models/api"
	"github.com/qe-tools/quality-atlas/pkg/models/domain"
	"github.com/qe-tools/quality-atlas/pkg/models/store"
	capasvc "github.com/qe-tools/quality-atlas/pkg/services/capa"
	devsvc "github.com/qe-tools/quality-atlas/pkg/services/deviation"
)

type mockDeviationService struct {
	mock.Mock
}

func (m *mockDeviationService) Create(ctx context.Context, fields devsvc.CreateFields) (*domain.Deviation, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deviation), args.Error(1)
}

func (m *mockDeviationService) Get(ctx context.Context, id string) (*domain.Deviation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deviation), args.Error(1)
}

func (m *mockDeviationService) List(ctx context.Context, filter store.DeviationFilter) ([]*domain.Deviation, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*domain.Deviation), args.Error(1)
}

func (m *mockDeviationService) Update(ctx context.Context, id string, fields devsvc.UpdateFields) (*domain.Deviation, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deviation), args.Error(1)
}

func (m *mockDeviationService) UpdateRisk(ctx context.Context, id string, severity, occurrence, detection int) (*domain.Deviation, error) {
	args := m.Called(ctx, id, severity, occurrence, detection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deviation), args.Error(1)
}

func (m *mockDeviationService) Transition(ctx context.Context, id string, target domain.DeviationStatus, actor string, override bool) (*domain.Deviation, error) {
	args := m.Called(ctx, id, target, actor, override)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deviation), args.Error(1)
}

func (m *mockDeviationService) SetProblemStatement(ctx context.Context, id, statement string) (*domain.Deviation, error) {
	args := m.Called(ctx, id, statement)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deviation), args.Error(1)
}

func (m *mockDeviationService) SetComplianceStatus(ctx context.Context, id string, status domain.ComplianceStatus) (*domain.Deviation, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deviation), args.Error(1)
}

type mockCapaService struct {
	mock.Mock
}

func (m *mockCapaService) Create(ctx context.Context, fields capasvc.CreateFields) (*domain.CapaAction, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CapaAction), args.Error(1)
}

func (m *mockCapaService) Get(ctx context.Context, id string) (*domain.CapaAction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CapaAction), args.Error(1)
}

func (m *mockCapaService) List(ctx context.Context, filter store.CapaFilter) ([]*domain.CapaAction, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*domain.CapaAction), args.Error(1)
}

func (m *mockCapaService) Transition(ctx context.Context, id string, target domain.CapaStatus, actor string) (*domain.CapaAction, error) {
	args := m.Called(ctx, id, target, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CapaAction), args.Error(1)
}

func (m *mockCapaService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockAnalyticsService struct {
	mock.Mock
}

func (m *mockAnalyticsService) Snapshot(ctx context.Context, window domain.Window, targetDays int) (domain.AnalyticsSnapshot, error) {
	args := m.Called(ctx, window, targetDays)
	return args.Get(0).(domain.AnalyticsSnapshot), args.Error(1)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, d *domain.Deviation) (string, error) {
	args := m.Called(ctx, d)
	return args.String(0), args.Error(1)
}

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) Check(ctx context.Context, d *domain.Deviation) (domain.ComplianceStatus, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(domain.ComplianceStatus), args.Error(1)
}

func sampleDeviation() *domain.Deviation {
	return &domain.Deviation{
		ID:                    "dev-1",
		DeviationID:           "DEV-2026-001",
		BatchNumber:           "B-1001",
		DateDiscovered:        time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		CreatedAt:             time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Severity:              domain.SeverityMajor,
		RPN:                   domain.RPN{SeverityScore: 10, OccurrenceScore: 5, DetectionScore: 3},
		RPNScore:              150,
		ComplianceCheckStatus: domain.ComplianceStatusPending,
		Status:                domain.DeviationStatusOpen,
	}
}

func TestAPI_Endpoints(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))

	mockDev := new(mockDeviationService)
	mockCapa := new(mockCapaService)
	mockAnalytics := new(mockAnalyticsService)
	mockGen := new(mockGenerator)
	mockCheck := new(mockChecker)

	router := ConfigureRouter(Config{
		TargetDaysToClose: 30,
		Dependencies: Dependencies{
			Deviations: mockDev,
			Actions:    mockCapa,
			Analytics:  mockAnalytics,
			Generator:  mockGen,
			Checker:    mockCheck,
			Logger:     logger,
		},
	})
	testServer := httptest.NewServer(router)
	defer testServer.Close()

	tests := []struct {
		name           string
		method         string
		path           string
		body           any
		setupMocks     func()
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			name:   "CreateDeviation",
			method: http.MethodPost,
			path:   "/api/v1/deviations",
			body: api.CreateDeviationRequest{
				BatchNumber:    "B-1001",
				DateDiscovered: "2026-03-10",
				Severity:       "major",
			},
			setupMocks: func() {
				mockDev.On("Create", mock.Anything, mock.MatchedBy(func(f devsvc.CreateFields) bool {
					return f.BatchNumber == "B-1001" && f.Severity == domain.SeverityMajor
				})).Return(sampleDeviation(), nil).Once()
			},
			expectedStatus: http.StatusCreated,
			check: func(t *testing.T, body []byte) {
				var resp api.Deviation
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "DEV-2026-001", resp.DeviationID)
				assert.Equal(t, "high", resp.RiskBand)
			},
		},
		{
			name:           "CreateDeviation_BadDate",
			method:         http.MethodPost,
			path:           "/api/v1/deviations",
			body:           api.CreateDeviationRequest{DateDiscovered: "10/03/2026"},
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "GetDeviation_NotFound",
			method: http.MethodGet,
			path:   "/api/v1/deviations/missing",
			setupMocks: func() {
				mockDev.On("Get", mock.Anything, "missing").
					Return(nil, domain.ErrNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "UpdateRisk_OutOfRange",
			method: http.MethodPut,
			path:   "/api/v1/deviations/dev-1/risk",
			body:   api.UpdateRiskRequest{SeverityScore: 11, OccurrenceScore: 5, DetectionScore: 3},
			setupMocks: func() {
				mockDev.On("UpdateRisk", mock.Anything, "dev-1", 11, 5, 3).
					Return(nil, fmt.Errorf("severity score 11: %w", domain.ErrInvalidScoreRange)).Once()
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "TransitionDeviation_GateFailure",
			method: http.MethodPost,
			path:   "/api/v1/deviations/dev-1/transition",
			body:   api.TransitionRequest{TargetStatus: "rca_progress", Actor: "qa.lead"},
			setupMocks: func() {
				mockDev.On("Transition", mock.Anything, "dev-1", domain.DeviationStatusRCAProgress, "qa.lead", false).
					Return(nil, fmt.Errorf("compliance pending: %w", domain.ErrComplianceGateNotSatisfied)).Once()
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:   "TransitionDeviation_Terminal",
			method: http.MethodPost,
			path:   "/api/v1/deviations/dev-1/transition",
			body:   api.TransitionRequest{TargetStatus: "open", Actor: "qa.lead"},
			setupMocks: func() {
				mockDev.On("Transition", mock.Anything, "dev-1", domain.DeviationStatusOpen, "qa.lead", false).
					Return(nil, fmt.Errorf("closed: %w", domain.ErrTerminalStateViolation)).Once()
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:   "ComplianceCheck_Unavailable",
			method: http.MethodPost,
			path:   "/api/v1/deviations/dev-1/compliance-check",
			setupMocks: func() {
				mockDev.On("Get", mock.Anything, "dev-1").Return(sampleDeviation(), nil).Once()
				mockCheck.On("Check", mock.Anything, mock.Anything).
					Return(domain.ComplianceStatus(""), fmt.Errorf("timeout: %w", domain.ErrExternalServiceUnavailable)).Once()
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:   "GenerateProblemStatement",
			method: http.MethodPost,
			path:   "/api/v1/deviations/dev-1/problem-statement",
			setupMocks: func() {
				d := sampleDeviation()
				updated := sampleDeviation()
				updated.ProblemStatement = "Filling weight drifted out of range on line 2."
				mockDev.On("Get", mock.Anything, "dev-1").Return(d, nil).Once()
				mockGen.On("Generate", mock.Anything, d).
					Return("Filling weight drifted out of range on line 2.", nil).Once()
				mockDev.On("SetProblemStatement", mock.Anything, "dev-1", "Filling weight drifted out of range on line 2.").
					Return(updated, nil).Once()
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp api.Deviation
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.NotEmpty(t, resp.ProblemStatement)
			},
		},
		{
			name:   "DeleteCapa_InProgress",
			method: http.MethodDelete,
			path:   "/api/v1/capa-actions/capa-1",
			setupMocks: func() {
				mockCapa.On("Delete", mock.Anything, "capa-1").
					Return(fmt.Errorf("in progress: %w", domain.ErrCannotDeleteInProgressAction)).Once()
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:   "DeleteCapa_Open",
			method: http.MethodDelete,
			path:   "/api/v1/capa-actions/capa-2",
			setupMocks: func() {
				mockCapa.On("Delete", mock.Anything, "capa-2").Return(nil).Once()
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:   "AnalyticsSnapshot",
			method: http.MethodGet,
			path:   "/api/v1/analytics/snapshot?from=2026-01-01&to=2026-06-30",
			setupMocks: func() {
				window := domain.Window{
					Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
					End:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
				}
				mockAnalytics.On("Snapshot", mock.Anything, window, 30).
					Return(domain.AnalyticsSnapshot{}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp api.AnalyticsSnapshot
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "", resp.Trends.TotalBacklog.Direction)
			},
		},
		{
			name:           "AnalyticsSnapshot_BadDate",
			method:         http.MethodGet,
			path:           "/api/v1/analytics/snapshot?from=bad",
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMocks()

			var reqBody io.Reader
			if tc.body != nil {
				payload, err := json.Marshal(tc.body)
				require.NoError(t, err)
				reqBody = bytes.NewReader(payload)
			}

			req, err := http.NewRequest(tc.method, testServer.URL+tc.path, reqBody)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode)

			if tc.check != nil {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				tc.check(t, body)
			}
		})
	}

	mockDev.AssertExpectations(t)
	mockCapa.AssertExpectations(t)
	mockAnalytics.AssertExpectations(t)
	mockGen.AssertExpectations(t)
	mockCheck.AssertExpectations(t)
}

func TestWebAPI_GracefulShutdown(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))

	hookRan := make(chan struct{})
	api := NewWebAPI(Config{
		Addr:            "127.0.0.1:0",
		ShutdownTimeout: time.Second,
		OnShutdown:      func() { close(hookRan) },
		Dependencies:    Dependencies{Logger: logger},
	})

	done := make(chan error, 1)
	go func() { done <- api.Start() }()

	// Let the listener come up before signalling.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop after SIGTERM")
	}

	select {
	case <-hookRan:
	case <-time.After(time.Second):
		t.Fatal("shutdown hook did not run")
	}
}
