package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/qe-tools/quality-atlas/pkg/models/domain"
)

// Checker submits a deviation for compliance review and reports the
// verdict. The review service is an external collaborator; failures
// are retryable.
type Checker interface {
	Check(ctx context.Context, d *domain.Deviation) (domain.ComplianceStatus, error)
}

type reviewRequest struct {
	DeviationID      string `json:"deviation_id"`
	Severity         string `json:"severity"`
	RPNScore         int    `json:"rpn_score"`
	ProblemStatement string `json:"problem_statement"`
	Area             string `json:"area"`
	BatchNumber      string `json:"batch_number"`
}

type reviewResponse struct {
	Status string `json:"status"`
}

// Disabled is used when no review service is configured; every call
// reports the collaborator as unavailable.
type Disabled struct{}

func (Disabled) Check(context.Context, *domain.Deviation) (domain.ComplianceStatus, error) {
	return "", fmt.Errorf("compliance review is not configured: %w", domain.ErrExternalServiceUnavailable)
}

type restChecker struct {
	client *resty.Client
}

func NewChecker(baseURL string, timeout time.Duration) (Checker, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("compliance service url is empty")
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2)
	return &restChecker{client: client}, nil
}

func (c *restChecker) Check(ctx context.Context, d *domain.Deviation) (domain.ComplianceStatus, error) {
	var result reviewResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(reviewRequest{
			DeviationID:      d.DeviationID,
			Severity:         string(d.Severity),
			RPNScore:         d.RPNScore,
			ProblemStatement: d.ProblemStatement,
			Area:             d.Area,
			BatchNumber:      d.BatchNumber,
		}).
		SetResult(&result).
		Post("/reviews")
	if err != nil {
		return "", fmt.Errorf("compliance review call failed: %w: %v", domain.ErrExternalServiceUnavailable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("compliance review returned %d: %w", resp.StatusCode(), domain.ErrExternalServiceUnavailable)
	}

	switch domain.ComplianceStatus(result.Status) {
	case domain.ComplianceStatusApproved:
		return domain.ComplianceStatusApproved, nil
	case domain.ComplianceStatusNeedsRevision:
		return domain.ComplianceStatusNeedsRevision, nil
	default:
		return "", fmt.Errorf("compliance review returned unknown status %q: %w", result.Status, domain.ErrExternalServiceUnavailable)
	}
}
