package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	domainContent "github.com/AzielCF/az-post/domains/content"
	domainRecurrence "github.com/AzielCF/az-post/domains/recurrence"
	"github.com/AzielCF/az-post/pkg/timeutils"
	"github.com/AzielCF/az-post/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
)

// fakeScheduleService implements IScheduleUsecase with canned responses so
// the handler and the recovery middleware can be exercised end to end.
type fakeScheduleService struct {
	rule           domainRecurrence.Rule
	scheduleErr    error
	gotScheduleReq domainRecurrence.ScheduleContentRequest
}

func (f *fakeScheduleService) GetRule(ctx context.Context, userID string) (domainRecurrence.Rule, error) {
	rule := f.rule
	rule.UserID = userID
	return rule, nil
}

func (f *fakeScheduleService) UpdateRule(ctx context.Context, userID string, req domainRecurrence.UpdateRuleRequest) (domainRecurrence.Rule, error) {
	return f.rule, nil
}

func (f *fakeScheduleService) ScheduleContent(ctx context.Context, req domainRecurrence.ScheduleContentRequest) (domainRecurrence.ScheduleContentResponse, error) {
	f.gotScheduleReq = req
	if f.scheduleErr != nil {
		return domainRecurrence.ScheduleContentResponse{}, f.scheduleErr
	}
	return domainRecurrence.ScheduleContentResponse{Rule: f.rule}, nil
}

func TestScheduleGetRule_E2E(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.Recovery())

	service := &fakeScheduleService{
		rule: domainRecurrence.Rule{
			ID:        "rule-1",
			Frequency: timeutils.FrequencyDaily,
			TimeOfDay: "09:00:00",
			Timezone:  "UTC",
		},
	}
	InitRestSchedule(app, service)

	req := httptest.NewRequest(http.MethodGet, "/schedule/user-42", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("unexpected status %d, body=%s", resp.StatusCode, string(b))
	}

	var envelope struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Results map[string]interface{} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response JSON: %v", err)
	}

	if envelope.Code != "SUCCESS" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
	if envelope.Results["user_id"] != "user-42" {
		t.Fatalf("expected rule scoped to path user, got %v", envelope.Results["user_id"])
	}
}

func TestScheduleContent_MapsDomainErrorToStatus(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.Recovery())

	service := &fakeScheduleService{scheduleErr: domainContent.ErrContentNotFound}
	InitRestSchedule(app, service)

	body := []byte(`{"content_id":"missing","platforms":["linkedin"]}`)
	req := httptest.NewRequest(http.MethodPost, "/schedule/user-42/content", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 404, got %d body=%s", resp.StatusCode, string(b))
	}

	var envelope struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response JSON: %v", err)
	}
	if envelope.Code != "NOT_FOUND_ERROR" {
		t.Fatalf("unexpected error code %q", envelope.Code)
	}

	if service.gotScheduleReq.UserID != "user-42" {
		t.Fatalf("handler should inject the path user id, got %q", service.gotScheduleReq.UserID)
	}
	if service.gotScheduleReq.ContentID != "missing" {
		t.Fatalf("unexpected content id %q", service.gotScheduleReq.ContentID)
	}
}
