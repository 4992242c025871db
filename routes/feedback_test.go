package routes

import (
	"net/http"
	"testing"

	"github.com/MZOG/fixlog/models"
	"github.com/MZOG/fixlog/storage"
)

func TestCreateFeedback(t *testing.T) {
	app, mailer, _ := buildTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/feedback", "", map[string]interface{}{
		"full_name": "Jan Kowalski",
		"email":     "jan@example.com",
		"message":   "Świetna aplikacja!",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	storage.DB.Model(&models.Feedback{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one feedback row, got %d", count)
	}

	if len(mailer.feedbackThanksEmails) != 1 || mailer.feedbackThanksEmails[0] != "jan@example.com" {
		t.Fatalf("expected thanks email to submitter, got %v", mailer.feedbackThanksEmails)
	}
	if len(mailer.adminMessages) != 1 {
		t.Fatalf("expected admin copy, got %v", mailer.adminMessages)
	}
}

func TestCreateFeedbackValidation(t *testing.T) {
	app, _, _ := buildTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/feedback", "", map[string]interface{}{
		"full_name": "Jan",
		"email":     "not-an-email",
		"message":   "x",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	var count int64
	storage.DB.Model(&models.Feedback{}).Count(&count)
	if count != 0 {
		t.Fatalf("invalid feedback persisted")
	}
}

func TestCreateFeedbackEmailFailureStillPersists(t *testing.T) {
	app, mailer, _ := buildTestApp(t)
	mailer.fail = true

	resp := doJSON(t, app, http.MethodPost, "/api/feedback", "", map[string]interface{}{
		"full_name": "Jan Kowalski",
		"email":     "jan@example.com",
		"message":   "Opinia",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 despite email failure, got %d", resp.Code)
	}

	var count int64
	storage.DB.Model(&models.Feedback{}).Count(&count)
	if count != 1 {
		t.Fatalf("feedback not persisted, count=%d", count)
	}
}
