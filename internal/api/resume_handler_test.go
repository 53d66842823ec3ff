package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func engineerResumeBody() gin.H {
	return gin.H{
		"title":   "Backend Engineer",
		"summary": "Go and infrastructure.",
		"experiences": []gin.H{
			{"company": "Acme", "position": "Engineer", "startDate": "2019-01-01", "endDate": "2022-06-30", "description": "Shipped things"},
			{"company": "Globex", "position": "Senior Engineer", "startDate": "2022-07-01", "endDate": nil},
		},
		"educations": []gin.H{
			{"institution": "NTNU", "degree": "BSc", "field": "Informatics", "startDate": "2015-08-01", "endDate": "2018-06-15"},
		},
		"skills": []gin.H{
			{"name": "Go", "level": "Expert"},
			{"name": "SQL", "level": "Intermediate"},
		},
	}
}

func decodeResume(t *testing.T, resp envelope) resumeResponse {
	t.Helper()
	var resume resumeResponse
	if err := json.Unmarshal(resp.Data, &resume); err != nil {
		t.Fatalf("decode resume: %v (%s)", err, resp.Data)
	}
	return resume
}

func TestResumeLifecycle(t *testing.T) {
	env := newTestEnv(t, testConfig())
	token := env.signup(t, "owner@example.com", "sturdy-pass-1", "Owner")

	w, resp := env.do(t, http.MethodPost, "/v1/resumes", token, engineerResumeBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d body=%s", w.Code, w.Body.String())
	}
	if msg := resp.messageString(t); msg != "Resume created successfully" {
		t.Fatalf("unexpected create message %q", msg)
	}
	created := decodeResume(t, resp)
	if created.ID == 0 || len(created.Experiences) != 2 || len(created.Educations) != 1 || len(created.Skills) != 2 {
		t.Fatalf("unexpected created resume: %+v", created)
	}
	if created.Experiences[0].StartDate != "2019-01-01" {
		t.Fatalf("start date mangled: %q", created.Experiences[0].StartDate)
	}
	if created.Experiences[1].EndDate != nil {
		t.Fatal("current position must keep a null end date")
	}

	path := fmt.Sprintf("/v1/resumes/%d", created.ID)
	w, resp = env.do(t, http.MethodGet, path, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	if msg := resp.messageString(t); msg != "Resume data is fetched" {
		t.Fatalf("unexpected get message %q", msg)
	}

	// Full replacement drops the collections the update omits.
	w, resp = env.do(t, http.MethodPut, path, token, gin.H{
		"title":   "Platform Engineer",
		"summary": "Rewritten.",
		"skills": []gin.H{
			{"id": created.Skills[0].ID, "resumeId": created.ID, "name": "Kubernetes", "level": "Beginner"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if msg := resp.messageString(t); msg != "Resume updated successfully" {
		t.Fatalf("unexpected update message %q", msg)
	}
	updated := decodeResume(t, resp)
	if updated.Title != "Platform Engineer" {
		t.Fatalf("title not updated: %q", updated.Title)
	}
	if len(updated.Experiences) != 0 || len(updated.Educations) != 0 {
		t.Fatalf("omitted collections must be emptied: %+v", updated)
	}
	if len(updated.Skills) != 1 || updated.Skills[0].Name != "Kubernetes" {
		t.Fatalf("unexpected skills: %+v", updated.Skills)
	}
	if updated.Skills[0].ID == created.Skills[0].ID {
		t.Fatal("replacement skill must get a fresh identifier")
	}

	w, _ = env.do(t, http.MethodDelete, path, token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}

	w, resp = env.do(t, http.MethodGet, path, token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", w.Code)
	}
	if msg := resp.messageString(t); msg != "Resume not found" {
		t.Fatalf("unexpected not-found message %q", msg)
	}
}

func TestResumeValidation(t *testing.T) {
	env := newTestEnv(t, testConfig())
	token := env.signup(t, "owner@example.com", "sturdy-pass-1", "Owner")

	w, resp := env.do(t, http.MethodPost, "/v1/resumes", token, gin.H{
		"title": "Broken",
		"experiences": []gin.H{
			{"company": "Acme", "position": "Engineer", "startDate": "2020-03-01", "endDate": "2019-12-31"},
		},
		"skills": []gin.H{
			{"name": "Go", "level": "Wizard"},
		},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", w.Code, w.Body.String())
	}
	violations := resp.messageList(t)
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %v", violations)
	}
	if violations[0] != `"experiences[0].endDate" must be greater than or equal to "startDate"` {
		t.Fatalf("unexpected first violation %q", violations[0])
	}
	if violations[1] != `"skills[0].level" must be one of [Beginner, Intermediate, Expert]` {
		t.Fatalf("unexpected second violation %q", violations[1])
	}
}

func TestResumeOwnershipIsolation(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ownerToken := env.signup(t, "owner@example.com", "sturdy-pass-1", "Owner")
	intruderToken := env.signup(t, "intruder@example.com", "sturdy-pass-2", "Intruder")

	_, resp := env.do(t, http.MethodPost, "/v1/resumes", ownerToken, engineerResumeBody())
	created := decodeResume(t, resp)
	path := fmt.Sprintf("/v1/resumes/%d", created.ID)

	w, resp := env.do(t, http.MethodGet, path, intruderToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign get: expected 404, got %d", w.Code)
	}
	if msg := resp.messageString(t); msg != "Resume not found" {
		t.Fatalf("unexpected message %q", msg)
	}

	w, _ = env.do(t, http.MethodPut, path, intruderToken, gin.H{"title": "Hijacked"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign update: expected 404, got %d", w.Code)
	}
}

func TestResumeInvalidIDIsBadRequest(t *testing.T) {
	env := newTestEnv(t, testConfig())
	token := env.signup(t, "owner@example.com", "sturdy-pass-1", "Owner")

	w, resp := env.do(t, http.MethodDelete, "/v1/resumes/abc", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if msg := resp.messageString(t); msg != "invalid resume id" {
		t.Fatalf("unexpected message %q", msg)
	}
}
