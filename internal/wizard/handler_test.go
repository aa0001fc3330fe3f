package wizard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-wizard/internal/llm"
	"resume-wizard/internal/shared/storage/object/local"
	"resume-wizard/internal/usage"
)

func newTestRouter(t *testing.T, client llm.Client) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := NewService(NewMemoryRepo(), usage.NewService(), local.New(t.TempDir()), client, "gemini", "test-model")
	handler := NewHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", testUser)
		c.Next()
	})
	handler.RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeSession(t *testing.T, resp *httptest.ResponseRecorder) Session {
	t.Helper()
	var session Session
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v, body=%s", err, resp.Body.String())
	}
	return session
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error: %v, body=%s", err, resp.Body.String())
	}
	return body.Error.Code
}

func TestCreateAndFetchSession(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedLLM{})

	resp := doJSON(t, r, http.MethodPost, "/api/v1/sessions", "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body=%s", resp.Code, resp.Body.String())
	}
	created := decodeSession(t, resp)
	if created.ID == "" || created.Step != StepBrainstorm {
		t.Fatalf("created = %+v", created)
	}

	resp = doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+created.ID, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("get status = %d", resp.Code)
	}
	if got := decodeSession(t, resp); got.ID != created.ID {
		t.Fatalf("got = %+v", got)
	}
}

func TestGetUnknownSessionReturns404(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedLLM{})

	resp := doJSON(t, r, http.MethodGet, "/api/v1/sessions/nope", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("status = %d", resp.Code)
	}
	if code := errorCode(t, resp); code != "not_found" {
		t.Fatalf("code = %q", code)
	}
}

func TestExtractWithoutInputReturnsValidationError(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedLLM{})

	created := decodeSession(t, doJSON(t, r, http.MethodPost, "/api/v1/sessions", ""))
	resp := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+created.ID+"/extract", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body=%s", resp.Code, resp.Body.String())
	}
	if code := errorCode(t, resp); code != "validation_error" {
		t.Fatalf("code = %q", code)
	}
}

func TestFitAtBrainstormReturnsInvalidState(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedLLM{})

	created := decodeSession(t, doJSON(t, r, http.MethodPost, "/api/v1/sessions", ""))
	resp := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+created.ID+"/fit", "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("status = %d, body=%s", resp.Code, resp.Body.String())
	}
	if code := errorCode(t, resp); code != "invalid_state" {
		t.Fatalf("code = %q", code)
	}
}

func TestSchemaMismatchMapsTo502(t *testing.T) {
	client := &scriptedLLM{responses: []llm.Response{
		{Text: "Experience doc"},
		{Text: "not json"},
		{Text: "still not json"},
	}}
	r, _ := newTestRouter(t, client)

	created := decodeSession(t, doJSON(t, r, http.MethodPost, "/api/v1/sessions", ""))
	id := created.ID
	doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/input", `{"text": "shipped things"}`)
	doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/extract", "")
	doJSON(t, r, http.MethodPut, "/api/v1/sessions/"+id+"/job-description", `{"text": "Backend engineer"}`)

	resp := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/fit", "")
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, body=%s", resp.Code, resp.Body.String())
	}
	if code := errorCode(t, resp); code != "llm_schema_mismatch" {
		t.Fatalf("code = %q", code)
	}
}

func TestExportDownloadsFinalResume(t *testing.T) {
	r, svc := newTestRouter(t, &scriptedLLM{})

	created := decodeSession(t, doJSON(t, r, http.MethodPost, "/api/v1/sessions", ""))
	session, err := svc.Get(t.Context(), testUser, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	session.Step = StepFinal
	session.FinalResume = "Final resume text"
	if err := svc.Repo.Update(t.Context(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	resp := doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+created.ID+"/export", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	if !strings.Contains(resp.Header().Get("Content-Disposition"), "resume.txt") {
		t.Fatalf("content-disposition = %q", resp.Header().Get("Content-Disposition"))
	}
	if resp.Body.String() != "Final resume text" {
		t.Fatalf("body = %q", resp.Body.String())
	}
}

func TestExportBeforeFinalReturnsInvalidState(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedLLM{})

	created := decodeSession(t, doJSON(t, r, http.MethodPost, "/api/v1/sessions", ""))
	resp := doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+created.ID+"/export", "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("status = %d", resp.Code)
	}
}

func TestListSessionsReturnsSummaries(t *testing.T) {
	r, _ := newTestRouter(t, &scriptedLLM{})

	doJSON(t, r, http.MethodPost, "/api/v1/sessions", "")
	doJSON(t, r, http.MethodPost, "/api/v1/sessions", "")

	resp := doJSON(t, r, http.MethodGet, "/api/v1/sessions", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d", resp.Code)
	}
	var list []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if _, ok := list[0]["stepName"]; !ok {
		t.Fatalf("summary missing stepName: %+v", list[0])
	}
}
