package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizgrade/internal/grading"
	"github.com/stemsi/quizgrade/internal/service"
	"github.com/stemsi/quizgrade/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
}

func newTestRouter() *gin.Engine {
	gradingService := service.NewGradingService(grading.New(), nil, zerolog.Nop())
	gh := NewGradingHandler(gradingService)
	qh := NewQuizHandler(nil)
	ah := NewAttemptHandler(nil)

	r := gin.New()
	r.POST("/grade", gh.Grade)
	r.POST("/grade/batch", gh.GradeBatch)
	r.PUT("/quizzes/:id/questions", qh.ReplaceQuestions)
	r.GET("/quizzes/:id/questions", qh.GetQuestions)
	r.POST("/quizzes/:id/attempts", ah.SubmitAttempt)
	r.GET("/attempts/:id", ah.GetAttempt)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s %s: %v (body %q)", method, path, err, w.Body.String())
	}
	return w.Code, env
}

func TestGrade(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantCorrect *bool
		wantScore   float64
		wantDiag    string
	}{
		{
			name:        "single choice correct",
			body:        `{"question":{"id":"q1","type":"single_choice","points":2,"metadata":{"options":[{"id":"a","text":"Paris"},{"id":"b","text":"Rome"}],"correct":"a"}},"response":"a"}`,
			wantStatus:  http.StatusOK,
			wantCorrect: ptr(true),
			wantScore:   2,
		},
		{
			name:        "true false wrong",
			body:        `{"question":{"id":"q2","type":"true_false","metadata":{"correct":true}},"response":"false"}`,
			wantStatus:  http.StatusOK,
			wantCorrect: ptr(false),
		},
		{
			name:       "open ended needs review",
			body:       `{"question":{"id":"q3","type":"essay","metadata":{}},"response":"long text"}`,
			wantStatus: http.StatusOK,
			wantDiag:   grading.DiagManualGrading,
		},
		{
			name:       "legacy meta field",
			body:       `{"question":{"id":"q4","type":"short_answer","meta":{"acceptedAnswers":["Jakarta"]}},"response":"  jakarta "}`,
			wantStatus: http.StatusOK, wantCorrect: ptr(true), wantScore: 1,
		},
		{
			name:       "missing question",
			body:       `{"response":"a"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed json",
			body:       `{"question":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, r, http.MethodPost, "/grade", tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d", status, tt.wantStatus)
			}
			if status != http.StatusOK {
				if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
					t.Fatalf("error = %+v, want VALIDATION_ERROR", env.Error)
				}
				return
			}

			var data struct {
				Detail grading.GradeDetail `json:"detail"`
			}
			if err := json.Unmarshal(env.Data, &data); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			d := data.Detail
			switch {
			case tt.wantCorrect == nil && d.IsCorrect != nil:
				t.Errorf("is_correct = %v, want null", *d.IsCorrect)
			case tt.wantCorrect != nil && (d.IsCorrect == nil || *d.IsCorrect != *tt.wantCorrect):
				t.Errorf("is_correct = %v, want %v", d.IsCorrect, *tt.wantCorrect)
			}
			if d.Score != tt.wantScore {
				t.Errorf("score = %v, want %v", d.Score, tt.wantScore)
			}
			if d.Diagnostic != tt.wantDiag {
				t.Errorf("diagnostic = %q, want %q", d.Diagnostic, tt.wantDiag)
			}
			if env.Metadata.RequestID == "" {
				t.Error("metadata.request_id is empty")
			}
		})
	}
}

func TestGradeBatch(t *testing.T) {
	r := newTestRouter()

	body := `{
		"questions": [
			{"id":"q1","type":"multi_choice","points":3,"metadata":{"options":["a","b","c"],"correctAnswers":["a","c"]}},
			{"id":"q2","type":"ordering","metadata":{"items":["x","y","z"],"correctOrder":["x","y","z"]}},
			{"id":"q3","type":"matching","metadata":{"left":["1","2"],"correctMap":{"1":"A","2":"B"}}}
		],
		"responses": {"q1":["c","a"],"q2":["x","z","y"],"q3":{"1":"A","2":"A"}}
	}`
	status, env := do(t, r, http.MethodPost, "/grade/batch", body)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}

	var res grading.BatchResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(res.Details) != 3 {
		t.Fatalf("details = %d, want 3", len(res.Details))
	}
	for i, id := range []string{"q1", "q2", "q3"} {
		if res.Details[i].QuestionID != id {
			t.Errorf("details[%d] = %s, want %s", i, res.Details[i].QuestionID, id)
		}
	}
	// 3 (multi) + 0 (ordering) + 1 of 2 matching pairs.
	if res.TotalScore != 4 || res.TotalPossible != 6 {
		t.Errorf("totals = %v/%v, want 4/6", res.TotalScore, res.TotalPossible)
	}

	status, env = do(t, r, http.MethodPost, "/grade/batch", `{"questions":[],"responses":{}}`)
	if status != http.StatusBadRequest {
		t.Fatalf("empty questions: status = %d, want 400", status)
	}
	if _, ok := env.Error.Fields["questions"]; !ok {
		t.Errorf("fields = %v, want a questions entry", env.Error.Fields)
	}
}

func TestInvalidIDs(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPut, "/quizzes/not-a-uuid/questions", `{}`},
		{http.MethodGet, "/quizzes/123/questions", ``},
		{http.MethodPost, "/quizzes/abc/attempts", `{"learner_id":"l1","responses":{}}`},
		{http.MethodGet, "/attempts/xyz", ``},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			status, env := do(t, r, tt.method, tt.path, tt.body)
			if status != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", status)
			}
			if env.Error == nil || env.Error.Code != "INVALID_ID" {
				t.Errorf("error = %+v, want INVALID_ID", env.Error)
			}
		})
	}
}

func TestValidationBeforeService(t *testing.T) {
	r := newTestRouter()
	id := "7f1c1f5e-3a0e-4a3b-9a43-0c2d9b1f7a10"

	status, env := do(t, r, http.MethodPut, "/quizzes/"+id+"/questions", `{"questions":[{"id":"q1"},{"id":"q1","type":"true_false"}]}`)
	if status != http.StatusBadRequest {
		t.Fatalf("replace: status = %d, want 400", status)
	}
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("replace: error = %+v", env.Error)
	}

	status, env = do(t, r, http.MethodPost, "/quizzes/"+id+"/attempts", `{"responses":{"q1":true}}`)
	if status != http.StatusBadRequest {
		t.Fatalf("submit: status = %d, want 400", status)
	}
	if _, ok := env.Error.Fields["learner_id"]; !ok {
		t.Errorf("submit: fields = %v, want learner_id", env.Error.Fields)
	}
}

func ptr[T any](v T) *T { return &v }
