package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/api"
	"github.com/BaSui01/supportflow/types"
	"github.com/BaSui01/supportflow/workflow"
)

type fakeAsker struct {
	got workflow.RunRequest
	res *workflow.Result
	err error
}

func (f *fakeAsker) Ask(_ context.Context, req workflow.RunRequest) (*workflow.Result, error) {
	f.got = req
	return f.res, f.err
}

func postAsk(h *AskHandler, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleAsk(w, r)
	return w
}

func TestAskHandler_Success(t *testing.T) {
	asker := &fakeAsker{res: &workflow.Result{
		RunID:       "run-1",
		Question:    "How do I reset my password?",
		FinalAnswer: "Use the reset link.",
		FinalStatus: workflow.StatusSuccess,
		Sources:     []string{"faq.md"},
		AuditTrail:  []workflow.StepRecord{{Node: workflow.NodeRetrieve, Outcome: "retrieved"}},
	}}
	h := NewAskHandler(asker, zap.NewNop())

	w := postAsk(h, `{"question":"How do I reset my password?","max_retries":1,"include_trace":true}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "How do I reset my password?", asker.got.Question)
	assert.Equal(t, 1, asker.got.MaxRetries)

	var resp struct {
		Success bool            `json:"success"`
		Data    api.AskResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "run-1", resp.Data.RunID)
	assert.Equal(t, workflow.StatusSuccess, resp.Data.Status)
	assert.Equal(t, []string{"faq.md"}, resp.Data.Sources)
	assert.Len(t, resp.Data.Trace, 1)
}

func TestAskHandler_TerminalStatusesAreOK(t *testing.T) {
	for _, status := range []workflow.Status{workflow.StatusInsufficientData, workflow.StatusValidationFailed} {
		t.Run(string(status), func(t *testing.T) {
			h := NewAskHandler(&fakeAsker{res: &workflow.Result{RunID: "r", FinalStatus: status}}, nil)
			w := postAsk(h, `{"question":"q"}`)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestAskHandler_Errors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		err         error
		wantStatus  int
	}{
		{name: "wrong content type", contentType: "text/plain", body: `{"question":"q"}`, wantStatus: http.StatusUnsupportedMediaType},
		{name: "bad json", contentType: "application/json", body: `{`, wantStatus: http.StatusBadRequest},
		{
			name:        "invalid request from engine",
			contentType: "application/json",
			body:        `{"question":"   "}`,
			err:         types.NewError(types.ErrInvalidRequest, "question must not be empty"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "retrieval unavailable",
			contentType: "application/json",
			body:        `{"question":"q"}`,
			err:         types.NewError(types.ErrRetrievalUnavailable, "retrieval failed"),
			wantStatus:  http.StatusServiceUnavailable,
		},
		{
			name:        "timeout",
			contentType: "application/json",
			body:        `{"question":"q"}`,
			err:         types.NewError(types.ErrTimeout, "run timed out"),
			wantStatus:  http.StatusGatewayTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAskHandler(&fakeAsker{err: tt.err}, zap.NewNop())
			r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			h.HandleAsk(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			var resp Response
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.False(t, resp.Success)
		})
	}
}
