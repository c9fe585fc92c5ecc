package main

import (
	"bytes"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/supportflow/api"
	"github.com/BaSui01/supportflow/workflow"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "SupportFlow "+Version)
	assert.Contains(t, out.String(), "Git Commit")
}

func TestAskCommand_RequiresQuestion(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"ask"})

	assert.Error(t, root.Execute())
}

func sampleResult() *workflow.Result {
	confidence := 0.85
	return &workflow.Result{
		RunID:       "run-9",
		Question:    "Can I change my plan?",
		FinalAnswer: "Yes, from the billing page.",
		FinalStatus: workflow.StatusSuccess,
		Sources:     []string{"billing.md"},
		RetryCount:  1,
		MaxRetries:  3,
		Confidence:  &confidence,
		AuditTrail: []workflow.StepRecord{
			{Node: workflow.NodeRetrieve, Outcome: "retrieved", Duration: 12 * time.Millisecond},
		},
	}
}

func TestPrintResult_Text(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printResult(&out, sampleResult(), askOptions{trace: true}))

	text := out.String()
	assert.Contains(t, text, "Yes, from the billing page.")
	assert.Contains(t, text, "status: success  retries: 1/3  run: run-9")
	assert.Contains(t, text, "confidence: 0.85")
	assert.Contains(t, text, "retrieve")
}

func TestPrintResult_JSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printResult(&out, sampleResult(), askOptions{asJSON: true}))

	var resp api.AskResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "run-9", resp.RunID)
	assert.Equal(t, []string{"billing.md"}, resp.Sources)
	assert.Len(t, resp.Trace, 1)
}
