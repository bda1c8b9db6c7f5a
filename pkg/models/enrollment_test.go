package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnrollment(t *testing.T) {
	def := validDefinition()

	enr := NewEnrollment("enr-1", def, TargetTypeDeal, "deal-9")

	assert.Equal(t, EnrollmentStatusActive, enr.Status)
	assert.Equal(t, "start", enr.CurrentNodeID)
	assert.Empty(t, enr.VisitedNodes)
	assert.Empty(t, enr.ExecutionPath)
	assert.NotNil(t, enr.Context)
}

func TestEnrollment_VisitCount(t *testing.T) {
	enr := &Enrollment{VisitedNodes: []string{"a", "b", "a", "c", "a"}}

	assert.Equal(t, 3, enr.VisitCount("a"))
	assert.Equal(t, 1, enr.VisitCount("b"))
	assert.Equal(t, 0, enr.VisitCount("missing"))
}

func TestEnrollment_MergeContext(t *testing.T) {
	enr := &Enrollment{Context: map[string]any{"score": 10, "tag": "old"}}

	enr.MergeContext(map[string]any{"tag": "new", "extra": true})

	assert.Equal(t, 10, enr.Context["score"])
	assert.Equal(t, "new", enr.Context["tag"])
	assert.Equal(t, true, enr.Context["extra"])
}

func TestEnrollment_MergeContext_NilMap(t *testing.T) {
	enr := &Enrollment{}

	enr.MergeContext(map[string]any{"k": "v"})

	assert.Equal(t, "v", enr.Context["k"])
}

func TestEnrollmentStatus_Terminal(t *testing.T) {
	assert.False(t, EnrollmentStatusActive.Terminal())
	assert.False(t, EnrollmentStatusWaiting.Terminal())
	assert.True(t, EnrollmentStatusCompleted.Terminal())
	assert.True(t, EnrollmentStatusFailed.Terminal())
	assert.True(t, EnrollmentStatusCancelled.Terminal())
}

// The execution path must survive serialization with ordering and failure
// details intact so the audit trail stays replayable.
func TestExecutionPath_RoundTrip(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	enr := &Enrollment{
		ID:         "enr-1",
		WorkflowID: "wf-1",
		TargetType: TargetTypeDeal,
		TargetID:   "deal-9",
		Status:     EnrollmentStatusFailed,
	}

	enr.RecordStep("start", base, StepResultSuccess, "")
	enr.RecordStep("check", base.Add(time.Second), StepResultSuccess, "")
	enr.RecordStep("notify", base.Add(2*time.Second), StepResultFailed, "smtp unreachable")

	data, err := json.Marshal(enr)
	require.NoError(t, err)

	var decoded Enrollment
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Len(t, decoded.ExecutionPath, 3)
	assert.Equal(t, []string{"start", "check", "notify"}, decoded.VisitedNodes)
	assert.Equal(t, "check", decoded.ExecutionPath[1].NodeID)
	assert.Equal(t, StepResultFailed, decoded.ExecutionPath[2].Result)
	assert.Equal(t, "smtp unreachable", decoded.ExecutionPath[2].Error)
	assert.True(t, decoded.ExecutionPath[0].Timestamp.Before(decoded.ExecutionPath[2].Timestamp))
}

func TestParseTargetType(t *testing.T) {
	for _, valid := range []string{"deal", "contact", "task"} {
		parsed, err := ParseTargetType(valid)
		require.NoError(t, err)
		assert.Equal(t, TargetType(valid), parsed)
	}

	_, err := ParseTargetType("invoice")
	assert.Error(t, err)
}

func TestTargetType_Collection(t *testing.T) {
	assert.Equal(t, "deals", TargetTypeDeal.Collection())
	assert.Equal(t, "contacts", TargetTypeContact.Collection())
	assert.Equal(t, "tasks", TargetTypeTask.Collection())
}
