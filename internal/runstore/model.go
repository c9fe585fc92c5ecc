package runstore

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/BaSui01/supportflow/workflow"
)

// RunRecord workflow_runs 表
type RunRecord struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Question    string    `gorm:"type:text;not null"`
	FinalStatus string    `gorm:"size:32;index"`
	FinalAnswer string    `gorm:"type:text"`
	Sources     string    `gorm:"type:text"`
	RetryCount  int       `gorm:"not null;default:0"`
	MaxRetries  int       `gorm:"not null;default:0"`
	Confidence  *float64
	StartedAt   time.Time `gorm:"index"`
	DurationNS  int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time
	Steps       []StepRow `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// TableName 表名
func (RunRecord) TableName() string { return "workflow_runs" }

// StepRow workflow_steps 表，Seq 为节点在审计轨迹中的序号
type StepRow struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	RunID      string    `gorm:"size:64;index;not null"`
	Seq        int       `gorm:"not null"`
	Node       string    `gorm:"size:64;not null"`
	Outcome    string    `gorm:"size:64"`
	Details    string    `gorm:"type:text"`
	StartedAt  time.Time
	DurationNS int64     `gorm:"not null;default:0"`
}

// TableName 表名
func (StepRow) TableName() string { return "workflow_steps" }

// Summary 列表接口返回的运行摘要
type Summary struct {
	RunID       string          `json:"run_id"`
	Question    string          `json:"question"`
	FinalStatus workflow.Status `json:"final_status"`
	RetryCount  int             `json:"retry_count"`
	Confidence  *float64        `json:"confidence,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	Duration    time.Duration   `json:"duration"`
}

func toRecord(res *workflow.Result) (*RunRecord, error) {
	sources, err := json.Marshal(nonNil(res.Sources))
	if err != nil {
		return nil, fmt.Errorf("encode sources: %w", err)
	}
	rec := &RunRecord{
		ID:          res.RunID,
		Question:    res.Question,
		FinalStatus: string(res.FinalStatus),
		FinalAnswer: res.FinalAnswer,
		Sources:     string(sources),
		RetryCount:  res.RetryCount,
		MaxRetries:  res.MaxRetries,
		Confidence:  res.Confidence,
		StartedAt:   res.StartedAt.UTC(),
		DurationNS:  int64(res.Duration),
		Steps:       make([]StepRow, 0, len(res.AuditTrail)),
	}
	for i, step := range res.AuditTrail {
		details := ""
		if len(step.Details) > 0 {
			b, err := json.Marshal(step.Details)
			if err != nil {
				return nil, fmt.Errorf("encode details of step %d (%s): %w", i, step.Node, err)
			}
			details = string(b)
		}
		rec.Steps = append(rec.Steps, StepRow{
			RunID:      res.RunID,
			Seq:        i,
			Node:       string(step.Node),
			Outcome:    step.Outcome,
			Details:    details,
			StartedAt:  step.StartedAt.UTC(),
			DurationNS: int64(step.Duration),
		})
	}
	return rec, nil
}

func (r *RunRecord) toResult() (*workflow.Result, error) {
	res := &workflow.Result{
		RunID:       r.ID,
		Question:    r.Question,
		FinalAnswer: r.FinalAnswer,
		FinalStatus: workflow.Status(r.FinalStatus),
		RetryCount:  r.RetryCount,
		MaxRetries:  r.MaxRetries,
		Confidence:  r.Confidence,
		StartedAt:   r.StartedAt,
		Duration:    time.Duration(r.DurationNS),
		Sources:     []string{},
		AuditTrail:  make([]workflow.StepRecord, 0, len(r.Steps)),
	}
	if r.Sources != "" {
		if err := json.Unmarshal([]byte(r.Sources), &res.Sources); err != nil {
			return nil, fmt.Errorf("decode sources of run %s: %w", r.ID, err)
		}
	}
	for _, s := range r.Steps {
		step := workflow.StepRecord{
			Node:      workflow.NodeID(s.Node),
			Outcome:   s.Outcome,
			StartedAt: s.StartedAt,
			Duration:  time.Duration(s.DurationNS),
		}
		if s.Details != "" {
			if err := json.Unmarshal([]byte(s.Details), &step.Details); err != nil {
				return nil, fmt.Errorf("decode details of run %s step %d: %w", r.ID, s.Seq, err)
			}
		}
		res.AuditTrail = append(res.AuditTrail, step)
	}
	return res, nil
}

func (r *RunRecord) summary() Summary {
	return Summary{
		RunID:       r.ID,
		Question:    r.Question,
		FinalStatus: workflow.Status(r.FinalStatus),
		RetryCount:  r.RetryCount,
		Confidence:  r.Confidence,
		StartedAt:   r.StartedAt,
		Duration:    time.Duration(r.DurationNS),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
