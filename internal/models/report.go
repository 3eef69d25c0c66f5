// ABOUTME: Report model for session summaries.
// ABOUTME: Success is a pass/fail marker recorded as P or F.
package models

import "time"

// Report outcomes.
const (
	ReportPass = "P"
	ReportFail = "F"
)

// IsValidReportSuccess checks the optional pass/fail marker.
func IsValidReportSuccess(s string) bool {
	return s == ReportPass || s == ReportFail
}

// Report summarises one focus session for a user.
type Report struct {
	ID                 int64     `json:"id" yaml:"id"`
	UserID             string    `json:"userId" yaml:"user_id"`
	Duration           *int      `json:"duration,omitempty" yaml:"duration,omitempty"`
	Feedback           *string   `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	Reason             *string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	RecommendedRoutine *string   `json:"recommendedRoutine,omitempty" yaml:"recommended_routine,omitempty"`
	StartTime          *string   `json:"startTime,omitempty" yaml:"start_time,omitempty"`
	Success            *string   `json:"success,omitempty" yaml:"success,omitempty"`
	CreatedAt          time.Time `json:"createdAt" yaml:"created_at"`
}

// NewReport creates an empty report for a user.
func NewReport(userID string) *Report {
	return &Report{UserID: userID}
}
