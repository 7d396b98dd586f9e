// Package models provides data model definitions for CareerHelper entities.
package models

import (
	"fmt"
	"time"
)

// ApplicationStatus enumerates the lifecycle of a job application.
type ApplicationStatus string

const (
	StatusApplied      ApplicationStatus = "APPLIED"
	StatusInterviewing ApplicationStatus = "INTERVIEWING"
	StatusOffered      ApplicationStatus = "OFFERED"
	StatusRejected     ApplicationStatus = "REJECTED"
	StatusWithdrawn    ApplicationStatus = "WITHDRAWN"
)

// ParseApplicationStatus validates and converts a raw status string.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	status := ApplicationStatus(s)
	switch status {
	case StatusApplied, StatusInterviewing, StatusOffered, StatusRejected, StatusWithdrawn:
		return status, nil
	}
	return "", fmt.Errorf("unknown application status: %q", s)
}

// Application represents a user's application to a job.
//
// JobID is a soft reference: the referenced Job may be absent from the local
// store entirely (applications to externally sourced jobs). The JobTitle,
// JobCompany, JobLocation and JobSource snapshot fields are authoritative for
// display in that case and must survive reconciliation.
type Application struct {
	ApplicationID UUID              `db:"application_id" json:"applicationId"`
	UserID        string            `db:"user_id" json:"userId"`
	JobID         string            `db:"job_id" json:"jobId"`
	Status        ApplicationStatus `db:"status" json:"status"`
	AppliedAt     string            `db:"applied_at" json:"appliedAt"`
	Notes         string            `db:"notes" json:"notes,omitempty"`
	JobTitle      string            `db:"job_title" json:"jobTitle,omitempty"`
	JobCompany    string            `db:"job_company" json:"jobCompany,omitempty"`
	JobLocation   string            `db:"job_location" json:"jobLocation,omitempty"`
	JobSource     string            `db:"job_source" json:"jobSource,omitempty"`
	PendingSync   bool              `db:"pending_sync" json:"pendingSync"`
	LastSyncedAt  *time.Time        `db:"last_synced_at" json:"lastSyncedAt"`
}

// TableName returns the table name for Application.
func (Application) TableName() string {
	return "applications"
}

// Confirm marks the record as acknowledged by the remote API.
func (a *Application) Confirm(at time.Time) {
	a.PendingSync = false
	a.LastSyncedAt = &at
}
