// Package models provides data model definitions for CareerHelper entities.
package models

import "time"

// Experience represents a work experience entry owned by a user.
//
// PendingSync is true only for records created locally that the remote API
// has not yet confirmed. A record with PendingSync=false always carries a
// non-nil LastSyncedAt.
type Experience struct {
	ExperienceID UUID       `db:"experience_id" json:"experienceId"`
	UserID       string     `db:"user_id" json:"userId"`
	Title        string     `db:"title" json:"title"`
	Company      string     `db:"company" json:"company"`
	StartDate    string     `db:"start_date" json:"startDate"`
	EndDate      string     `db:"end_date" json:"endDate,omitempty"`
	Description  string     `db:"description" json:"description"`
	PendingSync  bool       `db:"pending_sync" json:"pendingSync"`
	LastSyncedAt *time.Time `db:"last_synced_at" json:"lastSyncedAt"`
}

// TableName returns the table name for Experience.
func (Experience) TableName() string {
	return "experiences"
}

// Confirm marks the record as acknowledged by the remote API.
func (e *Experience) Confirm(at time.Time) {
	e.PendingSync = false
	e.LastSyncedAt = &at
}
