// Package models provides data model definitions for CareerHelper entities.
package models

// Job represents a job posting pulled from the remote catalog.
// Jobs are never created locally: every Job record originates from a pull,
// so the struct carries no pending-sync bookkeeping.
type Job struct {
	JobID       UUID   `db:"job_id" json:"jobId"`
	Title       string `db:"title" json:"title"`
	Company     string `db:"company" json:"company"`
	Location    string `db:"location" json:"location,omitempty"`
	Description string `db:"description" json:"description"`
	Salary      *int   `db:"salary" json:"salary,omitempty"`
	PostedAt    string `db:"posted_at" json:"postedAt"`
}

// TableName returns the table name for Job.
func (Job) TableName() string {
	return "jobs"
}
