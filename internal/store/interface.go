// Package store provides repository interfaces for the entity store.
package store

import (
	"time"

	"github.com/jackyxhb/CareerHelper/internal/models"
)

// JobStore defines operations for Job persistence.
type JobStore interface {
	// InsertJob inserts a job record, upserting by key.
	InsertJob(job *models.Job) error

	// UpdateJob overwrites all remote-owned fields of an existing job.
	UpdateJob(job *models.Job) error

	// GetJob retrieves a job by key.
	GetJob(jobID string) (*models.Job, error)

	// ListJobs returns the full local job collection.
	ListJobs() ([]*models.Job, error)

	// DeleteJob removes a job record.
	DeleteJob(jobID string) error

	// ReferencedJobIDs returns jobIds referenced by local applications.
	ReferencedJobIDs() (map[string]struct{}, error)
}

// ExperienceStore defines operations for Experience persistence.
type ExperienceStore interface {
	InsertExperience(exp *models.Experience) error
	UpdateExperience(exp *models.Experience) error
	ConfirmExperience(experienceID string, at time.Time) error
	GetExperience(experienceID string) (*models.Experience, error)
	ListExperiences(userID string) ([]*models.Experience, error)
	ListPendingExperiences(userID string) ([]*models.Experience, error)
	DeleteExperience(experienceID string) error
}

// ApplicationStore defines operations for Application persistence.
type ApplicationStore interface {
	InsertApplication(app *models.Application) error
	UpdateApplication(app *models.Application) error
	ConfirmApplication(applicationID string, at time.Time) error
	GetApplication(applicationID string) (*models.Application, error)
	ListApplications(userID string) ([]*models.Application, error)
	ListPendingApplications(userID string) ([]*models.Application, error)
	DeleteApplication(applicationID string) error
}

// EntityStore combines the per-kind stores consumed by the sync coordinator.
type EntityStore interface {
	JobStore
	ExperienceStore
	ApplicationStore

	// PendingCount reports the size of the owner's outbox.
	PendingCount(userID string) (int, error)
}

// Ensure *Store implements the interfaces at compile time.
var (
	_ JobStore         = (*Store)(nil)
	_ ExperienceStore  = (*Store)(nil)
	_ ApplicationStore = (*Store)(nil)
	_ EntityStore      = (*Store)(nil)
)
