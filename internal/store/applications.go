// Package store provides CRUD operations for the Application collection.
package store

import (
	"database/sql"
	"time"

	"github.com/jackyxhb/CareerHelper/internal/errors"
	"github.com/jackyxhb/CareerHelper/internal/models"
)

const applicationColumns = `application_id, user_id, job_id, status, applied_at, notes,
	job_title, job_company, job_location, job_source, pending_sync, last_synced_at`

// InsertApplication inserts an application record, upserting by key.
func (s *Store) InsertApplication(app *models.Application) error {
	query := `
	INSERT INTO applications (application_id, user_id, job_id, status, applied_at, notes,
		job_title, job_company, job_location, job_source, pending_sync, last_synced_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(application_id) DO UPDATE SET
		user_id = excluded.user_id,
		job_id = excluded.job_id,
		status = excluded.status,
		applied_at = excluded.applied_at,
		notes = excluded.notes,
		job_title = excluded.job_title,
		job_company = excluded.job_company,
		job_location = excluded.job_location,
		job_source = excluded.job_source,
		pending_sync = excluded.pending_sync,
		last_synced_at = excluded.last_synced_at
	`
	_, err := s.db.Exec(query, app.ApplicationID, app.UserID, app.JobID, app.Status,
		app.AppliedAt, app.Notes, app.JobTitle, app.JobCompany, app.JobLocation,
		app.JobSource, app.PendingSync, nullableTime(app.LastSyncedAt))
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "insert application", err)
	}
	s.obs.notify(KindApplication)
	return nil
}

// UpdateApplication overwrites all fields of an existing application.
func (s *Store) UpdateApplication(app *models.Application) error {
	query := `
	UPDATE applications
	SET job_id = ?, status = ?, applied_at = ?, notes = ?,
		job_title = ?, job_company = ?, job_location = ?, job_source = ?,
		pending_sync = ?, last_synced_at = ?
	WHERE application_id = ?
	`
	result, err := s.db.Exec(query, app.JobID, app.Status, app.AppliedAt, app.Notes,
		app.JobTitle, app.JobCompany, app.JobLocation, app.JobSource,
		app.PendingSync, nullableTime(app.LastSyncedAt), app.ApplicationID)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "update application", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Newf(errors.ErrNotFound, "application not found: %s", app.ApplicationID)
	}
	s.obs.notify(KindApplication)
	return nil
}

// ConfirmApplication atomically flips pending_sync off and stamps the sync time.
func (s *Store) ConfirmApplication(applicationID string, at time.Time) error {
	query := `UPDATE applications SET pending_sync = 0, last_synced_at = ? WHERE application_id = ?`
	result, err := s.db.Exec(query, nullableTime(&at), applicationID)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "confirm application", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Newf(errors.ErrNotFound, "application not found: %s", applicationID)
	}
	s.obs.notify(KindApplication)
	return nil
}

// GetApplication retrieves an application by key.
func (s *Store) GetApplication(applicationID string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE application_id = ?`
	app, err := scanApplication(s.db.QueryRow(query, applicationID))
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrNotFound, "application not found: %s", applicationID)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "get application", err)
	}
	return app, nil
}

// ListApplications returns the owner's applications.
func (s *Store) ListApplications(userID string) ([]*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = ? ORDER BY applied_at DESC, application_id`
	return s.queryApplications(query, userID)
}

// ListPendingApplications returns the owner's applications still awaiting
// remote confirmation.
func (s *Store) ListPendingApplications(userID string) ([]*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE user_id = ? AND pending_sync = 1 ORDER BY application_id`
	return s.queryApplications(query, userID)
}

// DeleteApplication removes an application record.
func (s *Store) DeleteApplication(applicationID string) error {
	if _, err := s.db.Exec(`DELETE FROM applications WHERE application_id = ?`, applicationID); err != nil {
		return errors.Wrap(errors.ErrDatabase, "delete application", err)
	}
	s.obs.notify(KindApplication)
	return nil
}

func (s *Store) queryApplications(query string, args ...interface{}) ([]*models.Application, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "list applications", err)
	}
	defer rows.Close()

	var applications []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrDatabase, "scan application", err)
		}
		applications = append(applications, app)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "list applications", err)
	}
	return applications, nil
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var app models.Application
	var notes, jobTitle, jobCompany, jobLocation, jobSource, lastSynced sql.NullString
	err := row.Scan(&app.ApplicationID, &app.UserID, &app.JobID, &app.Status,
		&app.AppliedAt, &notes, &jobTitle, &jobCompany, &jobLocation, &jobSource,
		&app.PendingSync, &lastSynced)
	if err != nil {
		return nil, err
	}
	app.Notes = notes.String
	app.JobTitle = jobTitle.String
	app.JobCompany = jobCompany.String
	app.JobLocation = jobLocation.String
	app.JobSource = jobSource.String
	app.LastSyncedAt, err = scanTime(lastSynced)
	if err != nil {
		return nil, err
	}
	return &app, nil
}
