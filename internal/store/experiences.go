// Package store provides CRUD operations for the Experience collection.
package store

import (
	"database/sql"
	"time"

	"github.com/jackyxhb/CareerHelper/internal/errors"
	"github.com/jackyxhb/CareerHelper/internal/models"
)

const experienceColumns = `experience_id, user_id, title, company, start_date, end_date, description, pending_sync, last_synced_at`

// InsertExperience inserts an experience record, upserting by key.
func (s *Store) InsertExperience(exp *models.Experience) error {
	query := `
	INSERT INTO experiences (experience_id, user_id, title, company, start_date, end_date, description, pending_sync, last_synced_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(experience_id) DO UPDATE SET
		user_id = excluded.user_id,
		title = excluded.title,
		company = excluded.company,
		start_date = excluded.start_date,
		end_date = excluded.end_date,
		description = excluded.description,
		pending_sync = excluded.pending_sync,
		last_synced_at = excluded.last_synced_at
	`
	_, err := s.db.Exec(query, exp.ExperienceID, exp.UserID, exp.Title, exp.Company,
		exp.StartDate, exp.EndDate, exp.Description, exp.PendingSync,
		nullableTime(exp.LastSyncedAt))
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "insert experience", err)
	}
	s.obs.notify(KindExperience)
	return nil
}

// UpdateExperience overwrites all fields of an existing experience.
func (s *Store) UpdateExperience(exp *models.Experience) error {
	query := `
	UPDATE experiences
	SET title = ?, company = ?, start_date = ?, end_date = ?, description = ?,
		pending_sync = ?, last_synced_at = ?
	WHERE experience_id = ?
	`
	result, err := s.db.Exec(query, exp.Title, exp.Company, exp.StartDate, exp.EndDate,
		exp.Description, exp.PendingSync, nullableTime(exp.LastSyncedAt), exp.ExperienceID)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "update experience", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Newf(errors.ErrNotFound, "experience not found: %s", exp.ExperienceID)
	}
	s.obs.notify(KindExperience)
	return nil
}

// ConfirmExperience atomically flips pending_sync off and stamps the sync
// time. A record confirmed concurrently is simply re-stamped; last_synced_at
// only moves forward because every stamp is the current time.
func (s *Store) ConfirmExperience(experienceID string, at time.Time) error {
	query := `UPDATE experiences SET pending_sync = 0, last_synced_at = ? WHERE experience_id = ?`
	result, err := s.db.Exec(query, nullableTime(&at), experienceID)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "confirm experience", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Newf(errors.ErrNotFound, "experience not found: %s", experienceID)
	}
	s.obs.notify(KindExperience)
	return nil
}

// GetExperience retrieves an experience by key.
func (s *Store) GetExperience(experienceID string) (*models.Experience, error) {
	query := `SELECT ` + experienceColumns + ` FROM experiences WHERE experience_id = ?`
	exp, err := scanExperience(s.db.QueryRow(query, experienceID))
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrNotFound, "experience not found: %s", experienceID)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "get experience", err)
	}
	return exp, nil
}

// ListExperiences returns the owner's experiences.
func (s *Store) ListExperiences(userID string) ([]*models.Experience, error) {
	query := `SELECT ` + experienceColumns + ` FROM experiences WHERE user_id = ? ORDER BY start_date DESC, experience_id`
	return s.queryExperiences(query, userID)
}

// ListPendingExperiences returns the owner's experiences still awaiting
// remote confirmation.
func (s *Store) ListPendingExperiences(userID string) ([]*models.Experience, error) {
	query := `SELECT ` + experienceColumns + ` FROM experiences WHERE user_id = ? AND pending_sync = 1 ORDER BY experience_id`
	return s.queryExperiences(query, userID)
}

// DeleteExperience removes an experience record.
func (s *Store) DeleteExperience(experienceID string) error {
	if _, err := s.db.Exec(`DELETE FROM experiences WHERE experience_id = ?`, experienceID); err != nil {
		return errors.Wrap(errors.ErrDatabase, "delete experience", err)
	}
	s.obs.notify(KindExperience)
	return nil
}

func (s *Store) queryExperiences(query string, args ...interface{}) ([]*models.Experience, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "list experiences", err)
	}
	defer rows.Close()

	var experiences []*models.Experience
	for rows.Next() {
		exp, err := scanExperience(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrDatabase, "scan experience", err)
		}
		experiences = append(experiences, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "list experiences", err)
	}
	return experiences, nil
}

func scanExperience(row rowScanner) (*models.Experience, error) {
	var exp models.Experience
	var endDate, description, lastSynced sql.NullString
	err := row.Scan(&exp.ExperienceID, &exp.UserID, &exp.Title, &exp.Company,
		&exp.StartDate, &endDate, &description, &exp.PendingSync, &lastSynced)
	if err != nil {
		return nil, err
	}
	exp.EndDate = endDate.String
	exp.Description = description.String
	exp.LastSyncedAt, err = scanTime(lastSynced)
	if err != nil {
		return nil, err
	}
	return &exp, nil
}
