// Package store provides CRUD operations for the Job collection.
package store

import (
	"database/sql"

	"github.com/jackyxhb/CareerHelper/internal/errors"
	"github.com/jackyxhb/CareerHelper/internal/models"
)

const jobColumns = `job_id, title, company, location, description, salary, posted_at`

// InsertJob inserts a job record. The insert is an upsert by key: a racing
// pull writing the same jobId overwrites fields instead of duplicating the
// record.
func (s *Store) InsertJob(job *models.Job) error {
	query := `
	INSERT INTO jobs (job_id, title, company, location, description, salary, posted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(job_id) DO UPDATE SET
		title = excluded.title,
		company = excluded.company,
		location = excluded.location,
		description = excluded.description,
		salary = excluded.salary,
		posted_at = excluded.posted_at
	`
	_, err := s.db.Exec(query, job.JobID, job.Title, job.Company, job.Location,
		job.Description, nullableInt(job.Salary), job.PostedAt)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "insert job", err)
	}
	s.obs.notify(KindJob)
	return nil
}

// UpdateJob overwrites all remote-owned fields of an existing job.
func (s *Store) UpdateJob(job *models.Job) error {
	query := `
	UPDATE jobs
	SET title = ?, company = ?, location = ?, description = ?, salary = ?, posted_at = ?
	WHERE job_id = ?
	`
	result, err := s.db.Exec(query, job.Title, job.Company, job.Location,
		job.Description, nullableInt(job.Salary), job.PostedAt, job.JobID)
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, "update job", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.Newf(errors.ErrNotFound, "job not found: %s", job.JobID)
	}
	s.obs.notify(KindJob)
	return nil
}

// GetJob retrieves a job by key.
func (s *Store) GetJob(jobID string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = ?`
	job, err := scanJob(s.db.QueryRow(query, jobID))
	if err == sql.ErrNoRows {
		return nil, errors.Newf(errors.ErrNotFound, "job not found: %s", jobID)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "get job", err)
	}
	return job, nil
}

// ListJobs returns the full local job collection.
func (s *Store) ListJobs() ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY posted_at DESC, job_id`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "list jobs", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrDatabase, "scan job", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "list jobs", err)
	}
	return jobs, nil
}

// DeleteJob removes a job record. Deleting an absent key is a no-op: the
// stale-prune pass may race with another pull that already removed it.
func (s *Store) DeleteJob(jobID string) error {
	if _, err := s.db.Exec(`DELETE FROM jobs WHERE job_id = ?`, jobID); err != nil {
		return errors.Wrap(errors.ErrDatabase, "delete job", err)
	}
	s.obs.notify(KindJob)
	return nil
}

// ReferencedJobIDs returns the set of jobIds referenced by any locally-held
// application. Referenced jobs are exempt from stale pruning so an
// application's soft reference never dangles after a job is delisted
// upstream.
func (s *Store) ReferencedJobIDs() (map[string]struct{}, error) {
	rows, err := s.db.Query(`SELECT DISTINCT job_id FROM applications WHERE job_id != ''`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "referenced job ids", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(errors.ErrDatabase, "scan job id", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "referenced job ids", err)
	}
	return ids, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var location, description, postedAt sql.NullString
	var salary sql.NullInt64
	err := row.Scan(&job.JobID, &job.Title, &job.Company, &location,
		&description, &salary, &postedAt)
	if err != nil {
		return nil, err
	}
	job.Location = location.String
	job.Description = description.String
	job.PostedAt = postedAt.String
	job.Salary = scanInt(salary)
	return &job, nil
}
