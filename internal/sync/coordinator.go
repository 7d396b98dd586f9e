// Package sync implements the offline-first reconciliation core: pull
// reconciliation of the three entity collections, write-through creation of
// local records, and the flush pass that retries unconfirmed writes.
package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/jackyxhb/CareerHelper/internal/errors"
	"github.com/jackyxhb/CareerHelper/internal/gateway"
	"github.com/jackyxhb/CareerHelper/internal/logging"
	"github.com/jackyxhb/CareerHelper/internal/models"
	"github.com/jackyxhb/CareerHelper/internal/store"
	"github.com/jackyxhb/CareerHelper/internal/telemetry"
	"github.com/jackyxhb/CareerHelper/internal/uuid"
)

// Coordinator drives reconciliation between the local entity store and the
// remote API. It holds no private copies of entity state across calls: the
// store owns every record, the coordinator only reads and issues mutations.
type Coordinator struct {
	store  store.EntityStore
	remote gateway.Remote
	status *StatusFeed
	sink   *telemetry.Sink
	log    *logging.Logger
	now    func() time.Time

	mu          gosync.Mutex
	inFlight    map[string]bool
	activePulls int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithStatusFeed attaches an externally owned status feed.
func WithStatusFeed(feed *StatusFeed) Option {
	return func(c *Coordinator) { c.status = feed }
}

// WithTelemetry overrides the failure-report sink.
func WithTelemetry(sink *telemetry.Sink) Option {
	return func(c *Coordinator) { c.sink = sink }
}

// NewCoordinator creates a Coordinator over the given store and remote.
func NewCoordinator(st store.EntityStore, remote gateway.Remote, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    st,
		remote:   remote,
		status:   NewStatusFeed(),
		sink:     telemetry.Default(),
		log:      logging.Get().Named("sync"),
		now:      time.Now,
		inFlight: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the coordinator's status feed.
func (c *Coordinator) Status() *StatusFeed {
	return c.status
}

// begin claims the in-flight slot for an operation scope. Overlapping
// invocations of the same (kind, scope) pair are redundant rather than
// harmful, so the loser simply returns without error.
func (c *Coordinator) begin(op string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[op] {
		return false
	}
	c.inFlight[op] = true
	return true
}

func (c *Coordinator) end(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, op)
}

// pullStarted and pullFinished track overlapping pulls of different kinds so
// the status feed sees one syncing window, not three.
func (c *Coordinator) pullStarted() {
	c.mu.Lock()
	c.activePulls++
	first := c.activePulls == 1
	c.mu.Unlock()
	if first {
		c.status.Apply(Event{Type: EventSyncStarted})
	}
}

func (c *Coordinator) pullFinished() {
	c.mu.Lock()
	c.activePulls--
	last := c.activePulls == 0
	c.mu.Unlock()
	if last {
		c.status.Apply(Event{Type: EventSyncReady})
	}
}

// report forwards a remote failure to the telemetry sink and the log.
// Fire-and-forget: reporting never affects the operation's outcome.
func (c *Coordinator) report(kind, scope string, err error) {
	c.sink.TrackError(kind, scope, err)
	c.log.Error("remote operation failed", err, map[string]interface{}{
		"kind":  kind,
		"scope": scope,
	})
}

// publishOutbox re-derives the outbox-empty flag from the store and feeds it
// to the status machine.
func (c *Coordinator) publishOutbox(userID string) {
	count, err := c.store.PendingCount(userID)
	if err != nil {
		c.report("outbox.count", userID, err)
		return
	}
	c.status.Apply(Event{Type: EventOutboxStatus, IsEmpty: count == 0})
}

// PullJobs merges the remote job catalog into the local store.
//
// A failed remote fetch leaves local state untouched: the store keeps
// serving whatever it had, and the failure goes to telemetry only. An empty
// but errored fetch must never be mistaken for "prune everything".
func (c *Coordinator) PullJobs(ctx context.Context) error {
	if !c.begin("jobs") {
		return nil
	}
	defer c.end("jobs")
	c.pullStarted()
	defer c.pullFinished()

	remote, err := c.remote.ListJobs(ctx)
	if err != nil {
		c.report("jobs.pull", "", err)
		return nil
	}

	local, err := c.store.ListJobs()
	if err != nil {
		return err
	}
	referenced, err := c.store.ReferencedJobIDs()
	if err != nil {
		return err
	}

	localByID := make(map[string]*models.Job, len(local))
	for _, job := range local {
		localByID[job.JobID.String()] = job
	}

	// Upserts run to completion before the prune pass so no record is
	// transiently absent within a single reconciliation.
	seen := make(map[string]struct{}, len(remote))
	for _, job := range remote {
		seen[job.JobID.String()] = struct{}{}
		if _, ok := localByID[job.JobID.String()]; ok {
			err = c.store.UpdateJob(job)
		} else {
			err = c.store.InsertJob(job)
		}
		if err != nil {
			return err
		}
	}

	for _, job := range local {
		id := job.JobID.String()
		if _, ok := seen[id]; ok {
			continue
		}
		if _, ok := referenced[id]; ok {
			// Delisted upstream but still referenced by an application;
			// keeping it means the soft reference never dangles.
			continue
		}
		if err := c.store.DeleteJob(id); err != nil {
			return err
		}
	}

	c.log.Info("jobs reconciled", map[string]interface{}{"count": len(remote)})
	return nil
}

// PullExperiences merges the owner's remote experiences into the local store.
// Reconciled records are stamped pendingSync=false: state arriving from the
// server implies the server already holds the authoritative write.
func (c *Coordinator) PullExperiences(ctx context.Context, userID string) error {
	if !c.begin("experiences/" + userID) {
		return nil
	}
	defer c.end("experiences/" + userID)
	c.pullStarted()
	defer c.pullFinished()

	remote, err := c.remote.ListExperiences(ctx, userID)
	if err != nil {
		c.report("experiences.pull", userID, err)
		return nil
	}

	local, err := c.store.ListExperiences(userID)
	if err != nil {
		return err
	}
	localByID := make(map[string]*models.Experience, len(local))
	for _, exp := range local {
		localByID[exp.ExperienceID.String()] = exp
	}

	syncedAt := c.now().UTC()
	seen := make(map[string]struct{}, len(remote))
	for _, item := range remote {
		id := item.ExperienceID.String()
		seen[id] = struct{}{}
		rec := &models.Experience{
			ExperienceID: item.ExperienceID,
			UserID:       userID,
			Title:        item.Title,
			Company:      item.Company,
			StartDate:    item.StartDate,
			EndDate:      item.EndDate,
			Description:  item.Description,
			PendingSync:  false,
			LastSyncedAt: &syncedAt,
		}
		if _, ok := localByID[id]; ok {
			err = c.store.UpdateExperience(rec)
		} else {
			err = c.store.InsertExperience(rec)
		}
		if err != nil {
			return err
		}
	}

	for _, exp := range local {
		if _, ok := seen[exp.ExperienceID.String()]; ok {
			continue
		}
		if err := c.store.DeleteExperience(exp.ExperienceID.String()); err != nil {
			return err
		}
	}

	c.publishOutbox(userID)
	return nil
}

// PullApplications merges the owner's remote applications into the local
// store. Denormalized job snapshot fields keep their local values when the
// remote copy omits them: for externally sourced jobs the snapshot is the
// only displayable data.
func (c *Coordinator) PullApplications(ctx context.Context, userID string) error {
	if !c.begin("applications/" + userID) {
		return nil
	}
	defer c.end("applications/" + userID)
	c.pullStarted()
	defer c.pullFinished()

	remote, err := c.remote.ListApplications(ctx, userID)
	if err != nil {
		c.report("applications.pull", userID, err)
		return nil
	}

	local, err := c.store.ListApplications(userID)
	if err != nil {
		return err
	}
	localByID := make(map[string]*models.Application, len(local))
	for _, app := range local {
		localByID[app.ApplicationID.String()] = app
	}

	syncedAt := c.now().UTC()
	seen := make(map[string]struct{}, len(remote))
	for _, item := range remote {
		id := item.ApplicationID.String()
		seen[id] = struct{}{}
		rec := &models.Application{
			ApplicationID: item.ApplicationID,
			UserID:        userID,
			JobID:         item.JobID,
			Status:        item.Status,
			AppliedAt:     item.AppliedAt,
			Notes:         item.Notes,
			JobTitle:      item.JobTitle,
			JobCompany:    item.JobCompany,
			JobLocation:   item.JobLocation,
			JobSource:     item.JobSource,
			PendingSync:   false,
			LastSyncedAt:  &syncedAt,
		}
		existing := localByID[id]
		if existing != nil {
			if rec.JobTitle == "" {
				rec.JobTitle = existing.JobTitle
			}
			if rec.JobCompany == "" {
				rec.JobCompany = existing.JobCompany
			}
			if rec.JobLocation == "" {
				rec.JobLocation = existing.JobLocation
			}
			if rec.JobSource == "" {
				rec.JobSource = existing.JobSource
			}
			err = c.store.UpdateApplication(rec)
		} else {
			err = c.store.InsertApplication(rec)
		}
		if err != nil {
			return err
		}
	}

	for _, app := range local {
		if _, ok := seen[app.ApplicationID.String()]; ok {
			continue
		}
		if err := c.store.DeleteApplication(app.ApplicationID.String()); err != nil {
			return err
		}
	}

	c.publishOutbox(userID)
	return nil
}

// PullAll runs the three pull reconciliations in parallel. Remote failures
// are absorbed per kind; the first local-store failure is returned.
func (c *Coordinator) PullAll(ctx context.Context, userID string) error {
	var wg gosync.WaitGroup
	errs := make([]error, 3)

	wg.Add(3)
	go func() { defer wg.Done(); errs[0] = c.PullJobs(ctx) }()
	go func() { defer wg.Done(); errs[1] = c.PullExperiences(ctx, userID) }()
	go func() { defer wg.Done(); errs[2] = c.PullApplications(ctx, userID) }()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ExperienceInput carries the user-entered fields for a new experience.
type ExperienceInput struct {
	Title       string
	Company     string
	StartDate   string
	EndDate     string
	Description string
}

func (in *ExperienceInput) validate() error {
	switch {
	case in.Title == "":
		return errors.New(errors.ErrValidation, "title is required")
	case in.Company == "":
		return errors.New(errors.ErrValidation, "company is required")
	case in.StartDate == "":
		return errors.New(errors.ErrValidation, "startDate is required")
	}
	return nil
}

// CreateExperience records a new experience locally and attempts to
// replicate it. The record is durably visible to observers before the remote
// call happens; a remote failure leaves it pending for a later flush and is
// never surfaced to the caller.
func (c *Coordinator) CreateExperience(ctx context.Context, userID string, input ExperienceInput) (*models.Experience, error) {
	if userID == "" {
		return nil, errors.New(errors.ErrValidation, "userId is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	rec := &models.Experience{
		ExperienceID: models.UUID(uuid.New()),
		UserID:       userID,
		Title:        input.Title,
		Company:      input.Company,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		Description:  input.Description,
		PendingSync:  true,
		LastSyncedAt: nil,
	}
	if err := c.store.InsertExperience(rec); err != nil {
		return nil, err
	}

	if err := c.remote.CreateExperience(ctx, experienceCreate(rec)); err != nil {
		c.report("experience.create", userID, err)
		c.publishOutbox(userID)
		return rec, nil
	}

	at := c.now().UTC()
	if err := c.store.ConfirmExperience(rec.ExperienceID.String(), at); err != nil {
		return nil, err
	}
	rec.Confirm(at)
	c.publishOutbox(userID)
	return rec, nil
}

// ApplicationInput carries the user-entered fields for a new application.
type ApplicationInput struct {
	JobID       string
	Status      string
	AppliedAt   string
	Notes       string
	JobTitle    string
	JobCompany  string
	JobLocation string
	JobSource   string
}

// CreateApplication records a new application locally and attempts to
// replicate it, mirroring CreateExperience.
func (c *Coordinator) CreateApplication(ctx context.Context, userID string, input ApplicationInput) (*models.Application, error) {
	if userID == "" {
		return nil, errors.New(errors.ErrValidation, "userId is required")
	}
	if input.JobID == "" {
		return nil, errors.New(errors.ErrValidation, "jobId is required")
	}
	status, err := models.ParseApplicationStatus(input.Status)
	if err != nil {
		return nil, errors.Wrap(errors.ErrValidation, "invalid status", err)
	}

	appliedAt := input.AppliedAt
	if appliedAt == "" {
		appliedAt = c.now().UTC().Format(time.RFC3339)
	}

	rec := &models.Application{
		ApplicationID: models.UUID(uuid.New()),
		UserID:        userID,
		JobID:         input.JobID,
		Status:        status,
		AppliedAt:     appliedAt,
		Notes:         input.Notes,
		JobTitle:      input.JobTitle,
		JobCompany:    input.JobCompany,
		JobLocation:   input.JobLocation,
		JobSource:     input.JobSource,
		PendingSync:   true,
		LastSyncedAt:  nil,
	}
	if err := c.store.InsertApplication(rec); err != nil {
		return nil, err
	}

	if err := c.remote.CreateApplication(ctx, applicationCreate(rec)); err != nil {
		c.report("application.create", userID, err)
		c.publishOutbox(userID)
		return rec, nil
	}

	at := c.now().UTC()
	if err := c.store.ConfirmApplication(rec.ApplicationID.String(), at); err != nil {
		return nil, err
	}
	rec.Confirm(at)
	c.publishOutbox(userID)
	return rec, nil
}

// FlushPending retries the remote create for every unconfirmed record the
// owner has. Attempts run concurrently and failures stay isolated: one
// record failing never stops the others.
func (c *Coordinator) FlushPending(ctx context.Context, userID string) error {
	if !c.begin("flush/" + userID) {
		return nil
	}
	defer c.end("flush/" + userID)

	experiences, err := c.store.ListPendingExperiences(userID)
	if err != nil {
		return err
	}
	applications, err := c.store.ListPendingApplications(userID)
	if err != nil {
		return err
	}

	var wg gosync.WaitGroup
	for _, exp := range experiences {
		wg.Add(1)
		go func(exp *models.Experience) {
			defer wg.Done()
			c.flushExperience(ctx, exp)
		}(exp)
	}
	for _, app := range applications {
		wg.Add(1)
		go func(app *models.Application) {
			defer wg.Done()
			c.flushApplication(ctx, app)
		}(app)
	}
	wg.Wait()

	c.publishOutbox(userID)
	return nil
}

func (c *Coordinator) flushExperience(ctx context.Context, exp *models.Experience) {
	id := exp.ExperienceID.String()
	// Recheck right before the send: a concurrent operation may already have
	// confirmed the record, making this entry a no-op.
	current, err := c.store.GetExperience(id)
	if err != nil || !current.PendingSync {
		return
	}
	if err := c.remote.CreateExperience(ctx, experienceCreate(current)); err != nil {
		c.report("experience.flush", id, err)
		return
	}
	if err := c.store.ConfirmExperience(id, c.now().UTC()); err != nil {
		c.report("experience.flush", id, err)
	}
}

func (c *Coordinator) flushApplication(ctx context.Context, app *models.Application) {
	id := app.ApplicationID.String()
	current, err := c.store.GetApplication(id)
	if err != nil || !current.PendingSync {
		return
	}
	if err := c.remote.CreateApplication(ctx, applicationCreate(current)); err != nil {
		c.report("application.flush", id, err)
		return
	}
	if err := c.store.ConfirmApplication(id, c.now().UTC()); err != nil {
		c.report("application.flush", id, err)
	}
}

func experienceCreate(exp *models.Experience) *gateway.ExperienceCreate {
	return &gateway.ExperienceCreate{
		ExperienceID: exp.ExperienceID.String(),
		UserID:       exp.UserID,
		Title:        exp.Title,
		Company:      exp.Company,
		StartDate:    exp.StartDate,
		EndDate:      exp.EndDate,
		Description:  exp.Description,
	}
}

func applicationCreate(app *models.Application) *gateway.ApplicationCreate {
	return &gateway.ApplicationCreate{
		ApplicationID: app.ApplicationID.String(),
		UserID:        app.UserID,
		JobID:         app.JobID,
		Status:        string(app.Status),
		AppliedAt:     app.AppliedAt,
		Notes:         app.Notes,
		JobTitle:      app.JobTitle,
		JobCompany:    app.JobCompany,
		JobLocation:   app.JobLocation,
		JobSource:     app.JobSource,
	}
}
