package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var ErrDuplicateJob = errors.New("job with the given name already exists in queue")

type Job struct {
	BaseModel
	Fails       int        `json:"fails"`
	Name        string     `json:"name"`
	Handler     string     `json:"handler"`
	Args        string     `json:"args"`
	LastError   string     `json:"last_error"`
	Claimed     bool       `json:"claimed" gorm:"default:false"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	JobStatusID uint       `json:"job_status_id"`
	JobStatus   *JobStatus `json:"status"`
}

// MarkAsClaimed attempts to claim the job for a single worker. The conditional
// update makes the claim safe across concurrent workers: only one of them
// observes RowsAffected > 0.
func (job *Job) MarkAsClaimed() (bool, error) {
	inProgressStatus, err := FindJobStatus(IN_PROGRESS_JOB)
	if err != nil {
		return false, err
	}

	res := db.Model(&Job{}).Where("id = ? AND claimed = ?", job.ID, false).Updates(map[string]interface{}{
		"claimed":       true,
		"job_status_id": inProgressStatus.ID,
	})

	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

func (job *Job) Update(data map[string]interface{}) error {
	return db.Model(job).Updates(data).Error
}

// CreateUniqueJobByName enqueues a job unless one with the same name is
// already waiting or running.
func CreateUniqueJobByName(name string, handler string, args string) error {
	queuedStatusIDs, err := jobStatusIDs(ENQUEUED_JOB, IN_PROGRESS_JOB, SCHEDULED_JOB)
	if err != nil {
		return err
	}

	result := db.Where("name = ? AND job_status_id IN ?", name, queuedStatusIDs).First(&Job{})
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	if result.RowsAffected > 0 {
		return ErrDuplicateJob
	}

	enqueuedStatus, err := FindJobStatus(ENQUEUED_JOB)
	if err != nil {
		return err
	}

	return db.Create(&Job{
		Name:        name,
		Handler:     handler,
		Args:        args,
		EnqueuedAt:  time.Now(),
		JobStatusID: enqueuedStatus.ID,
	}).Error
}

// CreateScheduledJob records a job to be moved into the queue once
// 'enqueueAt' has passed - the scheduled-job requeuer takes it from there.
func CreateScheduledJob(name string, handler string, args string, enqueueAt time.Time) error {
	scheduledStatus, err := FindJobStatus(SCHEDULED_JOB)
	if err != nil {
		return err
	}

	return db.Create(&Job{
		Name:        name,
		Handler:     handler,
		Args:        args,
		EnqueuedAt:  enqueueAt,
		JobStatusID: scheduledStatus.ID,
	}).Error
}

// LastJob returns the oldest job with the given status & claim state.
func LastJob(status string, claimed bool) (*Job, error) {
	job := Job{}

	err := db.Joins(
		"INNER JOIN job_statuses ON job_statuses.id = jobs.job_status_id AND job_statuses.name = ?", status).
		Where("jobs.claimed = ?", claimed).
		Order("jobs.id asc").First(&job).Error

	if err != nil {
		return nil, err
	}

	return &job, nil
}

// LastJobLastUpdated returns a job with the given status that hasn't been
// touched in the last 'minutes' minutes - i.e. one that looks stuck.
func LastJobLastUpdated(minutes int, status string) (*Job, error) {
	job := Job{}
	cutOff := time.Now().Add(-time.Duration(minutes) * time.Minute)

	err := db.Joins(
		"INNER JOIN job_statuses ON job_statuses.id = jobs.job_status_id AND job_statuses.name = ?", status).
		Where("jobs.updated_at < ?", cutOff).
		Order("jobs.id asc").First(&job).Error

	if err != nil {
		return nil, err
	}

	return &job, nil
}

// FirstScheduledJobToBeQueued returns the next scheduled job whose enqueue
// time has passed.
func FirstScheduledJobToBeQueued() (*Job, error) {
	job := Job{}

	scheduledStatus, err := FindJobStatus(SCHEDULED_JOB)
	if err != nil {
		return nil, err
	}

	err = db.Preload("JobStatus").
		Where("job_status_id = ? AND enqueued_at <= ?", scheduledStatus.ID, time.Now()).
		Order("enqueued_at asc").First(&job).Error

	if err != nil {
		return nil, err
	}

	return &job, nil
}

func jobStatusIDs(names ...string) ([]uint, error) {
	statuses := []JobStatus{}

	err := db.Where("name IN ?", names).Find(&statuses).Error
	if err != nil {
		return nil, err
	}

	if len(statuses) != len(names) {
		return nil, fmt.Errorf("missing job status seed data, found %v of %v", len(statuses), len(names))
	}

	ids := []uint{}
	for _, status := range statuses {
		ids = append(ids, status.ID)
	}

	return ids, nil
}
