package work

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/sudarshan/carebuddy/server/models"
	"gorm.io/gorm"
)

func TestPerformIn(t *testing.T) {
	models.InitializeTestDb()

	workerPool := NewWorkerAdapter("UTC")
	outputBuffer := new(bytes.Buffer)

	// Register job function
	writeToBuffer := func(m map[string]interface{}) error {
		_, err := outputBuffer.WriteString("Hello")
		return err
	}
	workerPool.Register("write_to_buffer", writeToBuffer)

	err := workerPool.PerformIn(2, JobParams{
		Name:    "write_to_buffer",
		Handler: "write_to_buffer",
		Args:    map[string]interface{}{},
	})
	assert.Nil(t, err)
	assert.Empty(t, outputBuffer.String(), "Expected outputBuffer to be empty")

	// Wait until time to perform job has elapsed
	time.Sleep(3 * time.Second)

	workerPool.Start()

	// Wait for job to be processed
	time.Sleep(2 * time.Second)

	workerPool.Stop()

	assert.Equal(t, "Hello", outputBuffer.String(), "Expected job to write to outputBuffer")
}

func TestPerformDeduplicatesByName(t *testing.T) {
	models.InitializeTestDb()

	workerPool := NewWorkerAdapter("UTC")
	workerPool.Register("noop", func(m map[string]interface{}) error { return nil })

	job := JobParams{Name: "noop", Handler: "noop", Args: map[string]interface{}{}}

	assert.Nil(t, workerPool.Perform(job))

	// A second enqueue for the same name is swallowed as a duplicate
	assert.Nil(t, workerPool.Perform(job))

	firstJob, err := models.LastJob(models.ENQUEUED_JOB, false)
	assert.Nil(t, err)

	successfulStatus, err := models.FindJobStatus(models.SUCCESSFUL_JOB)
	assert.Nil(t, err)

	err = firstJob.Update(map[string]interface{}{"job_status_id": successfulStatus.ID})
	assert.Nil(t, err)

	// With the one enqueued job out of the way, the queue should be empty
	_, err = models.LastJob(models.ENQUEUED_JOB, false)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "Exactly one job should have been enqueued")
}
