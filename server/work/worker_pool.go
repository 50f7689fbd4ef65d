package work

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sudarshan/carebuddy/server/models"
)

type WorkerPool struct {
	Handlers    map[string]Handler
	workers     []*worker
	requeuers   []*requeuer
	concurrency int
	started     bool
}

func newWorkerPool(concurrency int) (*WorkerPool, error) {
	wp := WorkerPool{Handlers: make(map[string]Handler), concurrency: concurrency}

	for i := 0; i < concurrency; i++ {
		wp.workers = append(wp.workers, newWorker([]int64{0, 10, 100, 120}))
	}

	for _, queue := range []string{models.IN_PROGRESS_JOB, models.SCHEDULED_JOB} {
		rq, err := newRequeuer(queue)
		if err != nil {
			return nil, err
		}
		wp.requeuers = append(wp.requeuers, rq)
	}

	return &wp, nil
}

// registerHandler binds a name to a job handler for all workers in pool
func (wp *WorkerPool) registerHandler(name string, handler Handler) error {
	if _, ok := wp.Handlers[name]; ok {
		return ErrDuplicateHandler
	}
	wp.Handlers[name] = handler

	for _, worker := range wp.workers {
		err := worker.registerHandler(name, handler)

		// Only panic if we get an error that is unexpected i.e !ErrDuplicateHandler
		if err != nil && !errors.Is(err, ErrDuplicateHandler) {
			logg.Panic(err)
		}
	}
	return nil
}

// enqueue adds a job to the queue(to be executed) by creating a DB record
// based on the 'JobParams' provided. Jobs are unique by name while queued or
// in progress.
func (wp *WorkerPool) enqueue(job JobParams) error {
	argsAsJson, err := marshalJobArgs(job)
	if err != nil {
		return err
	}

	return models.CreateUniqueJobByName(job.Name, job.Handler, argsAsJson)
}

// enqueueIn records a job to be moved into the queue 'secondsInFuture'
// seconds from now.
func (wp *WorkerPool) enqueueIn(secondsInFuture int64, job JobParams) error {
	argsAsJson, err := marshalJobArgs(job)
	if err != nil {
		return err
	}

	enqueueAt := time.Now().Add(time.Duration(secondsInFuture) * time.Second)
	return models.CreateScheduledJob(job.Name, job.Handler, argsAsJson, enqueueAt)
}

// start starts all workers & requeuers in pool i.e. jobs start being processed
func (wp *WorkerPool) start() {
	if wp.started {
		return
	}
	wp.started = true

	for _, worker := range wp.workers {
		worker.start()
	}

	for _, rq := range wp.requeuers {
		rq.start()
	}
}

// stop stops all workers & requeuers in pool i.e. jobs will stop being processed
func (wp *WorkerPool) stop() {
	if !wp.started {
		return
	}

	wg := sync.WaitGroup{}
	for _, w := range wp.workers {
		wg.Add(1)
		go func(w *worker) {
			w.stop()
			wg.Done()
		}(w)
	}

	for _, rq := range wp.requeuers {
		wg.Add(1)
		go func(rq *requeuer) {
			rq.stop()
			wg.Done()
		}(rq)
	}

	wg.Wait()
	wp.started = false
}

func marshalJobArgs(job JobParams) (string, error) {
	if strings.TrimSpace(job.Name) == "" || strings.TrimSpace(job.Handler) == "" {
		return "", fmt.Errorf("both a name & handler is required for a job")
	}

	argsAsJson, err := json.Marshal(job.Args)
	if err != nil {
		return "", err
	}

	return string(argsAsJson), nil
}
