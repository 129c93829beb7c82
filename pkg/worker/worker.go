package worker

import (
	"github.com/clipdeck/clipdeck/pkg/logger"
)

var workerLogger = logger.Get("Worker")

type (
	WakeupChan chan int
	Status     int

	// PollFunction is the unit of work for a worker. It should claim and
	// process at most one pending item, reporting whether any work was
	// found. A worker keeps polling until the function reports idle, then
	// sleeps until woken.
	PollFunction func(Worker) (bool, error)

	Worker interface {
		Start()
		Status() Status
		WakeupChan() WakeupChan
		Label() string
		Close()
	}

	taskWorker struct {
		label         string
		poll          PollFunction
		wakeupChan    WakeupChan
		currentStatus Status
	}
)

const (
	SLEEPING Status = iota
	WORKING
	FINISHED
)

func NewWorker(label string, poll PollFunction) *taskWorker {
	return &taskWorker{
		label:      label,
		poll:       poll,
		wakeupChan: make(WakeupChan),
	}
}

// Start runs the worker loop until the wakeup channel is closed. Poll
// errors are logged and do not kill the worker; the next wakeup will
// simply try again.
func (worker *taskWorker) Start() {
	defer func() { worker.currentStatus = FINISHED }()

	for {
		worker.currentStatus = WORKING
		for {
			didWork, err := worker.poll(worker)
			if err != nil {
				workerLogger.Emit(logger.ERROR, "Worker %s reported an error: %s\n", worker.label, err.Error())
				break
			}
			if !didWork {
				break
			}
		}

		worker.currentStatus = SLEEPING
		if _, ok := <-worker.wakeupChan; !ok {
			return
		}
	}
}

func (worker *taskWorker) Status() Status         { return worker.currentStatus }
func (worker *taskWorker) WakeupChan() WakeupChan { return worker.wakeupChan }
func (worker *taskWorker) Label() string          { return worker.label }

func (worker *taskWorker) Close() {
	close(worker.wakeupChan)
}

func (s Status) String() string {
	switch s {
	case SLEEPING:
		return "SLEEPING"
	case WORKING:
		return "WORKING"
	case FINISHED:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}
