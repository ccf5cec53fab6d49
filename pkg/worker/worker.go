package worker

import "github.com/dailypy/mediaflow/pkg/logger"

var workerLogger = logger.Get("Worker")

type WorkerStatus int

const (
	Idle WorkerStatus = iota
	Working
	Finished
)

// TaskFn is executed repeatedly by a worker. Returning false indicates
// that there was no work available and the worker should exit. A returned
// error is logged but does not stop the worker.
type TaskFn func(Worker) (bool, error)

type Worker interface {
	Start()
	Status() WorkerStatus
	Label() string
}

type taskWorker struct {
	label         string
	task          TaskFn
	currentStatus WorkerStatus
}

func NewWorker(label string, task TaskFn) *taskWorker {
	return &taskWorker{label, task, Idle}
}

// Start runs the workers task until the task reports
// that no work remains. Start blocks until that happens.
func (worker *taskWorker) Start() {
	workerLogger.Emit(logger.VERBOSE, "Starting worker %s\n", worker.label)
	worker.currentStatus = Working
	for {
		workDone, err := worker.task(worker)
		if err != nil {
			workerLogger.Emit(logger.ERROR, "Worker %s has reported an error(%T): %v\n", worker.label, err, err.Error())
		}

		if !workDone {
			break
		}
	}

	worker.currentStatus = Finished
	workerLogger.Emit(logger.VERBOSE, "Worker %s has stopped\n", worker.label)
}

// Status returns the current status of this worker
func (worker *taskWorker) Status() WorkerStatus {
	return worker.currentStatus
}

// Label returns the label for this worker
func (worker *taskWorker) Label() string {
	return worker.label
}
