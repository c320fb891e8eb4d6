package model

type ExecutionStatus int

const STATUS_SUBMITTED ExecutionStatus = 0
const STATUS_RUNNING ExecutionStatus = 1
const STATUS_READY_PAUSE ExecutionStatus = 2
const STATUS_PAUSE ExecutionStatus = 3
const STATUS_READY_STOP ExecutionStatus = 4
const STATUS_STOP ExecutionStatus = 5
const STATUS_FAILURE ExecutionStatus = 6
const STATUS_SUCCESS ExecutionStatus = 7
const STATUS_NEED_FAULT_TOLERANCE ExecutionStatus = 8
const STATUS_KILL ExecutionStatus = 9
const STATUS_WAITING_THREAD ExecutionStatus = 10

var statusNames = map[ExecutionStatus]string{
	STATUS_SUBMITTED:            "SUBMITTED",
	STATUS_RUNNING:              "RUNNING",
	STATUS_READY_PAUSE:          "READY_PAUSE",
	STATUS_PAUSE:                "PAUSE",
	STATUS_READY_STOP:           "READY_STOP",
	STATUS_STOP:                 "STOP",
	STATUS_FAILURE:              "FAILURE",
	STATUS_SUCCESS:              "SUCCESS",
	STATUS_NEED_FAULT_TOLERANCE: "NEED_FAULT_TOLERANCE",
	STATUS_KILL:                 "KILL",
	STATUS_WAITING_THREAD:       "WAITING_THREAD",
}

func (s ExecutionStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsRunning covers every in-flight state the runtime may still be driving.
func (s ExecutionStatus) IsRunning() bool {
	return s == STATUS_SUBMITTED || s == STATUS_RUNNING || s == STATUS_WAITING_THREAD
}

func (s ExecutionStatus) IsFinished() bool {
	return s == STATUS_SUCCESS || s == STATUS_FAILURE || s == STATUS_STOP || s == STATUS_KILL
}

func (s ExecutionStatus) IsFailure() bool {
	return s == STATUS_FAILURE
}

func (s ExecutionStatus) IsPaused() bool {
	return s == STATUS_PAUSE
}

func (s ExecutionStatus) IsCancelled() bool {
	return s == STATUS_STOP || s == STATUS_KILL
}
