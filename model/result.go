package model

import "fmt"

// Status codes surfaced to the API layer. Every public service operation
// reports one of these instead of leaking raw errors past the boundary.
type Status int

const SUCCESS Status = 0
const INTERNAL_ERROR Status = 10000
const PROCESS_DEFINE_NOT_EXIST Status = 10001
const PROCESS_DEFINE_NOT_RELEASE Status = 10002
const PROCESS_INSTANCE_NOT_EXIST Status = 10003
const PROCESS_INSTANCE_STATE_ERROR Status = 10004
const PROCESS_INSTANCE_ALREADY_CHANGED Status = 10005
const DUPLICATE_COMMAND Status = 10006
const TENANT_NOT_SUITABLE Status = 10007
const PROCESS_GRAPH_HAS_CYCLE Status = 10008
const TASK_NODE_INVALID Status = 10009
const SCHEDULE_NOT_EXIST Status = 10010
const SCHEDULE_CRON_INVALID Status = 10011
const SCHEDULE_TIME_RANGE_INVALID Status = 10012
const PROCESS_DEFINE_ONLINE_FORBID_EDIT Status = 10013
const PROCESS_INSTANCE_NOT_FINISHED Status = 10014

type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

func OkResult() Result {
	return Result{Status: SUCCESS, Message: "success"}
}

func ErrResult(status Status, format string, args ...any) Result {
	return Result{Status: status, Message: fmt.Sprintf(format, args...)}
}

func (r Result) Ok() bool {
	return r.Status == SUCCESS
}
