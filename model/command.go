package model

import "time"

// Well known commandParam keys. The runtime consuming the command reads
// the same keys, so they are part of the wire contract.
const PARAM_START_NODES = "StartNodeNameList"
const PARAM_RECOVER_PROCESS_ID = "ProcessInstanceId"
const PARAM_COMPLEMENT_START_DATE = "complementStartDate"
const PARAM_COMPLEMENT_END_DATE = "complementEndDate"
const PARAM_SCHEDULE_TIMEZONE = "scheduleTimezone"
const PARAM_GLOBAL_PARAMS = "globalParams"

type Command struct {
	Id                  int64             `json:"id"`
	CommandType         CommandType       `json:"commandType"`
	ProcessDefinitionId int64             `json:"processDefinitionId"`
	CommandParam        map[string]string `json:"commandParam"`
	TaskDependType      TaskDependType    `json:"taskDependType"`
	FailureStrategy     FailureStrategy   `json:"failureStrategy"`
	WarningType         WarningType       `json:"warningType"`
	WarningGroupId      int64             `json:"warningGroupId"`
	ScheduleTime        time.Time         `json:"scheduleTime"`
	ExecutorId          int64             `json:"executorId"`
	Priority            Priority          `json:"processInstancePriority"`
	WorkerGroupId       int64             `json:"workerGroupId"`
	StartTime           time.Time         `json:"startTime"`
	UpdateTime          time.Time         `json:"updateTime"`
}

// RecoverProcessId returns the process instance id carried by a recovery
// command, zero when the param is absent or malformed.
func (c *Command) RecoverProcessId() int64 {
	return parseInt64(c.CommandParam[PARAM_RECOVER_PROCESS_ID])
}
