package model

import "strings"

type CommandType string

const CMD_START_PROCESS CommandType = "START_PROCESS"
const CMD_SCHEDULER CommandType = "SCHEDULER"
const CMD_COMPLEMENT_DATA CommandType = "COMPLEMENT_DATA"
const CMD_REPEAT_RUNNING CommandType = "REPEAT_RUNNING"
const CMD_RECOVER_SUSPENDED_PROCESS CommandType = "RECOVER_SUSPENDED_PROCESS"
const CMD_START_FAILURE_TASK_PROCESS CommandType = "START_FAILURE_TASK_PROCESS"
const CMD_RECOVER_TOLERANCE_FAULT CommandType = "RECOVER_TOLERANCE_FAULT_PROCESS"
const CMD_PAUSE CommandType = "PAUSE"
const CMD_STOP CommandType = "STOP"

type ReleaseState int

const RELEASE_OFFLINE ReleaseState = 0
const RELEASE_ONLINE ReleaseState = 1

type RunMode string

const RUN_MODE_SERIAL RunMode = "RUN_MODE_SERIAL"
const RUN_MODE_PARALLEL RunMode = "RUN_MODE_PARALLEL"

func ToRunMode(rm string) RunMode {
	if strings.EqualFold(rm, string(RUN_MODE_PARALLEL)) {
		return RUN_MODE_PARALLEL
	}
	return RUN_MODE_SERIAL
}

// Priority is an ordinal, lowest value means most urgent.
type Priority int

const PRIORITY_HIGHEST Priority = 0
const PRIORITY_HIGH Priority = 1
const PRIORITY_MEDIUM Priority = 2
const PRIORITY_LOW Priority = 3
const PRIORITY_LOWEST Priority = 4

type FailureStrategy string

const FAILURE_STRATEGY_END FailureStrategy = "END"
const FAILURE_STRATEGY_CONTINUE FailureStrategy = "CONTINUE"

type WarningType string

const WARNING_TYPE_NONE WarningType = "NONE"
const WARNING_TYPE_SUCCESS WarningType = "SUCCESS"
const WARNING_TYPE_FAILURE WarningType = "FAILURE"
const WARNING_TYPE_ALL WarningType = "ALL"

type Flag int

const FLAG_NO Flag = 0
const FLAG_YES Flag = 1

type TaskDependType string

const TASK_PRE TaskDependType = "TASK_PRE"
const TASK_POST TaskDependType = "TASK_POST"
const TASK_ONLY TaskDependType = "TASK_ONLY"

type UserType string

const USER_TYPE_ADMIN UserType = "ADMIN_USER"
const USER_TYPE_GENERAL UserType = "GENERAL_USER"
