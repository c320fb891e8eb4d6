package model

import (
	"strconv"
	"strings"
	"time"
)

type ProcessInstance struct {
	Id                  int64           `json:"id"`
	Name                string          `json:"name"`
	ProcessDefinitionId int64           `json:"processDefinitionId"`
	State               ExecutionStatus `json:"state"`
	CommandType         CommandType     `json:"commandType"`
	ScheduleTime        time.Time       `json:"scheduleTime"`
	StartTime           time.Time       `json:"startTime"`
	EndTime             time.Time       `json:"endTime"`
	GlobalParams        []Property      `json:"globalParams"`
	Priority            Priority        `json:"processInstancePriority"`
	TenantId            int64           `json:"tenantId"`
	WorkerGroupId       int64           `json:"workerGroupId"`
	HistoryCmd          string          `json:"historyCmd"`
	IsSubProcess        bool            `json:"isSubProcess"`
	ParentTaskId        int64           `json:"parentTaskId"`
	ExecutorId          int64           `json:"executorId"`
	RunTimes            int             `json:"runTimes"`
}

// AddHistoryCmd appends a command type to the comma separated history.
func (p *ProcessInstance) AddHistoryCmd(cmdType CommandType) {
	if p.HistoryCmd == "" {
		p.HistoryCmd = string(cmdType)
		return
	}
	p.HistoryCmd = p.HistoryCmd + "," + string(cmdType)
}

func (p *ProcessInstance) HistoryCmds() []CommandType {
	if p.HistoryCmd == "" {
		return nil
	}
	parts := strings.Split(p.HistoryCmd, ",")
	cmds := make([]CommandType, 0, len(parts))
	for _, part := range parts {
		cmds = append(cmds, CommandType(part))
	}
	return cmds
}

type TaskInstance struct {
	Id                int64           `json:"id"`
	Name              string          `json:"name"`
	TaskType          string          `json:"taskType"`
	ProcessInstanceId int64           `json:"processInstanceId"`
	State             ExecutionStatus `json:"state"`
	Host              string          `json:"host"`
	StartTime         time.Time       `json:"startTime"`
	EndTime           time.Time       `json:"endTime"`
	Priority          Priority        `json:"taskInstancePriority"`
	WorkerGroup       string          `json:"workerGroup"`
	LogPath           string          `json:"logPath"`
	RetryTimes        int             `json:"retryTimes"`
	Flag              Flag            `json:"flag"`
}

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
