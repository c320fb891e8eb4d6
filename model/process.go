package model

import "time"

type TaskNode struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Params      map[string]any `json:"params"`
	PreTasks    []string       `json:"preTasks"`
	Description string         `json:"description"`
	RunFlag     string         `json:"runFlag"`
	Priority    Priority       `json:"taskInstancePriority"`
	WorkerGroup string         `json:"workerGroup"`
}

// TaskNodeRelation is a directed edge derived from a node's preTasks list.
type TaskNodeRelation struct {
	StartNode string `json:"startNode"`
	EndNode   string `json:"endNode"`
}

type Property struct {
	Prop  string `json:"prop"`
	Value string `json:"value"`
}

// ProcessData is the JSON payload of a definition: the task list plus globals.
type ProcessData struct {
	Tasks        []TaskNode `json:"tasks"`
	GlobalParams []Property `json:"globalParams"`
}

type ProcessDefinition struct {
	Id           int64        `json:"id"`
	Name         string       `json:"name"`
	Version      int          `json:"version"`
	ProjectId    int64        `json:"projectId"`
	ReleaseState ReleaseState `json:"releaseState"`
	ProcessData  ProcessData  `json:"processData"`
	Receivers    []string     `json:"receivers"`
	ReceiversCc  []string     `json:"receiversCc"`
	TenantId     int64        `json:"tenantId"`
	UserId       int64        `json:"userId"`
	CreateTime   time.Time    `json:"createTime"`
	UpdateTime   time.Time    `json:"updateTime"`
}

type Schedule struct {
	Id                  int64           `json:"id"`
	ProjectId           int64           `json:"projectId"`
	ProcessDefinitionId int64           `json:"processDefinitionId"`
	Crontab             string          `json:"crontab"`
	StartTime           time.Time       `json:"startTime"`
	EndTime             time.Time       `json:"endTime"`
	ReleaseState        ReleaseState    `json:"releaseState"`
	FailureStrategy     FailureStrategy `json:"failureStrategy"`
	WarningType         WarningType     `json:"warningType"`
	WarningGroupId      int64           `json:"warningGroupId"`
	Priority            Priority        `json:"processInstancePriority"`
	WorkerGroupId       int64           `json:"workerGroupId"`
	UserId              int64           `json:"userId"`
}

type Tenant struct {
	Id      int64  `json:"id"`
	Code    string `json:"tenantCode"`
	Name    string `json:"tenantName"`
	QueueId int64  `json:"queueId"`
}
