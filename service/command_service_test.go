package service

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskwing/taskwing/container"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence/memory"
	"github.com/taskwing/taskwing/util"
)

func newCommandFixture() (*CommandService, *memory.Storage) {
	storage := memory.NewStorage()
	c := container.NewContainer()
	c.InitWithStorage(storage)
	return NewCommandService(c), storage
}

func TestCreateCommand(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test plain start":                 testPlainStart,
		"test start with schedule time":    testStartWithScheduleTime,
		"test complement serial":           testComplementSerial,
		"test complement parallel":         testComplementParallel,
		"test complement single day":       testComplementSingleDay,
		"test complement invalid range":    testComplementInvalidRange,
		"test complement start after end":  testComplementStartAfterEnd,
		"test recovery duplicate suppress": testRecoveryDuplicate,
		"test start node closure expands":  testStartNodeClosure,
		"test global params resolved":      testGlobalParamsResolved,
	} {
		t.Run(scenario, fn)
	}
}

func testPlainStart(t *testing.T) {
	svc, storage := newCommandFixture()
	count, err := svc.CreateCommand(CommandBuildRequest{
		CommandType:         model.CMD_START_PROCESS,
		ProcessDefinitionId: 1,
		StartNodeList:       []string{"a", "b"},
		Priority:            model.PRIORITY_HIGH,
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	cmds, err := storage.Commands().FindPending(1)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.Equal(t, "a,b", cmds[0].CommandParam[model.PARAM_START_NODES])
	require.Equal(t, model.PRIORITY_HIGH, cmds[0].Priority)
}

func testStartWithScheduleTime(t *testing.T) {
	svc, storage := newCommandFixture()
	count, err := svc.CreateCommand(CommandBuildRequest{
		CommandType:         model.CMD_SCHEDULER,
		ProcessDefinitionId: 1,
		Schedule:            "2025-06-01 03:00:00",
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	cmds, err := storage.Commands().FindPending(1)
	require.NoError(t, err)
	require.Equal(t, "2025-06-01 03:00:00", util.FormatTime(cmds[0].ScheduleTime))
}

func testComplementSerial(t *testing.T) {
	svc, storage := newCommandFixture()
	count, err := svc.CreateCommand(CommandBuildRequest{
		CommandType:         model.CMD_COMPLEMENT_DATA,
		ProcessDefinitionId: 1,
		Schedule:            "2024-01-01 00:00:00,2024-01-05 00:00:00",
		RunMode:             model.RUN_MODE_SERIAL,
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	cmds, err := storage.Commands().FindPending(1)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.Equal(t, "2024-01-01 00:00:00", cmds[0].CommandParam[model.PARAM_COMPLEMENT_START_DATE])
	require.Equal(t, "2024-01-05 00:00:00", cmds[0].CommandParam[model.PARAM_COMPLEMENT_END_DATE])
}

func testComplementParallel(t *testing.T) {
	svc, storage := newCommandFixture()
	count, err := svc.CreateCommand(CommandBuildRequest{
		CommandType:         model.CMD_COMPLEMENT_DATA,
		ProcessDefinitionId: 1,
		Schedule:            "2024-01-01 00:00:00,2024-01-05 00:00:00",
		RunMode:             model.RUN_MODE_PARALLEL,
	})
	require.NoError(t, err)
	require.Equal(t, 5, count)

	cmds, err := storage.Commands().FindPending(1)
	require.NoError(t, err)
	require.Len(t, cmds, 5)
	for _, cmd := range cmds {
		require.Equal(t, cmd.CommandParam[model.PARAM_COMPLEMENT_START_DATE],
			cmd.CommandParam[model.PARAM_COMPLEMENT_END_DATE])
	}
	require.Equal(t, "2024-01-01 00:00:00", cmds[0].CommandParam[model.PARAM_COMPLEMENT_START_DATE])
	require.Equal(t, "2024-01-05 00:00:00", cmds[4].CommandParam[model.PARAM_COMPLEMENT_START_DATE])
}

func testComplementSingleDay(t *testing.T) {
	svc, _ := newCommandFixture()
	count, err := svc.CreateCommand(CommandBuildRequest{
		CommandType:         model.CMD_COMPLEMENT_DATA,
		ProcessDefinitionId: 1,
		Schedule:            "2024-01-01 00:00:00,2024-01-01 00:00:00",
		RunMode:             model.RUN_MODE_PARALLEL,
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func testComplementInvalidRange(t *testing.T) {
	svc, storage := newCommandFixture()
	_, err := svc.CreateCommand(CommandBuildRequest{
		CommandType:         model.CMD_COMPLEMENT_DATA,
		ProcessDefinitionId: 1,
		Schedule:            "not-a-range",
	})
	require.Error(t, err)

	cmds, err := storage.Commands().FindPending(1)
	require.NoError(t, err)
	require.Empty(t, cmds)
}

func testComplementStartAfterEnd(t *testing.T) {
	svc, storage := newCommandFixture()
	_, err := svc.CreateCommand(CommandBuildRequest{
		CommandType:         model.CMD_COMPLEMENT_DATA,
		ProcessDefinitionId: 1,
		Schedule:            "2024-01-05 00:00:00,2024-01-01 00:00:00",
		RunMode:             model.RUN_MODE_PARALLEL,
	})
	require.Error(t, err)

	cmds, err := storage.Commands().FindPending(1)
	require.NoError(t, err)
	require.Empty(t, cmds)
}

func testRecoveryDuplicate(t *testing.T) {
	svc, storage := newCommandFixture()
	require.NoError(t, svc.CreateRecoveryCommand(model.CMD_REPEAT_RUNNING, 1, 100, 0))

	err := svc.CreateRecoveryCommand(model.CMD_REPEAT_RUNNING, 1, 100, 0)
	require.Error(t, err)

	// a different instance of the same definition is not a duplicate
	require.NoError(t, svc.CreateRecoveryCommand(model.CMD_REPEAT_RUNNING, 1, 101, 0))

	cmds, err := storage.Commands().FindPending(1)
	require.NoError(t, err)
	require.Len(t, cmds, 2)
}

func shellTask(name string, preTasks ...string) model.TaskNode {
	return model.TaskNode{
		Name:     name,
		Type:     "SHELL",
		Params:   map[string]any{"rawScript": "echo"},
		PreTasks: preTasks,
	}
}

func testStartNodeClosure(t *testing.T) {
	svc, storage := newCommandFixture()
	def := &model.ProcessDefinition{
		Name: "etl",
		ProcessData: model.ProcessData{
			Tasks: []model.TaskNode{shellTask("a"), shellTask("b", "a"), shellTask("c", "b")},
		},
	}
	require.NoError(t, storage.ProcessDefinitions().Save(def))

	count, err := svc.CreateCommand(CommandBuildRequest{
		CommandType:         model.CMD_START_PROCESS,
		ProcessDefinitionId: def.Id,
		TaskDependType:      model.TASK_PRE,
		StartNodeList:       []string{"c"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	cmds, err := storage.Commands().FindPending(def.Id)
	require.NoError(t, err)
	nodes := strings.Split(cmds[0].CommandParam[model.PARAM_START_NODES], ",")
	require.ElementsMatch(t, []string{"a", "b", "c"}, nodes)
}

func testGlobalParamsResolved(t *testing.T) {
	svc, storage := newCommandFixture()
	def := &model.ProcessDefinition{
		Name: "etl",
		ProcessData: model.ProcessData{
			Tasks:        []model.TaskNode{shellTask("a")},
			GlobalParams: []model.Property{{Prop: "bizdate", Value: "{$.scheduleTime}"}},
		},
	}
	require.NoError(t, storage.ProcessDefinitions().Save(def))

	count, err := svc.CreateCommand(CommandBuildRequest{
		CommandType:         model.CMD_SCHEDULER,
		ProcessDefinitionId: def.Id,
		Schedule:            "2025-06-01 03:00:00",
	})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	cmds, err := storage.Commands().FindPending(def.Id)
	require.NoError(t, err)
	var resolved []model.Property
	require.NoError(t, json.Unmarshal([]byte(cmds[0].CommandParam[model.PARAM_GLOBAL_PARAMS]), &resolved))
	require.Equal(t, []model.Property{{Prop: "bizdate", Value: "2025-06-01 03:00:00"}}, resolved)
}
