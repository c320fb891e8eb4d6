package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskwing/taskwing/model"
	"github.com/taskwing/taskwing/persistence"
)

func TestStorage(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, storage *Storage,
	){
		"test queue lexical order":        testQueueOrder,
		"test queue remove exact":         testQueueRemoveExact,
		"test duplicate command":          testDuplicateCommand,
		"test online update rejected":     testOnlineUpdateRejected,
		"test definition name index":      testDefinitionNameIndex,
		"test latest instances by def":    testLatestInstances,
		"test valid task instance filter": testValidTaskFilter,
		"test online schedules listed":    testOnlineSchedules,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, NewStorage())
		})
	}
}

func testQueueOrder(t *testing.T, storage *Storage) {
	queue := storage.TaskQueue()
	for _, node := range []string{"3_10_2_1", "0_11_2_2", "1_5_0_9"} {
		require.NoError(t, queue.Insert("q", node))
	}
	nodes, err := queue.List("q")
	require.NoError(t, err)
	require.Equal(t, []string{"0_11_2_2", "1_5_0_9", "3_10_2_1"}, nodes)
}

func testQueueRemoveExact(t *testing.T, storage *Storage) {
	queue := storage.TaskQueue()
	require.NoError(t, queue.Insert("q", "1_2_3_4"))

	err := queue.Remove("q", "1_2_0_4")
	_, ok := err.(persistence.NodeNotFoundError)
	require.True(t, ok)

	require.NoError(t, queue.Remove("q", "1_2_3_4"))
	nodes, err := queue.List("q")
	require.NoError(t, err)
	require.Empty(t, nodes)
}

func testDuplicateCommand(t *testing.T, storage *Storage) {
	cmds := storage.Commands()
	first := &model.Command{
		CommandType:         model.CMD_REPEAT_RUNNING,
		ProcessDefinitionId: 1,
		CommandParam:        map[string]string{model.PARAM_RECOVER_PROCESS_ID: "100"},
	}
	require.NoError(t, cmds.InsertIfAbsent(first))

	dup := &model.Command{
		CommandType:         model.CMD_REPEAT_RUNNING,
		ProcessDefinitionId: 1,
		CommandParam:        map[string]string{model.PARAM_RECOVER_PROCESS_ID: "100"},
	}
	err := cmds.InsertIfAbsent(dup)
	_, ok := err.(persistence.DuplicateCommandError)
	require.True(t, ok)

	// a different command type against the same instance is not equivalent
	other := &model.Command{
		CommandType:         model.CMD_RECOVER_SUSPENDED_PROCESS,
		ProcessDefinitionId: 1,
		CommandParam:        map[string]string{model.PARAM_RECOVER_PROCESS_ID: "100"},
	}
	require.NoError(t, cmds.InsertIfAbsent(other))
}

func testOnlineUpdateRejected(t *testing.T, storage *Storage) {
	defs := storage.ProcessDefinitions()
	def := &model.ProcessDefinition{Name: "etl", ReleaseState: model.RELEASE_ONLINE}
	require.NoError(t, defs.Save(def))

	def.Name = "etl2"
	err := defs.Update(def)
	_, ok := err.(persistence.OnlineDefinitionError)
	require.True(t, ok)

	require.NoError(t, defs.UpdateReleaseState(def.Id, model.RELEASE_OFFLINE))
	require.NoError(t, defs.Update(def))
}

func testDefinitionNameIndex(t *testing.T, storage *Storage) {
	defs := storage.ProcessDefinitions()
	def := &model.ProcessDefinition{Name: "etl", ProjectId: 7}
	require.NoError(t, defs.Save(def))

	found, err := defs.FindByName(7, "etl")
	require.NoError(t, err)
	require.Equal(t, def.Id, found.Id)

	_, err = defs.FindByName(8, "etl")
	require.True(t, persistence.IsNotFound(err))
}

func testLatestInstances(t *testing.T, storage *Storage) {
	instances := storage.ProcessInstances()
	for i := 0; i < 5; i++ {
		require.NoError(t, instances.Insert(&model.ProcessInstance{ProcessDefinitionId: 1}))
	}
	require.NoError(t, instances.Insert(&model.ProcessInstance{ProcessDefinitionId: 2}))

	latest, err := instances.FindLatestByDefinition(1, 3)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	// newest first
	require.Greater(t, latest[0].Id, latest[1].Id)
	require.Greater(t, latest[1].Id, latest[2].Id)
}

func testOnlineSchedules(t *testing.T, storage *Storage) {
	schedules := storage.Schedules()
	online := &model.Schedule{Crontab: "0 0 3 * * *", ReleaseState: model.RELEASE_ONLINE}
	require.NoError(t, schedules.Save(online))
	offline := &model.Schedule{Crontab: "0 0 4 * * *"}
	require.NoError(t, schedules.Save(offline))

	found, err := schedules.FindOnline()
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, online.Id, found[0].Id)

	require.NoError(t, schedules.UpdateReleaseState(offline.Id, model.RELEASE_ONLINE))
	found, err = schedules.FindOnline()
	require.NoError(t, err)
	require.Len(t, found, 2)
}

func testValidTaskFilter(t *testing.T, storage *Storage) {
	tasks := storage.TaskInstances()
	require.NoError(t, tasks.Insert(&model.TaskInstance{ProcessInstanceId: 1, Name: "a", Flag: model.FLAG_YES}))
	require.NoError(t, tasks.Insert(&model.TaskInstance{ProcessInstanceId: 1, Name: "a", Flag: model.FLAG_NO}))
	require.NoError(t, tasks.Insert(&model.TaskInstance{ProcessInstanceId: 2, Name: "b", Flag: model.FLAG_YES}))

	valid, err := tasks.FindValidByProcessInstance(1)
	require.NoError(t, err)
	require.Len(t, valid, 1)
	require.Equal(t, model.FLAG_YES, valid[0].Flag)
}
