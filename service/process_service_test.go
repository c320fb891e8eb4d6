package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskwing/taskwing/model"
)

func validDefinition(name string) model.ProcessDefinition {
	return model.ProcessDefinition{
		Name: name,
		ProcessData: model.ProcessData{
			Tasks: []model.TaskNode{
				{Name: "a", Type: "SHELL", Params: map[string]any{"rawScript": "echo a"}},
				{Name: "b", Type: "SHELL", Params: map[string]any{"rawScript": "echo b"}, PreTasks: []string{"a"}},
			},
		},
	}
}

func TestProcessService(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, f *fixture){
		"test save valid definition":   testSaveValid,
		"test save invalid graph":      testSaveInvalidGraph,
		"test update online forbidden": testUpdateOnlineForbidden,
		"test release online":          testReleaseOnline,
		"test sub process ids":         testSubProcessIds,
		"test tree view with runs":     testTreeViewRuns,
		"test gantt for instance":      testGanttInstance,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, newFixture(t))
		})
	}
}

func testSaveValid(t *testing.T, f *fixture) {
	def := validDefinition("etl")
	result := f.process.Save(&def)
	require.True(t, result.Ok())
	require.NotZero(t, def.Id)
	// saved definitions always start offline
	require.Equal(t, model.RELEASE_OFFLINE, def.ReleaseState)
}

func testSaveInvalidGraph(t *testing.T, f *fixture) {
	def := validDefinition("etl")
	def.ProcessData.Tasks[0].PreTasks = []string{"b"}
	result := f.process.Save(&def)
	require.Equal(t, model.PROCESS_GRAPH_HAS_CYCLE, result.Status)
}

func testUpdateOnlineForbidden(t *testing.T, f *fixture) {
	def := validDefinition("etl")
	require.True(t, f.process.Save(&def).Ok())
	require.True(t, f.process.Release(def.Id, model.RELEASE_ONLINE).Ok())

	result := f.process.Update(&def)
	require.Equal(t, model.PROCESS_DEFINE_ONLINE_FORBID_EDIT, result.Status)

	require.True(t, f.process.Release(def.Id, model.RELEASE_OFFLINE).Ok())
	require.True(t, f.process.Update(&def).Ok())
}

func testReleaseOnline(t *testing.T, f *fixture) {
	def := validDefinition("etl")
	require.True(t, f.process.Save(&def).Ok())
	require.True(t, f.process.Release(def.Id, model.RELEASE_ONLINE).Ok())

	stored, result := f.process.FindById(def.Id)
	require.True(t, result.Ok())
	require.Equal(t, model.RELEASE_ONLINE, stored.ReleaseState)

	result = f.process.Release(999, model.RELEASE_ONLINE)
	require.Equal(t, model.PROCESS_DEFINE_NOT_EXIST, result.Status)
}

func testSubProcessIds(t *testing.T, f *fixture) {
	def := validDefinition("parent")
	def.ProcessData.Tasks = append(def.ProcessData.Tasks,
		model.TaskNode{Name: "sub1", Type: "SUB_PROCESS", Params: map[string]any{"processDefinitionId": float64(7)}},
		model.TaskNode{Name: "sub2", Type: "SUB_PROCESS", Params: map[string]any{"processDefinitionId": "8"}},
		model.TaskNode{Name: "plain", Type: "SHELL", Params: map[string]any{"rawScript": "echo"}},
	)
	require.Equal(t, []int64{7, 8}, SubProcessDefinitionIds(&def))
}

func testTreeViewRuns(t *testing.T, f *fixture) {
	def := validDefinition("etl")
	require.True(t, f.process.Save(&def).Ok())

	instance := f.saveInstance(t, model.ProcessInstance{ProcessDefinitionId: def.Id, State: model.STATUS_SUCCESS})
	require.NoError(t, f.storage.TaskInstances().Insert(&model.TaskInstance{
		Name:              "a",
		ProcessInstanceId: instance.Id,
		State:             model.STATUS_SUCCESS,
		Flag:              model.FLAG_YES,
	}))

	root, result := f.process.TreeView(def.Id, 10)
	require.True(t, result.Ok())
	require.Len(t, root.Children, 1)
	a := root.Children[0]
	require.Equal(t, "a", a.Name)
	require.Len(t, a.Instances, 1)
	require.Equal(t, "SUCCESS", a.Instances[0].State)
	require.Len(t, a.Children, 1)
	require.Equal(t, "NOT_RUN", a.Children[0].Instances[0].State)
}

func testGanttInstance(t *testing.T, f *fixture) {
	def := validDefinition("etl")
	require.True(t, f.process.Save(&def).Ok())

	instance := f.saveInstance(t, model.ProcessInstance{ProcessDefinitionId: def.Id, State: model.STATUS_SUCCESS})
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, f.storage.TaskInstances().Insert(&model.TaskInstance{
		Name:              "a",
		ProcessInstanceId: instance.Id,
		State:             model.STATUS_SUCCESS,
		StartTime:         start,
		EndTime:           start.Add(time.Minute),
		Flag:              model.FLAG_YES,
	}))

	rows, result := f.process.Gantt(instance.Id)
	require.True(t, result.Ok())
	require.Len(t, rows, 2)
	require.Equal(t, "a", rows[0].Name)
	require.Equal(t, time.Minute, rows[0].Duration)

	_, result = f.process.Gantt(999)
	require.Equal(t, model.PROCESS_INSTANCE_NOT_EXIST, result.Status)
}
