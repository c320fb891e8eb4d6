package task

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskwing/taskwing/model"
)

func node(taskType string, params map[string]any) model.TaskNode {
	return model.TaskNode{Name: "t", Type: taskType, Params: params}
}

func TestValidate(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test unknown type":        testUnknownType,
		"test shell":               testShell,
		"test http":                testHttp,
		"test sql":                 testSql,
		"test script":              testScript,
		"test sub process":         testSubProcess,
		"test type case insensity": testTypeCase,
	} {
		t.Run(scenario, fn)
	}
}

func testUnknownType(t *testing.T) {
	require.Error(t, Validate(node("TELEPORT", nil)))
}

func testShell(t *testing.T) {
	require.NoError(t, Validate(node("SHELL", map[string]any{"rawScript": "echo hi"})))
	require.Error(t, Validate(node("SHELL", map[string]any{})))
}

func testHttp(t *testing.T) {
	require.NoError(t, Validate(node("HTTP", map[string]any{"url": "http://example.com/ping"})))
	require.Error(t, Validate(node("HTTP", map[string]any{"url": "not a url"})))
}

func testSql(t *testing.T) {
	require.NoError(t, Validate(node("SQL", map[string]any{"datasource": "dwh", "sql": "select 1"})))
	require.Error(t, Validate(node("SQL", map[string]any{"sql": "select 1"})))
}

func testScript(t *testing.T) {
	require.NoError(t, Validate(node("SCRIPT", map[string]any{"expression": "1 + 2"})))
	require.Error(t, Validate(node("SCRIPT", map[string]any{"expression": "1 +"})))
}

func testSubProcess(t *testing.T) {
	require.NoError(t, Validate(node("SUB_PROCESS", map[string]any{"processDefinitionId": float64(5)})))
	require.Error(t, Validate(node("SUB_PROCESS", map[string]any{})))
}

func testTypeCase(t *testing.T) {
	require.NoError(t, Validate(node("shell", map[string]any{"rawScript": "echo hi"})))
}
