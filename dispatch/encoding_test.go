package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskwing/taskwing/model"
)

func TestTaskNodeID(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"test encode":             testEncode,
		"test round trip":         testRoundTrip,
		"test malformed rejected": testMalformed,
	} {
		t.Run(scenario, fn)
	}
}

func testEncode(t *testing.T) {
	node := TaskNodeID(model.PRIORITY_HIGH, 100, model.PRIORITY_MEDIUM, 555)
	require.Equal(t, "1_100_2_555", node)
}

func testRoundTrip(t *testing.T) {
	node := TaskNodeID(model.PRIORITY_HIGHEST, 42, model.PRIORITY_LOWEST, 7)
	key, err := ParseTaskNodeID(node)
	require.NoError(t, err)
	require.Equal(t, TaskNodeKey{
		ProcessPriority:   model.PRIORITY_HIGHEST,
		ProcessInstanceId: 42,
		TaskPriority:      model.PRIORITY_LOWEST,
		TaskInstanceId:    7,
	}, key)
}

func testMalformed(t *testing.T) {
	for _, node := range []string{"", "1_2_3", "1_2_3_4_5", "a_2_3_4", "1_-2_3_4"} {
		_, err := ParseTaskNodeID(node)
		require.Error(t, err, node)
	}
}
