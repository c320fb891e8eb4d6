package util

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskwing/taskwing/model"
)

func TestResolveString(t *testing.T) {
	context := map[string]any{
		"scheduleTime": "2024-01-01 00:00:00",
		"command": map[string]any{
			"executor": "alice",
		},
	}

	for scenario, fn := range map[string]func(t *testing.T){
		"test plain value untouched": func(t *testing.T) {
			require.Equal(t, "static", ResolveString("static", context))
		},
		"test simple token": func(t *testing.T) {
			require.Equal(t, "run at 2024-01-01 00:00:00",
				ResolveString("run at {$.scheduleTime}", context))
		},
		"test nested token": func(t *testing.T) {
			require.Equal(t, "alice", ResolveString("{$.command.executor}", context))
		},
		"test unresolvable token": func(t *testing.T) {
			require.Equal(t, "", ResolveString("{$.missing}", context))
		},
		"test non jsonpath braces untouched": func(t *testing.T) {
			require.Equal(t, "a {literal} b", ResolveString("a {literal} b", context))
		},
	} {
		t.Run(scenario, fn)
	}
}

func TestResolveGlobalParams(t *testing.T) {
	globals := []model.Property{
		{Prop: "bizdate", Value: "{$.scheduleTime}"},
		{Prop: "static", Value: "fixed"},
	}
	resolved := ResolveGlobalParams(globals, map[string]any{"scheduleTime": "2024-06-01 00:00:00"})
	require.Equal(t, []model.Property{
		{Prop: "bizdate", Value: "2024-06-01 00:00:00"},
		{Prop: "static", Value: "fixed"},
	}, resolved)
}
