package task

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/taskwing/taskwing/model"
)

// Validator checks a task node's params for one task type. Executors are
// pluggable, the control plane only knows how to reject bad definitions.
type Validator interface {
	Validate(params map[string]any) error
}

type ValidatorFunc func(params map[string]any) error

func (f ValidatorFunc) Validate(params map[string]any) error {
	return f(params)
}

var mu sync.RWMutex
var validators = map[string]Validator{}

func Register(taskType string, v Validator) {
	mu.Lock()
	defer mu.Unlock()
	validators[strings.ToUpper(taskType)] = v
}

func Validate(node model.TaskNode) error {
	mu.RLock()
	v, ok := validators[strings.ToUpper(node.Type)]
	mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown task type %q", node.Type)
	}
	if node.Name == "" {
		return fmt.Errorf("task name is empty")
	}
	return v.Validate(node.Params)
}

func stringParam(params map[string]any, key string) string {
	v, ok := params[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func init() {
	Register("SHELL", ValidatorFunc(func(params map[string]any) error {
		if stringParam(params, "rawScript") == "" {
			return fmt.Errorf("shell task requires rawScript")
		}
		return nil
	}))
	Register("PYTHON", ValidatorFunc(func(params map[string]any) error {
		if stringParam(params, "rawScript") == "" {
			return fmt.Errorf("python task requires rawScript")
		}
		return nil
	}))
	Register("HTTP", ValidatorFunc(func(params map[string]any) error {
		raw := stringParam(params, "url")
		if raw == "" {
			return fmt.Errorf("http task requires url")
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("http task url invalid: %w", err)
		}
		return nil
	}))
	Register("SQL", ValidatorFunc(func(params map[string]any) error {
		if stringParam(params, "datasource") == "" {
			return fmt.Errorf("sql task requires datasource")
		}
		if stringParam(params, "sql") == "" {
			return fmt.Errorf("sql task requires sql")
		}
		return nil
	}))
	// Script params are compiled up front so a definition with a broken
	// script never reaches a worker.
	Register("SCRIPT", ValidatorFunc(func(params map[string]any) error {
		src := stringParam(params, "expression")
		if src == "" {
			return fmt.Errorf("script task requires expression")
		}
		if _, err := goja.Compile("expression", src, false); err != nil {
			return fmt.Errorf("script does not compile: %w", err)
		}
		return nil
	}))
	Register("SUB_PROCESS", ValidatorFunc(func(params map[string]any) error {
		switch v := params["processDefinitionId"].(type) {
		case float64:
			if v <= 0 {
				return fmt.Errorf("sub process task requires a positive processDefinitionId")
			}
		case int, int64:
		default:
			return fmt.Errorf("sub process task requires processDefinitionId")
		}
		return nil
	}))
}
