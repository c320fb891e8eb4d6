package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
	"github.com/taskwing/taskwing/model"
)

var tokenPattern = regexp.MustCompile(`\{(.*?)\}`)

// ResolveGlobalParams substitutes {$.path} tokens in global parameter
// values against the given context, typically the schedule time and the
// command params of the run being built. Unresolvable tokens resolve to the
// empty string rather than failing the run.
func ResolveGlobalParams(globals []model.Property, context map[string]any) []model.Property {
	resolved := make([]model.Property, 0, len(globals))
	for _, prop := range globals {
		resolved = append(resolved, model.Property{
			Prop:  prop.Prop,
			Value: ResolveString(prop.Value, context),
		})
	}
	return resolved
}

// ResolveString replaces every {$.path} token in value looked up against
// context. Tokens not starting with $ are left untouched.
func ResolveString(value string, context map[string]any) string {
	tokens := tokenPattern.FindAllString(value, -1)
	if len(tokens) == 0 {
		return value
	}
	out := value
	for _, token := range tokens {
		expr := strings.TrimSuffix(strings.TrimPrefix(token, "{"), "}")
		if !strings.HasPrefix(expr, "$") {
			continue
		}
		resolved, err := jsonpath.JsonPathLookup(context, expr)
		if err != nil {
			resolved = ""
		}
		out = strings.ReplaceAll(out, token, fmt.Sprintf("%v", resolved))
	}
	return out
}
