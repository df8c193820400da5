// Package template renders Go text/template expressions embedded in stage configuration.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/dukex/stagerun/pkg/protocol"
)

// StageData builds the data available to templates of a stage config.
func StageData(env protocol.Environment, stageOutputDir string) map[string]any {
	return map[string]any{
		"project_root_dir": env.ProjectRootDir(),
		"output_dir":       env.OutputDir(),
		"stage_output_dir": stageOutputDir,
		"env":              getEnvVars(),
	}
}

// NeedsTemplating reports whether input contains a template action.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// RenderConfig returns a copy of config with every templated string rendered.
// Nested maps and slices are walked; other values are copied as is.
func RenderConfig(config map[string]any, data any) (map[string]any, error) {
	if config == nil {
		return nil, nil
	}

	rendered, err := renderValue(config, data)
	if err != nil {
		return nil, err
	}

	return rendered.(map[string]any), nil
}

func renderValue(value any, data any) (any, error) {
	switch v := value.(type) {
	case string:
		if !NeedsTemplating(v) {
			return v, nil
		}

		return Render(v, data)
	case map[string]any:
		out := make(map[string]any, len(v))

		for key, item := range v {
			rendered, err := renderValue(item, data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}

			out[key] = rendered
		}

		return out, nil
	case []any:
		out := make([]any, len(v))

		for i, item := range v {
			rendered, err := renderValue(item, data)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}

			out[i] = rendered
		}

		return out, nil
	default:
		return value, nil
	}
}

// Render executes templateStr against data. Results that look like JSON,
// numbers or booleans are decoded into the matching Go value.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("stage").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"join": filepath.Join,
			"base": filepath.Base,
			"dir":  filepath.Dir,
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return nil, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}
