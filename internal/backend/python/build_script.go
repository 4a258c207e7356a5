package python

import (
	"strings"
	"text/template"
)

// The build script installs the project from SRC_DIR into the prefix
// without touching dependencies; those are provided by the host
// environment.
const buildScriptTemplate = `{{ if eq .Installer "uv" -}}
uv pip install --no-deps --no-build-isolation --force-reinstall -v {{ .SourceDir }}
{{- else -}}
python -m pip install --ignore-installed --no-deps --no-build-isolation -vv {{ .SourceDir }}
{{- end }}`

var scriptTemplate = template.Must(template.New("build_script").Parse(buildScriptTemplate))

type scriptContext struct {
	Installer string
	SourceDir string
}

// buildScript renders the ordered command list for the build phase.
func buildScript(installer string, windows bool) []string {
	sourceDir := `"$SRC_DIR"`
	if windows {
		sourceDir = `"%SRC_DIR%"`
	}

	var buf strings.Builder
	if err := scriptTemplate.Execute(&buf, scriptContext{Installer: installer, SourceDir: sourceDir}); err != nil {
		// The template is static and the context is a value struct.
		panic(err)
	}

	lines := strings.Split(buf.String(), "\n")
	commands := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			commands = append(commands, trimmed)
		}
	}
	return commands
}
