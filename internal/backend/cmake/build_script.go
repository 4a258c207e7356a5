package cmake

import (
	"strings"
	"text/template"
)

// The build script configures out of tree with Ninja and installs into
// the prefix. The source directory is baked in because the recipe
// carries no source entry.
const buildScriptTemplate = `cmake -GNinja -DCMAKE_BUILD_TYPE=Release "-DCMAKE_INSTALL_PREFIX={{ .Prefix }}" "{{ .SourceDir }}"
ninja install`

var scriptTemplate = template.Must(template.New("build_script").Parse(buildScriptTemplate))

type scriptContext struct {
	Prefix    string
	SourceDir string
}

// buildScript renders the ordered command list for the build phase.
func buildScript(sourceDir string, windows bool) []string {
	prefix := "$PREFIX"
	if windows {
		prefix = "%PREFIX%"
	}

	var buf strings.Builder
	if err := scriptTemplate.Execute(&buf, scriptContext{Prefix: prefix, SourceDir: sourceDir}); err != nil {
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
