package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"pixibuild/internal/errors"
)

// TemporaryRenderedRecipe is the rendered recipe file an engine operation
// runs against. The file exists for the whole operation; it is removed
// only when the operation succeeds, and kept for inspection when it
// fails.
type TemporaryRenderedRecipe struct {
	path string
}

// NewTemporaryRenderedRecipe renders the output's recipe into a uniquely
// named file inside the work directory.
func NewTemporaryRenderedRecipe(output *Output) (*TemporaryRenderedRecipe, error) {
	data, err := output.Recipe.Render()
	if err != nil {
		return nil, errors.Wrap(errors.ArtifactIO, "failed to render recipe", err)
	}

	workDir := output.Configuration.Directories.WorkDir
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, errors.Wrap(errors.ArtifactIO,
			fmt.Sprintf("failed to create work directory %s", workDir), err)
	}

	path := filepath.Join(workDir, fmt.Sprintf("recipe-%s.yaml", uuid.New().String()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, errors.Wrap(errors.ArtifactIO,
			fmt.Sprintf("failed to write rendered recipe %s", path), err)
	}
	return &TemporaryRenderedRecipe{path: path}, nil
}

// Path returns the location of the rendered recipe, also valid after a
// failed operation so callers can report it.
func (t *TemporaryRenderedRecipe) Path() string {
	return t.path
}

// WithRecipe runs fn with the rendered recipe in place. When fn succeeds
// the file is removed; when fn fails, the error passes through unchanged
// and the file stays behind.
func (t *TemporaryRenderedRecipe) WithRecipe(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	if err := os.Remove(t.path); err != nil {
		return errors.Wrap(errors.ArtifactIO,
			fmt.Sprintf("failed to remove rendered recipe %s", t.path), err)
	}
	return nil
}
