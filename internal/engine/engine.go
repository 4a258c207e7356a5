// Package engine abstracts the dependency resolver and package builder
// behind the conda procedures. Backends depend only on the Resolver and
// Builder interfaces; the Local implementation in this package works
// against filesystem channels so the binaries are usable end to end
// without network access.
package engine

import (
	"context"

	"pixibuild/internal/build"
)

// Resolver finalizes the dependencies of a rendered output.
type Resolver interface {
	Resolve(ctx context.Context, output *build.Output) (*build.ResolvedDependencies, error)
}

// Builder executes a rendered output and returns the path of the
// produced package archive.
type Builder interface {
	Build(ctx context.Context, output *build.Output) (string, error)
}

// Engine combines resolution and building.
type Engine interface {
	Resolver
	Builder
}
