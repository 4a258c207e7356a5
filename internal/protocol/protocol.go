// Package protocol defines the build backend protocol: the wire types
// exchanged with the frontend and the interfaces an ecosystem backend
// implements. Field names on the wire are camelCase.
package protocol

import (
	"context"
)

// Method names of the protocol procedures.
const (
	MethodInitialize       = "initialize"
	MethodCondaGetMetadata = "conda/getMetadata"
	MethodCondaBuild       = "conda/build"
)

// FrontendCapabilities announces what the connecting frontend supports.
// Currently empty; present so the handshake shape is stable.
type FrontendCapabilities struct{}

// BackendCapabilities announces which procedures the backend provides.
type BackendCapabilities struct {
	ProvidesCondaMetadata bool `json:"providesCondaMetadata,omitempty"`
	ProvidesCondaBuild    bool `json:"providesCondaBuild,omitempty"`
}

// InitializeParams starts a session for one project manifest.
type InitializeParams struct {
	// ManifestPath locates the project manifest to build from
	ManifestPath string `json:"manifestPath"`

	// Capabilities of the connecting frontend
	Capabilities FrontendCapabilities `json:"capabilities"`

	// CacheDirectory is an optional durable cache location
	CacheDirectory string `json:"cacheDirectory,omitempty"`
}

// InitializeResult is the backend's half of the handshake.
type InitializeResult struct {
	Capabilities BackendCapabilities `json:"capabilities"`
}

// ChannelConfiguration tells the backend how to resolve bare channel
// names.
type ChannelConfiguration struct {
	// BaseURL is the alias every bare channel name is joined to
	BaseURL string `json:"baseUrl"`
}

// VirtualPackage describes a system capability such as __glibc.
type VirtualPackage struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	BuildString string `json:"buildString"`
}

// PlatformAndVirtualPackages pairs a platform with the virtual packages
// available on it.
type PlatformAndVirtualPackages struct {
	Platform        string           `json:"platform"`
	VirtualPackages []VirtualPackage `json:"virtualPackages,omitempty"`
}

// CondaMetadataParams requests the metadata of the packages a project
// would produce.
type CondaMetadataParams struct {
	TargetPlatform       string                      `json:"targetPlatform,omitempty"`
	ChannelBaseUrls      []string                    `json:"channelBaseUrls,omitempty"`
	ChannelConfiguration ChannelConfiguration        `json:"channelConfiguration"`
	BuildPlatform        *PlatformAndVirtualPackages `json:"buildPlatform,omitempty"`
	HostPlatform         *PlatformAndVirtualPackages `json:"hostPlatform,omitempty"`

	// WorkDirectory is the request-scoped scratch space
	WorkDirectory string `json:"workDirectory"`
}

// CondaPackageMetadata describes one resolvable package output. Results
// carry yaml tags besides the wire tags because the CLI prints them as
// YAML with the same key casing.
type CondaPackageMetadata struct {
	Name          string   `json:"name" yaml:"name"`
	Version       string   `json:"version" yaml:"version"`
	Build         string   `json:"build" yaml:"build"`
	BuildNumber   int      `json:"buildNumber" yaml:"buildNumber"`
	Subdir        string   `json:"subdir" yaml:"subdir"`
	Depends       []string `json:"depends,omitempty" yaml:"depends,omitempty"`
	Constraints   []string `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	License       string   `json:"license,omitempty" yaml:"license,omitempty"`
	LicenseFamily string   `json:"licenseFamily,omitempty" yaml:"licenseFamily,omitempty"`
	NoArch        string   `json:"noarch,omitempty" yaml:"noarch,omitempty"`
}

// CondaMetadataResult carries the package records and the source globs
// whose changes invalidate them.
type CondaMetadataResult struct {
	Packages   []CondaPackageMetadata `json:"packages" yaml:"packages"`
	InputGlobs []string               `json:"inputGlobs,omitempty" yaml:"inputGlobs,omitempty"`
}

// CondaOutputIdentifier selects a subset of outputs to build.
type CondaOutputIdentifier struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
	Build   string `json:"build,omitempty"`
	Subdir  string `json:"subdir,omitempty"`
}

// CondaBuildParams requests an actual package build.
type CondaBuildParams struct {
	ChannelBaseUrls              []string                    `json:"channelBaseUrls,omitempty"`
	ChannelConfiguration         ChannelConfiguration        `json:"channelConfiguration"`
	BuildPlatformVirtualPackages []VirtualPackage            `json:"buildPlatformVirtualPackages,omitempty"`
	HostPlatform                 *PlatformAndVirtualPackages `json:"hostPlatform,omitempty"`
	Outputs                      []CondaOutputIdentifier     `json:"outputs,omitempty"`

	// WorkDirectory is the request-scoped scratch space
	WorkDirectory string `json:"workDirectory"`
}

// CondaBuiltPackage describes one built archive.
type CondaBuiltPackage struct {
	// OutputFile is the path of the built package archive
	OutputFile string `json:"outputFile" yaml:"outputFile"`

	// InputGlobs are the source patterns that feed the package
	InputGlobs []string `json:"inputGlobs" yaml:"inputGlobs"`

	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Build   string `json:"build" yaml:"build"`
	Subdir  string `json:"subdir" yaml:"subdir"`
}

// CondaBuildResult carries the built packages.
type CondaBuildResult struct {
	Packages []CondaBuiltPackage `json:"packages" yaml:"packages"`
}

// Backend handles the conda procedures for one initialized project.
// Implementations are safe for concurrent use: every call constructs its
// state from the immutable manifest.
type Backend interface {
	GetCondaMetadata(ctx context.Context, params *CondaMetadataParams) (*CondaMetadataResult, error)
	BuildConda(ctx context.Context, params *CondaBuildParams) (*CondaBuildResult, error)
}

// Factory builds a Backend for a manifest during initialize.
type Factory interface {
	Initialize(ctx context.Context, params *InitializeParams) (Backend, *InitializeResult, error)
}
