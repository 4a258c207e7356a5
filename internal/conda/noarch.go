package conda

// NoArch describes whether a package is architecture-independent and how.
type NoArch string

const (
	// NoArchNone marks a platform-specific package.
	NoArchNone NoArch = ""
	// NoArchPython marks a pure-Python package installable on any platform.
	NoArchPython NoArch = "python"
	// NoArchGeneric marks a platform-independent package with no special
	// install-time handling.
	NoArchGeneric NoArch = "generic"
)

// IsNone reports whether the package is platform-specific.
func (n NoArch) IsNone() bool {
	return n == NoArchNone
}

// String returns the wire form ("python", "generic", or "").
func (n NoArch) String() string {
	return string(n)
}
