package cmake

import (
	"pixibuild/internal/conda"
)

// DefaultCompiler returns the conda compiler package stem for a language
// on a target platform. Languages other than c and cxx map to
// themselves, except fortran which is gfortran everywhere. An empty
// result means no compiler package is required.
func DefaultCompiler(platform conda.Platform, language string) string {
	switch language {
	case "fortran":
		return "gfortran"
	case "c", "cxx":
	default:
		return language
	}

	switch {
	case platform.IsWindows():
		return "vs2017"
	case platform.IsOSX():
		if language == "c" {
			return "clang"
		}
		return "clangxx"
	case platform == conda.EmscriptenWasm32:
		return "emscripten"
	default:
		if language == "c" {
			return "gcc"
		}
		return "gxx"
	}
}
