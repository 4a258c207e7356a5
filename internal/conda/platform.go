package conda

import (
	"fmt"
	"runtime"
	"strings"
)

// Platform identifies a conda subdir such as "linux-64" or "osx-arm64".
type Platform string

const (
	Linux32          Platform = "linux-32"
	Linux64          Platform = "linux-64"
	LinuxAarch64     Platform = "linux-aarch64"
	LinuxArmV6l      Platform = "linux-armv6l"
	LinuxArmV7l      Platform = "linux-armv7l"
	LinuxPpc64       Platform = "linux-ppc64"
	LinuxPpc64le     Platform = "linux-ppc64le"
	LinuxRiscv64     Platform = "linux-riscv64"
	LinuxS390x       Platform = "linux-s390x"
	Osx64            Platform = "osx-64"
	OsxArm64         Platform = "osx-arm64"
	Win32            Platform = "win-32"
	Win64            Platform = "win-64"
	WinArm64         Platform = "win-arm64"
	EmscriptenWasm32 Platform = "emscripten-wasm32"
	WasiWasm32       Platform = "wasi-wasm32"
	NoArchPlatform   Platform = "noarch"
)

var knownPlatforms = map[Platform]bool{
	Linux32: true, Linux64: true, LinuxAarch64: true, LinuxArmV6l: true,
	LinuxArmV7l: true, LinuxPpc64: true, LinuxPpc64le: true,
	LinuxRiscv64: true, LinuxS390x: true,
	Osx64: true, OsxArm64: true,
	Win32: true, Win64: true, WinArm64: true,
	EmscriptenWasm32: true, WasiWasm32: true,
	NoArchPlatform: true,
}

// ParsePlatform validates a platform string.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !knownPlatforms[p] {
		return "", fmt.Errorf("unknown platform %q", s)
	}
	return p, nil
}

// CurrentPlatform derives the platform for the running process.
func CurrentPlatform() Platform {
	switch runtime.GOOS {
	case "linux":
		switch runtime.GOARCH {
		case "amd64":
			return Linux64
		case "arm64":
			return LinuxAarch64
		case "386":
			return Linux32
		case "arm":
			return LinuxArmV7l
		case "ppc64":
			return LinuxPpc64
		case "ppc64le":
			return LinuxPpc64le
		case "riscv64":
			return LinuxRiscv64
		case "s390x":
			return LinuxS390x
		}
	case "darwin":
		switch runtime.GOARCH {
		case "amd64":
			return Osx64
		case "arm64":
			return OsxArm64
		}
	case "windows":
		switch runtime.GOARCH {
		case "amd64":
			return Win64
		case "386":
			return Win32
		case "arm64":
			return WinArm64
		}
	}
	return Platform(runtime.GOOS + "-" + runtime.GOARCH)
}

// String returns the subdir form of the platform.
func (p Platform) String() string {
	return string(p)
}

// IsWindows reports whether the platform targets Windows.
func (p Platform) IsWindows() bool {
	return strings.HasPrefix(string(p), "win-")
}

// IsOSX reports whether the platform targets macOS.
func (p Platform) IsOSX() bool {
	return strings.HasPrefix(string(p), "osx-")
}

// IsLinux reports whether the platform targets Linux.
func (p Platform) IsLinux() bool {
	return strings.HasPrefix(string(p), "linux-")
}

// IsNoArch reports whether the platform is the architecture-independent
// subdir.
func (p Platform) IsNoArch() bool {
	return p == NoArchPlatform
}
