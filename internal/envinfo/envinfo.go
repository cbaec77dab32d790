// Package envinfo describes the machine and build a benchmark runs on.
package envinfo

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/born-ml/benchmarks/internal/record"
)

// Version is the harness version, set at build time with -ldflags.
var Version = "dev"

// FrameworkVersion is the version of the engine, layers and kernels built
// into this binary. It is set at build time with
//
//	-ldflags "-X github.com/born-ml/benchmarks/internal/envinfo.FrameworkVersion=v0.4.0"
//
// and otherwise follows the main module version.
var FrameworkVersion = ""

// Collect describes the current host. Fields that cannot be read are left empty.
func Collect(ctx context.Context, backend string, threads int) record.EnvironmentInfo {
	info := record.EnvironmentInfo{
		Type:        "native",
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		GoVersion:   runtime.Version(),
		NumCPU:      runtime.NumCPU(),
		Backend:     backend,
		BackendInfo: fmt.Sprintf("threads=%d", threads),
	}
	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if h, err := host.InfoWithContext(ctx); err == nil {
		info.OSVersion = h.PlatformVersion
		if info.OSVersion == "" {
			info.OSVersion = h.KernelVersion
		}
	}
	if name, err := os.Hostname(); err == nil {
		info.Hostname = name
	}
	return info
}

// Versions reports the harness and framework versions of this binary.
func Versions() record.VersionSet {
	bi, _ := debug.ReadBuildInfo()
	return versions(bi, Version, FrameworkVersion)
}

func versions(bi *debug.BuildInfo, harness, framework string) record.VersionSet {
	module := ""
	if bi != nil && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		module = bi.Main.Version
	}
	if harness == "" || harness == "dev" {
		harness = cmp.Or(module, "dev")
	}
	if framework == "" {
		framework = cmp.Or(module, "devel")
	}
	return record.VersionSet{
		FrameworkVersion: framework,
		HarnessVersion:   harness,
		GoVersion:        runtime.Version(),
	}
}
