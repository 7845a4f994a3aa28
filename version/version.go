// Package version holds build metadata injected at link time.
package version

import "runtime"

// Set via -ldflags, e.g.:
//
//	go build -ldflags "-X github.com/jackzampolin/docsmith/version.GitRelease=v0.1.0"
var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
)

// GoInfo is the Go toolchain version the binary was built with.
var GoInfo = runtime.Version()
