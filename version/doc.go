// Package version exposes build information for demandflow binaries.
//
// Version, commit and build time are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/demandflow/version.Version=0.3.0" ./cmd/flowdemo
//
// Unset values fall back to the module's embedded VCS settings.
package version
