// Package version reports the build identity of the gateway binaries.
//
// Version and GitCommit can be stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/relaygate/version.Version=1.2.0" ./cmd/gateway
//
// Otherwise the VCS settings recorded by the Go toolchain are used.
package version
