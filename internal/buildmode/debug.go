//go:build debug || dev

// Package buildmode reports whether the binary was built in a debug
// configuration. Debug builds are produced by `wails dev` (tag dev) and
// `wails build -debug` or `go build -tags debug` (tag debug).
package buildmode

// Debug is true in debug builds.
const Debug = true
