// Package bootstrap runs a binary's lifecycle: typed config defaults and
// validation, logger setup, ordered component start, hooks, signal wait and
// graceful shutdown.
package bootstrap
