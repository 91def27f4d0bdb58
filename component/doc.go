// Package component defines the lifecycle contract shared by every
// long-lived part of a process and a Registry that starts and stops them
// in a deterministic order.
package component
