// Package logger is the structured logger shared by every relaygate
// component, built on zerolog.
//
//	log := logger.New(&cfg, "api-gateway").WithComponent("prober")
//	log.Warn("Probe failed", logger.Fields(logger.FieldAddress, addr))
//
// JSON is meant for production; the console format prefixes each line with
// the service and level tags. WithContext picks up the request id, the
// authenticated user and the active trace id.
package logger
