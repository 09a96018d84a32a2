// Package logging is the agent's structured logger, a thin layer over
// log/slog.
//
// Every entry carries service=hubsync and the build version. Output is JSON
// unless logging.format is "text", and goes to stdout unless
// logging.output is "stderr".
//
//	logger := logging.New(cfg.Logging, version)
//	hub := logger.With("component", "hubclient")
//	hub.Info("hub connected", "hub_id", offer.HubID)
//
// Attributes named password, token, code, payload or sdp are replaced with
// "[redacted]" so scanned pairing codes and session descriptions stay out
// of log files.
package logging
