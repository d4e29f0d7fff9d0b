// Package api implements the pit-side HTTP API and WebSocket event stream
// for Mission Core.
//
// This package provides:
//   - REST endpoints for run history, lead-time statistics and the bound
//     hardware capabilities
//   - WebSocket hub that relays step events and mission run transitions live
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The Hub is both a step.Observer and a mission.RunPublisher, so the
// controller reports into it directly alongside the MQTT publisher. The REST
// endpoints only read; nothing here can start, stop or steer the robot.
//
// # Graceful Degradation
//
// The server is optional. When it is disabled, or a client is slow, the
// match is unaffected: broadcasts to a full client buffer are dropped.
package api
