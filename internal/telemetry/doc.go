// Package telemetry streams mission activity off the robot.
//
// A Publisher is both a step.Observer and a mission.RunPublisher. Events are
// queued and sent from a single worker goroutine so a slow broker never
// stalls a step; when the queue is full events are dropped and counted.
//
//	pub := telemetry.NewPublisher(mqttClient, influxClient, robotID, logger)
//	pub.Start(ctx)
//	defer pub.Close()
//
// RemoteStart is a mission.StartGate that opens on a message to
// missioncore/{robot}/command/start.
package telemetry
