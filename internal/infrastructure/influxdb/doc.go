// Package influxdb records step and mission timings in InfluxDB v2.
//
// Two measurements are written, both tagged with the robot ID:
//
//	step_duration  tags kind,name           fields duration_ms,failed
//	mission_run    tags mission,kind,status fields duration_ms,lead_ms
//
// Comparing mission_run durations across matches shows how much each
// mission varies between runs. Writes are batched and never block the
// mission; a nil or closed Client drops points silently.
package influxdb
