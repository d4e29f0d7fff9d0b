// Package mqtt connects Mission Core to an MQTT broker for live telemetry
// and remote start.
//
// The robot announces itself on a retained status topic; a Last Will marks
// it offline if the process dies. Mission run transitions and step events
// are published as JSON under missioncore/{robot}/..., see Topics.
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Robot.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(client.Topics().StepEvent(), event, false)
//
// Telemetry is best effort: the match continues when the broker is
// unreachable.
package mqtt
