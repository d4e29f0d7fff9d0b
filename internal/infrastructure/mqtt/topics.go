package mqtt

import "fmt"

// TopicPrefix is the root of every topic this module publishes or
// subscribes to.
const TopicPrefix = "missioncore"

// Topics builds the topic hierarchy for one robot:
//
//	missioncore/{robot}/status                      retained online/offline
//	missioncore/{robot}/mission/{mission}/status    mission run transitions
//	missioncore/{robot}/step/event                  step start/finish events
//	missioncore/{robot}/command/start               remote start signal
type Topics struct {
	Robot string
}

// Status is the retained robot availability topic, also used for the LWT.
func (t Topics) Status() string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, t.Robot)
}

// MissionStatus is the topic for run transitions of one mission.
func (t Topics) MissionStatus(mission string) string {
	return fmt.Sprintf("%s/%s/mission/%s/status", TopicPrefix, t.Robot, mission)
}

// StepEvent is the topic for step lifecycle events.
func (t Topics) StepEvent() string {
	return fmt.Sprintf("%s/%s/step/event", TopicPrefix, t.Robot)
}

// StartCommand is the topic a remote operator publishes to start the match.
func (t Topics) StartCommand() string {
	return fmt.Sprintf("%s/%s/command/start", TopicPrefix, t.Robot)
}

// AllMissionStatus matches the status topic of every mission.
func (t Topics) AllMissionStatus() string {
	return fmt.Sprintf("%s/%s/mission/+/status", TopicPrefix, t.Robot)
}

// All matches every topic of the robot.
func (t Topics) All() string {
	return fmt.Sprintf("%s/%s/#", TopicPrefix, t.Robot)
}
