// Package sim provides in-process stand-ins for the hardware capabilities.
//
// The simulated Device dead-reckons its drive loops at a fixed tick and
// records every call, so dry runs on a workstation log the same command
// stream a robot would receive. Tests use the recordings to assert on
// motion handoffs (how many stops, which ramps were reset) and inject
// faults with FailNext.
package sim
