package models

import "time"

// WOLConfig holds Wake-on-LAN configuration for the host that stores the target tree.
type WOLConfig struct {
	MACAddress    string
	BroadcastIP   string
	PollURL       string        // optional URL to poll until the host answers
	WaitPath      string        // optional path to poll until it exists (e.g. a NAS mount)
	Timeout       time.Duration // max time to wait for the host
	PollInterval  time.Duration // how often to poll
	StabilizeWait time.Duration // wait after the host responds
}

// WOLResult holds the result of a Wake-on-LAN operation.
type WOLResult struct {
	PacketSent   bool
	TargetReady  bool
	WaitDuration time.Duration
	Error        error
}
