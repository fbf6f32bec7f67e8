// Package events provides an event system for benchmark phase progress.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventPhaseStart is emitted when the coordinator begins dispatching a phase
	EventPhaseStart EventType = "phase_start"
	// EventHostDispatched is emitted once the command line has been sent to a host
	EventHostDispatched EventType = "host_dispatched"
	// EventHostAcked is emitted when a host's acknowledgement byte arrives
	EventHostAcked EventType = "host_acked"
	// EventHostFailed is emitted when a host cannot be reached or never acknowledges
	EventHostFailed EventType = "host_failed"
	// EventPhaseComplete is emitted after every contacted host acknowledged
	EventPhaseComplete EventType = "phase_complete"
	// EventPhaseAborted is emitted when a host failure aborts the phase
	EventPhaseAborted EventType = "phase_aborted"
)

// Event represents a phase progress event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	PhaseID   string    `json:"phase_id"`
	Host      string    `json:"host,omitempty"`
	Index     int       `json:"index"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	ExperimentSize int    `json:"experiment_size"`
	Hosts          int    `json:"hosts,omitempty"`
	Elapsed        string `json:"elapsed,omitempty"`
	Error          string `json:"error,omitempty"`
}

// NewPhaseStartEvent creates a phase start event
func NewPhaseStartEvent(phaseID string, experimentSize, hosts int) Event {
	return Event{
		Type:      EventPhaseStart,
		Timestamp: time.Now(),
		PhaseID:   phaseID,
		Index:     -1,
		Data: EventData{
			ExperimentSize: experimentSize,
			Hosts:          hosts,
		},
	}
}

// NewHostDispatchedEvent creates a host dispatched event
func NewHostDispatchedEvent(phaseID string, index int, host string) Event {
	return Event{
		Type:      EventHostDispatched,
		Timestamp: time.Now(),
		PhaseID:   phaseID,
		Host:      host,
		Index:     index,
	}
}

// NewHostAckedEvent creates a host acked event
func NewHostAckedEvent(phaseID string, index int, host string, elapsed time.Duration) Event {
	return Event{
		Type:      EventHostAcked,
		Timestamp: time.Now(),
		PhaseID:   phaseID,
		Host:      host,
		Index:     index,
		Data: EventData{
			Elapsed: elapsed.String(),
		},
	}
}

// NewHostFailedEvent creates a host failed event
func NewHostFailedEvent(phaseID string, index int, host string, err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventHostFailed,
		Timestamp: time.Now(),
		PhaseID:   phaseID,
		Host:      host,
		Index:     index,
		Data: EventData{
			Error: errMsg,
		},
	}
}

// NewPhaseCompleteEvent creates a phase complete event
func NewPhaseCompleteEvent(phaseID string, experimentSize, hosts int, elapsed time.Duration) Event {
	return Event{
		Type:      EventPhaseComplete,
		Timestamp: time.Now(),
		PhaseID:   phaseID,
		Index:     -1,
		Data: EventData{
			ExperimentSize: experimentSize,
			Hosts:          hosts,
			Elapsed:        elapsed.String(),
		},
	}
}

// NewPhaseAbortedEvent creates a phase aborted event
func NewPhaseAbortedEvent(phaseID string, experimentSize int, err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventPhaseAborted,
		Timestamp: time.Now(),
		PhaseID:   phaseID,
		Index:     -1,
		Data: EventData{
			ExperimentSize: experimentSize,
			Error:          errMsg,
		},
	}
}
