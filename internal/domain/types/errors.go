package types

import "errors"

var (
	// ErrInvalidRequest - malformed input, rejected before any state mutation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAlreadyAssigned - lost the acceptance race. Expected under concurrency,
	// not a fault.
	ErrAlreadyAssigned = errors.New("ride already assigned")

	// ErrNotAssignedDriver - caller is not the driver assigned to the ride.
	ErrNotAssignedDriver = errors.New("driver is not assigned to this ride")

	// ErrInvalidTransition - requested transition is not an edge of the ride
	// state machine graph.
	ErrInvalidTransition = errors.New("invalid ride status transition")

	// ErrNoActiveRide - SOS trigger on a ride that is not in an escalatable state.
	ErrNoActiveRide = errors.New("no active ride for escalation")

	ErrRideNotFound     = errors.New("ride not found")
	ErrIncidentNotFound = errors.New("sos incident not found")
	ErrAlreadyRated     = errors.New("ride already rated")
	ErrNotRideOwner     = errors.New("actor does not belong to this ride")
)
