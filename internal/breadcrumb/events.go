package breadcrumb

import "github.com/golang/geo/r3"

// Action identifies a recorder event reported through an EventSink.
type Action uint8

const (
	// ActionPointAdd is reported for every point appended to the path.
	ActionPointAdd Action = iota
	// ActionPointPrune is reported for every point removed as part of a
	// pruned loop.
	ActionPointPrune
	// ActionPointSimplify is reported for every point removed by the
	// simplifier.
	ActionPointSimplify
	// ActionDeactivatedInitFailed is reported when the recorder could not
	// be activated because its configuration was rejected.
	ActionDeactivatedInitFailed
	// ActionDeactivatedBadPosition is reported when the recorder shuts
	// down after too long without a trusted position fix.
	ActionDeactivatedBadPosition
	// ActionDeactivatedCleanupFailed is reported when routine cleanup
	// could not reclaim enough room to keep recording.
	ActionDeactivatedCleanupFailed
)

// String returns the event name used in logs and persisted records.
func (a Action) String() string {
	switch a {
	case ActionPointAdd:
		return "point_add"
	case ActionPointPrune:
		return "point_prune"
	case ActionPointSimplify:
		return "point_simplify"
	case ActionDeactivatedInitFailed:
		return "deactivated_init_failed"
	case ActionDeactivatedBadPosition:
		return "deactivated_bad_position"
	case ActionDeactivatedCleanupFailed:
		return "deactivated_cleanup_failed"
	default:
		return "unknown"
	}
}

// EventSink receives recorder events. Implementations must be fast: the
// recorder calls RecordAction while holding its lock, from the control
// path. Persisting or formatting events is the sink's concern, never the
// recorder's.
type EventSink interface {
	RecordAction(action Action, point r3.Vector)
}

// NopSink discards all events. It is the default sink.
type NopSink struct{}

// RecordAction implements EventSink.
func (NopSink) RecordAction(Action, r3.Vector) {}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(action Action, point r3.Vector)

// RecordAction implements EventSink.
func (f SinkFunc) RecordAction(action Action, point r3.Vector) {
	f(action, point)
}
