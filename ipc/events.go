package ipc

// Event kinds carried in EventItem.Kind.
const (
	EventEnterLOS   = "enter_los"
	EventLeaveLOS   = "leave_los"
	EventEnterRadar = "enter_radar"
	EventLeaveRadar = "leave_radar"
	EventDestroyed  = "destroyed"
	EventUpdate     = "update" // position/health refresh without a transition
)
