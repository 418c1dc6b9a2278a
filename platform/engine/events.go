package engine

// EventType classifies a boot lifecycle log entry. It is emitted in the
// "event" field so diagnostics can be filtered without parsing messages.
type EventType string

const (
	EventEngineInit      EventType = "engine.init"
	EventBootStarting    EventType = "boot.starting"
	EventBootCompleted   EventType = "boot.completed"
	EventBootFailed      EventType = "boot.failed"
	EventBootMode        EventType = "boot.mode"
	EventBackupActivated EventType = "backup.activated"

	EventServiceAttempt    EventType = "service.attempt"
	EventServiceStarted    EventType = "service.started"
	EventServiceSkipped    EventType = "service.skipped"
	EventServiceFailed     EventType = "service.failed"
	EventServicesCompleted EventType = "services.completed"

	EventPowerSaveAllowList EventType = "powersave.allowlist"

	EventCompanionExempt   EventType = "companion.exempt"
	EventCompanionExempted EventType = "companion.exempted"
	EventCompanionFailed   EventType = "companion.failed"
)
