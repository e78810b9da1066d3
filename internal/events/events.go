package events

import "time"

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

const StreamEvents = "STOCKAGENT_EVENTS"

// Subject constants.
const (
	SubjectPrefix       = "stockagent.events"
	SubjectDeploy       = "stockagent.events.deploy"
	SubjectChatRecorded = "stockagent.events.chat"
	SubjectMonitor      = "stockagent.events.monitor"
)

// Deploy outcomes.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// DeployEvent is published when a deployment finishes, successfully or not.
type DeployEvent struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"` // baremetal or container
	Host       string    `json:"host"`
	Version    string    `json:"version,omitempty"`
	Status     string    `json:"status"`
	Steps      []string  `json:"steps"`
	FailedStep string    `json:"failed_step,omitempty"`
	Error      string    `json:"error,omitempty"`
	HealthURL  string    `json:"health_url"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ChatRecordedEvent is published after a chat_history row is appended.
type ChatRecordedEvent struct {
	UserID           string    `json:"user_id"`
	MessageID        string    `json:"message_id"`
	QueriesRemaining int       `json:"queries_remaining"`
	Timestamp        time.Time `json:"timestamp"`
}

// MonitorEvent summarizes one host snapshot.
type MonitorEvent struct {
	Host              string    `json:"host"`
	MemoryUsedPercent float64   `json:"memory_used_percent"`
	DiskUsedPercent   float64   `json:"disk_used_percent"`
	Load1             float64   `json:"load1"`
	ServiceActive     bool      `json:"service_active"`
	Timestamp         time.Time `json:"timestamp"`
}
