// Package session holds the ephemeral state machines for question
// groups answered across several turns: dependent multi-part items and
// progressive "name N of M" lists. Sessions are created on first view
// of a group and finalized on completion or on the first wrong answer.
package session

// Status is the lifecycle of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)
