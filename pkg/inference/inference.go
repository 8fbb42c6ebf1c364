package inference

import "context"

// Role distinguishes the two turn roles the upstream APIs understand.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Turn struct {
	Role Role
	Text string
}

// Request carries one full upstream call: the system instruction, the prior
// turns, and the new user text.
type Request struct {
	System  string
	History []Turn
	Latest  string
}

// Inferencer streams a model reply. Every arriving fragment is forwarded to
// onChunk in arrival order and accumulated into the returned string. A non-nil
// error from onChunk aborts the stream; the text accumulated so far is still
// returned alongside the error.
type Inferencer interface {
	Stream(ctx context.Context, req Request, onChunk func(string) error) (string, error)
}
