package nodeapi

import "github.com/google/uuid"

type TaskRequest struct {
	RequestID uuid.UUID
	ClientID  uuid.UUID
	TaskName  string
	Arg       []byte
}

type TaskResult struct {
	Result []byte
}
