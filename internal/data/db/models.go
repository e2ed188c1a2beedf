package db

import "database/sql"

// KvStore is a row of the kv_store table.
type KvStore struct {
	Key       string
	Value     []byte
	ExpiresAt sql.NullInt64
	CreatedAt int64
	UpdatedAt int64
}

// Resource is a row of the resources table.
type Resource struct {
	ID        string
	Kind      string
	Token     string
	Value     []byte
	CreatedAt int64
	UpdatedAt int64
}

// Task is a row of the tasks table.
type Task struct {
	ID              string
	Title           string
	Bucket          string
	PercentComplete int64
	DueAt           sql.NullInt64
	CreatedAt       int64
	UpdatedAt       int64
}

// Notification is a row of the notifications table.
type Notification struct {
	ID        int64
	Level     string
	Source    string
	Message   string
	CreatedAt int64
}
