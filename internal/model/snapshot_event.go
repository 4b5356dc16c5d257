package model

import "time"

// SnapshotPayload is the Cloud Logging entry carried by a snapshot Pub/Sub message.
// Only the fields the relay forwards are mapped. Pointers distinguish a
// missing field from one that is present but empty.
type SnapshotPayload struct {
	Resource    LogResource     `json:"resource"`
	JSONPayload SnapshotDetails `json:"jsonPayload"`
	Timestamp   *string         `json:"timestamp" validate:"required"`
}

type LogResource struct {
	Labels ResourceLabels `json:"labels"`
}

type ResourceLabels struct {
	ProjectID *string `json:"project_id" validate:"required"`
}

type SnapshotDetails struct {
	Resource DiskResource `json:"resource"`
}

type DiskResource struct {
	Zone *string `json:"zone" validate:"required"`
	Name *string `json:"name" validate:"required"`
}

// SnapshotMetadata is the flattened view of a validated SnapshotPayload.
type SnapshotMetadata struct {
	ProjectID string
	Zone      string
	DiskName  string
	DateTime  time.Time
}
