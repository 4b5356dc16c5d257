package model

import (
	"encoding/json"
	"time"
)

// dateTimeLayout renders timestamps in UTC with millisecond precision.
const dateTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// EventBody is the document POSTed to the webhook. It serializes as
// {"data":[disk, project, zone, date_time]} and the order of the entries is
// part of the contract with webhook consumers.
type EventBody struct {
	Disk     DiskEntry
	Project  ProjectEntry
	Zone     ZoneEntry
	DateTime DateTimeEntry
}

type DiskEntry struct {
	Type string `json:"type"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

type ProjectEntry struct {
	Type       string `json:"type"`
	ProjectID  string `json:"project_id"`
	ProjectURL string `json:"project_url"`
}

type ZoneEntry struct {
	Zone string `json:"zone"`
}

type DateTimeEntry struct {
	DateTime time.Time `json:"-"`
}

func (e DateTimeEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DateTime string `json:"date_time"`
	}{DateTime: e.DateTime.UTC().Format(dateTimeLayout)})
}

func (b EventBody) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Data []any `json:"data"`
	}{Data: []any{b.Disk, b.Project, b.Zone, b.DateTime}})
}
