package forwarder

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"relay/internal/model"

	"github.com/go-playground/validator/v10"
)

const (
	diskURLTemplate    = "https://console.cloud.google.com/compute/disksDetail/zones/%s/disks/%s?project=%s&supportedpurview=project"
	projectURLTemplate = "https://console.cloud.google.com/home/dashboard?project=%s"
)

// Event is one inbound Pub/Sub message. Data holds the decoded message bytes.
type Event struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// NewEventFromBase64 builds an Event from the base64 data of a push envelope.
func NewEventFromBase64(id, data string, attributes map[string]string) (Event, error) {
	ev := Event{ID: id, Attributes: attributes}
	if data == "" {
		return ev, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return ev, fmt.Errorf("%w: decoding base64 message data: %w", ErrParse, err)
	}
	ev.Data = decoded
	return ev, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON paths instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode parses the event data. It returns (nil, nil) when the event carries
// no data or the data is a falsy JSON value (null, false, 0, "", []).
func Decode(ev Event) (*model.SnapshotPayload, error) {
	if len(ev.Data) == 0 {
		return nil, nil
	}

	var probe any
	if err := json.Unmarshal(ev.Data, &probe); err != nil {
		return nil, fmt.Errorf("%w: parsing message JSON: %w", ErrParse, err)
	}
	if isFalsy(probe) {
		return nil, nil
	}

	var payload model.SnapshotPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		field := "(root)"
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			field = typeErr.Field
		}
		return nil, &FieldError{Fields: []string{field}, Err: err}
	}
	return &payload, nil
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	default:
		return false
	}
}

// ExtractMetadata validates the payload and flattens the fields the relay forwards.
func ExtractMetadata(p *model.SnapshotPayload) (model.SnapshotMetadata, error) {
	if p == nil {
		return model.SnapshotMetadata{}, &FieldError{Fields: []string{"(root)"}}
	}

	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return model.SnapshotMetadata{}, &FieldError{Fields: []string{"(root)"}, Err: err}
		}
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			ns := fe.Namespace()
			// Drop the leading struct name.
			if i := strings.Index(ns, "."); i >= 0 {
				ns = ns[i+1:]
			}
			fields = append(fields, ns)
		}
		return model.SnapshotMetadata{}, &FieldError{Fields: fields}
	}

	dateTime, err := parseISODate(*p.Timestamp)
	if err != nil {
		return model.SnapshotMetadata{}, &FieldError{Fields: []string{"timestamp"}, Err: err}
	}

	return model.SnapshotMetadata{
		ProjectID: *p.Resource.Labels.ProjectID,
		Zone:      *p.JSONPayload.Resource.Zone,
		DiskName:  *p.JSONPayload.Resource.Name,
		DateTime:  dateTime,
	}, nil
}

// isoLayouts are the ISO 8601 forms accepted for timestamps, most specific
// first. Forms without a zone are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseISODate(s string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO 8601 date", s)
}

// BuildURLs returns the console disk-detail and project-dashboard URLs.
// Values are interpolated verbatim, without escaping.
func BuildURLs(md model.SnapshotMetadata) (resourceURL, projectURL string) {
	resourceURL = fmt.Sprintf(diskURLTemplate, md.Zone, md.DiskName, md.ProjectID)
	projectURL = fmt.Sprintf(projectURLTemplate, md.ProjectID)
	return resourceURL, projectURL
}

func BuildEventBody(md model.SnapshotMetadata) model.EventBody {
	resourceURL, projectURL := BuildURLs(md)
	return model.EventBody{
		Disk: model.DiskEntry{
			Type: "disk",
			URL:  resourceURL,
			Name: md.DiskName,
		},
		Project: model.ProjectEntry{
			Type:       "project",
			ProjectID:  md.ProjectID,
			ProjectURL: projectURL,
		},
		Zone:     model.ZoneEntry{Zone: md.Zone},
		DateTime: model.DateTimeEntry{DateTime: md.DateTime},
	}
}
