package forwarder

const (
	MessageEmptyPayload  = "Event message's content is empty."
	MessageWebhookNotSet = "WEBHOOK_URL environment variable is not set"
	messageStatusCodeFmt = "statusCode: %d"
)

// OutcomeKind distinguishes the successful ways an event can finish. The zero
// value is OutcomeUnknown, which is what a failed Forward returns.
type OutcomeKind int

const (
	OutcomeUnknown OutcomeKind = iota
	OutcomeDelivered
	OutcomeEmpty
	// OutcomeNotConfigured is a warning: the event was valid but no webhook is configured.
	OutcomeNotConfigured
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeEmpty:
		return "empty"
	case OutcomeNotConfigured:
		return "not_configured"
	default:
		return "unknown"
	}
}

// Outcome is the result of a Forward call that did not fail.
type Outcome struct {
	Kind       OutcomeKind
	Message    string
	StatusCode int
}

// IsWarning reports whether the outcome should be surfaced as a non-fatal warning.
func (o Outcome) IsWarning() bool {
	return o.Kind == OutcomeNotConfigured
}
