package realtime

// Message is one realtime payload pushed to subscribed annotators. Channel
// is a project channel ("project:<uuid>"); Event names the action that
// produced the payload.
type Message struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Data    any    `json:"data,omitempty"`
}
