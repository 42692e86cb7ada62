package policies

import "context"

// Message is a rendered notification for a single recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// NotifierPort is a best-effort sink: implementations and callers log
// failures and swallow them, never blocking booking or cancellation flow.
type NotifierPort interface {
	Notify(ctx context.Context, msg Message) error
}
