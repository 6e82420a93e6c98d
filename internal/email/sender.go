// Package email delivers outgoing messages through SMTP, SendGrid or the log.
package email

import "context"

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}
