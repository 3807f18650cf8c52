package email

import (
	"context"
	"errors"
)

var ErrNoRecipients = errors.New("no_recipients")

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateID string, data interface{}) error
}

// Subjecter lets template data choose its own subject line.
type Subjecter interface {
	Subject() string
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, templateID string, data interface{}) error {
	return nil
}
