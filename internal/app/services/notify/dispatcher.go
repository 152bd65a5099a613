// Package notify delivers best-effort candidate notifications. Delivery is
// decoupled from the transitions that trigger it: a failed or dropped
// notification never fails the operation that produced it.
package notify

import (
	"context"

	"github.com/hirewire/pipeline/internal/app/domain/application"
	"github.com/hirewire/pipeline/pkg/logger"
)

// Message is one notification to a recipient, rendered from a template key.
type Message struct {
	Template  string            `json:"template"`
	Recipient string            `json:"recipient"`
	Context   map[string]string `json:"context,omitempty"`
}

// Dispatcher accepts messages for delivery. Implementations must not block
// the caller on downstream latency.
type Dispatcher interface {
	Notify(ctx context.Context, msg Message) error
}

// Sender performs the actual delivery (SMTP, webhook, ...). The worker calls
// it off the request path.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Template keys understood by the delivery side.
const (
	TemplateApplicationReceived = "application-received"
	TemplateInterviewInvite     = "interview-invite"
	TemplateOfferExtended       = "offer-extended"
	TemplateRejected            = "application-rejected"
	TemplateHired               = "welcome-aboard"
)

// TemplateFor selects the mail template for a status transition. Most
// transitions are silent.
func TemplateFor(status application.Status) (string, bool) {
	switch status {
	case application.StatusInterviewScheduled:
		return TemplateInterviewInvite, true
	case application.StatusOfferMade:
		return TemplateOfferExtended, true
	case application.StatusRejected:
		return TemplateRejected, true
	case application.StatusHired:
		return TemplateHired, true
	}
	return "", false
}

// LogSender writes notifications to the log instead of delivering them. It is
// the default when no mail integration is configured.
type LogSender struct {
	log       *logger.Logger
	templates Templates
}

// NewLogSender creates a log-only sender.
func NewLogSender(log *logger.Logger) *LogSender {
	if log == nil {
		log = logger.NewDefault("notify")
	}
	return &LogSender{log: log, templates: DefaultTemplates()}
}

// WithTemplates replaces the template table used for subjects.
func (s *LogSender) WithTemplates(templates Templates) *LogSender {
	if len(templates) > 0 {
		s.templates = templates
	}
	return s
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	subject := msg.Template
	if tpl, ok := s.templates[msg.Template]; ok {
		subject = tpl.Subject
	}
	s.log.WithField("template", msg.Template).
		WithField("recipient", msg.Recipient).
		WithField("subject", subject).
		Info("notification dispatched")
	return nil
}
