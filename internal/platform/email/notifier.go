package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/mrz1836/postmark"

	"github.com/Inferno2211/blog-gen-sub002/internal/config"
	"github.com/Inferno2211/blog-gen-sub002/internal/processor"
)

// Common errors returned by the email package
var (
	ErrInvalidConfig     = errors.New("invalid email configuration")
	ErrUnknownTemplate   = errors.New("unknown notification template")
	ErrFailedToSendEmail = errors.New("failed to send email")
)

// message is a rendered notification.
type message struct {
	Subject string
	Body    string
}

// messageTemplate pairs the subject line with the body template for one
// pipeline event.
type messageTemplate struct {
	subject string
	body    *template.Template
}

var messageTemplates = map[string]messageTemplate{
	processor.TemplateGenerationComplete: {
		subject: "Your article is ready for review",
		body: mustParse("generation-complete", `Hello,

Your article has been generated and passed quality control. Log in to
review the draft{{with .slug}} for "{{.}}"{{end}} and request changes or
approve it for publication.
`),
	},
	processor.TemplateRegenerationComplete: {
		subject: "Your updated article is ready for review",
		body: mustParse("regeneration-complete", `Hello,

The revision you requested is done and passed quality control. Log in to
review the new draft.
`),
	},
	processor.TemplateGenerationFailed: {
		subject: "We could not complete your order",
		body: mustParse("generation-failed", `Hello,

We were unable to complete your content order{{with .reason}}: {{.}}{{end}}.
Our team has been notified. You will not be charged for undelivered work.
`),
	},
	processor.TemplatePublishComplete: {
		subject: "Your article is live",
		body: mustParse("publish-complete", `Hello,

Your article has been published{{with .path}} at {{.}}{{end}}. Thank you
for your order.
`),
	},
	processor.TemplatePublishCancelled: {
		subject: "Your scheduled publication was cancelled",
		body: mustParse("publish-cancelled", `Hello,

The scheduled publication for your order was cancelled before going live.
If you did not request this, please contact support.
`),
	},
	processor.TemplatePublishFailed: {
		subject: "Your scheduled publication failed",
		body: mustParse("publish-failed", `Hello,

Publishing your article failed and the publication has been rolled back.
Our team has been notified and will follow up.
`),
	},
}

func mustParse(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}

func render(templateID string, payload map[string]any) (*message, error) {
	mt, ok := messageTemplates[templateID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, templateID)
	}

	var buf bytes.Buffer
	if err := mt.body.Execute(&buf, payload); err != nil {
		return nil, fmt.Errorf("failed to render %q: %w", templateID, err)
	}
	return &message{Subject: mt.subject, Body: buf.String()}, nil
}

// PostmarkNotifier sends notifications through Postmark.
type PostmarkNotifier struct {
	client *postmark.Client
	sender string
	logger *slog.Logger
}

var _ processor.Notifier = (*PostmarkNotifier)(nil)

// NewPostmarkNotifier creates a Postmark-backed notifier. All three config
// fields are required for runtime operation.
func NewPostmarkNotifier(cfg config.EmailConfig, logger *slog.Logger) (*PostmarkNotifier, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: postmark server token is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: postmark account token is required", ErrInvalidConfig)
	}
	if cfg.SenderEmail == "" {
		return nil, fmt.Errorf("%w: sender email is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostmarkNotifier{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		sender: cfg.SenderEmail,
		logger: logger.With(slog.String("component", "postmark_notifier")),
	}, nil
}

// Send implements processor.Notifier.Send.
func (n *PostmarkNotifier) Send(ctx context.Context, templateID string, email string, payload map[string]any) error {
	msg, err := render(templateID, payload)
	if err != nil {
		return err
	}

	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:     n.sender,
		To:       email,
		Subject:  msg.Subject,
		Tag:      templateID,
		TextBody: msg.Body,
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrFailedToSendEmail,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}

	n.logger.Info("notification sent",
		slog.String("template", templateID),
		slog.String("message_id", resp.MessageID))
	return nil
}

// LogNotifier writes notifications to the log instead of sending them.
// Used in development and whenever Postmark is not configured.
type LogNotifier struct {
	logger *slog.Logger
}

var _ processor.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "log_notifier"))}
}

// Send implements processor.Notifier.Send by logging the rendered message.
func (n *LogNotifier) Send(ctx context.Context, templateID string, email string, payload map[string]any) error {
	msg, err := render(templateID, payload)
	if err != nil {
		return err
	}

	n.logger.InfoContext(ctx, "notification (not sent, postmark disabled)",
		slog.String("template", templateID),
		slog.String("to", email),
		slog.String("subject", msg.Subject))
	return nil
}

// NewNotifier picks the Postmark notifier when tokens are configured and
// falls back to logging otherwise.
func NewNotifier(cfg config.EmailConfig, logger *slog.Logger) (processor.Notifier, error) {
	if cfg.PostmarkServerToken == "" || cfg.PostmarkAccountToken == "" {
		return NewLogNotifier(logger), nil
	}
	return NewPostmarkNotifier(cfg, logger)
}
