package render

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"
	texttemplate "text/template"

	"github.com/saicare2025/dinarexchangenz-sub001/models"
)

// ErrUnknownEventType signals a malformed job: rendering must never silently
// skip an event type it does not recognize.
var ErrUnknownEventType = errors.New("unknown event type")

// Message is the channel-specific rendering result. Email fills all three
// fields; SMS fills Text only.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// carrier-safe ceiling for one SMS body, in runes
const smsMaxLen = 320

type eventTemplates struct {
	subject *texttemplate.Template
	email   *template.Template
	sms     *texttemplate.Template
}

// templateData is everything the templates may interpolate. No business
// logic beyond lookup and formatting belongs here.
type templateData struct {
	Name        string
	OrderID     string
	StatusLabel string
	Tracking    string
	OrderURL    string
	Help        string
}

// Renderer maps (event type, order snapshot) to channel-specific message
// bodies. Pure: no I/O, deterministic for a given order snapshot.
type Renderer struct {
	links     Links
	help      string
	templates map[string]eventTemplates
}

func New(links Links) *Renderer {
	return &Renderer{
		links:     links,
		help:      "Questions? Reply or call 0800 346 272.",
		templates: buildTemplates(),
	}
}

// Render produces the message for one job. An unrecognized event type is a
// rendering error, never empty content.
func (r *Renderer) Render(eventType string, order *models.Order, channel string) (Message, error) {
	tmpls, ok := r.templates[eventType]
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}

	data := templateData{
		Name:        order.FullName,
		OrderID:     order.ID,
		StatusLabel: models.StatusLabel(order.Status),
		Tracking:    order.TrackingNumber,
		OrderURL:    r.links.OrderURL(order.ID),
		Help:        r.help,
	}
	if data.Name == "" {
		data.Name = "there"
	}

	switch channel {
	case models.ChannelEmail:
		subject, err := executeText(tmpls.subject, data)
		if err != nil {
			return Message{}, fmt.Errorf("render subject for %s: %w", eventType, err)
		}
		var buf bytes.Buffer
		if err := tmpls.email.Execute(&buf, data); err != nil {
			return Message{}, fmt.Errorf("render email for %s: %w", eventType, err)
		}
		htmlBody := buf.String()
		return Message{Subject: subject, HTML: htmlBody, Text: StripHTML(htmlBody)}, nil

	case models.ChannelSMS:
		body, err := executeText(tmpls.sms, data)
		if err != nil {
			return Message{}, fmt.Errorf("render sms for %s: %w", eventType, err)
		}
		return Message{Text: truncateRunes(body, smsMaxLen)}, nil

	default:
		return Message{}, fmt.Errorf("unsupported channel %q", channel)
	}
}

func executeText(t *texttemplate.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	blankPattern = regexp.MustCompile(`\n{3,}`)
)

// StripHTML derives the plain-text alternative of an HTML email body.
func StripHTML(s string) string {
	s = strings.ReplaceAll(s, "</p>", "\n\n")
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, "<br/>", "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = blankPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
