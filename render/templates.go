package render

import (
	"html/template"
	texttemplate "text/template"

	"github.com/saicare2025/dinarexchangenz-sub001/models"
)

// Template sources per event type. Bodies are deliberately short; layout and
// branding live in the portal, not in transactional mail.
type templateSource struct {
	subject string
	email   string
	sms     string
}

var templateSources = map[string]templateSource{
	models.TypeOrderReceived: {
		subject: "We've received your order {{.OrderID}}",
		email: `<p>Hi {{.Name}},</p>
<p>Thanks for your order <strong>{{.OrderID}}</strong> with Dinar Exchange. We've received it and will be in touch once your payment and photo ID are confirmed.</p>
<p>You can follow progress any time: <a href="{{.OrderURL}}">view your order</a>.</p>
<p>{{.Help}}</p>`,
		sms: `Dinar Exchange: we've received your order {{.OrderID}}. Track it here: {{.OrderURL}} {{.Help}}`,
	},
	models.TypeMissingID: {
		subject: "Action needed: photo ID for order {{.OrderID}}",
		email: `<p>Hi {{.Name}},</p>
<p>We still need a copy of your photo ID before we can release order <strong>{{.OrderID}}</strong>. Please upload it from your account page.</p>
<p><a href="{{.OrderURL}}">Upload your ID</a></p>
<p>{{.Help}}</p>`,
		sms: `Dinar Exchange: we still need your photo ID for order {{.OrderID}}. Upload: {{.OrderURL}} {{.Help}}`,
	},
	models.TypeMissingPayment: {
		subject: "Action needed: payment for order {{.OrderID}}",
		email: `<p>Hi {{.Name}},</p>
<p>We haven't received payment for order <strong>{{.OrderID}}</strong> yet. Once it lands we'll start preparing your banknotes straight away.</p>
<p><a href="{{.OrderURL}}">View payment details</a></p>
<p>{{.Help}}</p>`,
		sms: `Dinar Exchange: payment for order {{.OrderID}} is still outstanding. Details: {{.OrderURL}} {{.Help}}`,
	},
	models.TypeStatusUpdate: {
		subject: "Order {{.OrderID}} update: {{.StatusLabel}}",
		email: `<p>Hi {{.Name}},</p>
<p>Your order <strong>{{.OrderID}}</strong> is now: <strong>{{.StatusLabel}}</strong>.</p>
<p><a href="{{.OrderURL}}">View your order</a></p>
<p>{{.Help}}</p>`,
		sms: `Dinar Exchange: order {{.OrderID}} is now {{.StatusLabel}}. {{.OrderURL}} {{.Help}}`,
	},
	models.TypeTrackingAdded: {
		subject: "Your order {{.OrderID}} has shipped",
		email: `<p>Hi {{.Name}},</p>
<p>Good news — order <strong>{{.OrderID}}</strong> is on its way. Your tracking number is <strong>{{.Tracking}}</strong>.</p>
<p><a href="{{.OrderURL}}">Track your delivery</a></p>
<p>{{.Help}}</p>`,
		sms: `Dinar Exchange: order {{.OrderID}} has shipped. Tracking {{.Tracking}}. {{.OrderURL}} {{.Help}}`,
	},
	models.TypeTrackingUpdated: {
		subject: "Updated tracking for order {{.OrderID}}",
		email: `<p>Hi {{.Name}},</p>
<p>The tracking number for order <strong>{{.OrderID}}</strong> has been updated to <strong>{{.Tracking}}</strong>.</p>
<p><a href="{{.OrderURL}}">Track your delivery</a></p>
<p>{{.Help}}</p>`,
		sms: `Dinar Exchange: new tracking for order {{.OrderID}}: {{.Tracking}}. {{.OrderURL}} {{.Help}}`,
	},
	models.TypeOrderCompleted: {
		subject: "Order {{.OrderID}} delivered",
		email: `<p>Hi {{.Name}},</p>
<p>Order <strong>{{.OrderID}}</strong> has been delivered. Thank you for choosing Dinar Exchange — we hope everything arrived in perfect condition.</p>
<p><a href="{{.OrderURL}}">View your order</a></p>
<p>{{.Help}}</p>`,
		sms: `Dinar Exchange: order {{.OrderID}} has been delivered. Thank you! {{.OrderURL}} {{.Help}}`,
	},
	models.TypeDelayNotice: {
		subject: "An update on your order {{.OrderID}}",
		email: `<p>Hi {{.Name}},</p>
<p>Your order <strong>{{.OrderID}}</strong> is taking a little longer than usual to dispatch. It is still being prepared and we'll send tracking details the moment it ships. We're sorry for the wait.</p>
<p><a href="{{.OrderURL}}">View your order</a></p>
<p>{{.Help}}</p>`,
		sms: `Dinar Exchange: order {{.OrderID}} is taking longer than usual. It's still being prepared - tracking to follow. {{.OrderURL}} {{.Help}}`,
	},
	models.TypeReviewRequest: {
		subject: "How did we do with order {{.OrderID}}?",
		email: `<p>Hi {{.Name}},</p>
<p>It's been a week since order <strong>{{.OrderID}}</strong> arrived. If you have a minute, we'd love to hear how it went — your review helps other collectors buy with confidence.</p>
<p><a href="{{.OrderURL}}">Leave a review</a></p>
<p>{{.Help}}</p>`,
		sms: `Dinar Exchange: how was order {{.OrderID}}? We'd love a quick review: {{.OrderURL}} {{.Help}}`,
	},
	models.TypeCustom: {
		subject: "An update regarding your order {{.OrderID}}",
		email: `<p>Hi {{.Name}},</p>
<p>There's an update regarding your order <strong>{{.OrderID}}</strong>. Please sign in to view the details.</p>
<p><a href="{{.OrderURL}}">View your order</a></p>
<p>{{.Help}}</p>`,
		sms: `Dinar Exchange: there's an update on your order {{.OrderID}}. {{.OrderURL}} {{.Help}}`,
	},
}

func buildTemplates() map[string]eventTemplates {
	out := make(map[string]eventTemplates, len(templateSources))
	for eventType, src := range templateSources {
		out[eventType] = eventTemplates{
			subject: texttemplate.Must(texttemplate.New(eventType + ":subject").Parse(src.subject)),
			email:   template.Must(template.New(eventType + ":email").Parse(src.email)),
			sms:     texttemplate.Must(texttemplate.New(eventType + ":sms").Parse(src.sms)),
		}
	}
	return out
}
