package render

import (
	"net/url"
	"strings"
)

// Links builds customer-portal URLs. Deep links go through the login redirect
// so the customer lands on the target page with a session; the auth service
// owns the actual session issuance.
type Links struct {
	PortalBaseURL string // e.g. https://portal.dinarexchange.co.nz
	LoginPath     string // e.g. /login
}

// LoginURL wraps a portal path in the login redirect, e.g.
// /login?redirect=%2Fmy-order%2FORD-1.
func (l Links) LoginURL(target string) string {
	base := strings.TrimRight(l.PortalBaseURL, "/")
	path := l.LoginPath
	if path == "" {
		path = "/login"
	}
	return base + path + "?redirect=" + url.QueryEscape(target)
}

// OrderURL is the authenticated deep link to one order's status page.
func (l Links) OrderURL(orderID string) string {
	return l.LoginURL("/my-order/" + orderID)
}
