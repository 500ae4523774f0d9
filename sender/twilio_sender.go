package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com"

// TwilioSender delivers SMS through Twilio's Messages API. Sends go out either
// from a single number (TWILIO_FROM_NUMBER) or through a messaging service
// (TWILIO_MESSAGING_SERVICE_SID), which lets Twilio pick a local sender per
// destination; at least one of the two must be configured.
type TwilioSender struct {
	accountSID          string
	authToken           string
	fromNumber          string
	messagingServiceSID string
	baseURL             string
	httpClient          *http.Client
}

func NewTwilioSender() (*TwilioSender, error) {
	sid := os.Getenv("TWILIO_ACCOUNT_SID")
	token := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_FROM_NUMBER")
	service := os.Getenv("TWILIO_MESSAGING_SERVICE_SID")

	if sid == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID not set")
	}
	if token == "" {
		return nil, fmt.Errorf("TWILIO_AUTH_TOKEN not set")
	}
	if from == "" && service == "" {
		return nil, fmt.Errorf("neither TWILIO_FROM_NUMBER nor TWILIO_MESSAGING_SERVICE_SID set")
	}

	return &TwilioSender{
		accountSID:          sid,
		authToken:           token,
		fromNumber:          from,
		messagingServiceSID: service,
		baseURL:             twilioAPIBase,
		httpClient:          &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// twilioMessage is the subset of the Messages API response we keep. The sid
// becomes the job's message ID so a delivery can be traced in the Twilio
// console from the notification log.
type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (t *TwilioSender) SendSMS(ctx context.Context, to, msg string) (SendResult, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("Body", msg)
	if t.messagingServiceSID != "" {
		form.Set("MessagingServiceSid", t.messagingServiceSID)
	} else {
		form.Set("From", t.fromNumber)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, fmt.Errorf("build twilio request: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return SendResult{}, fmt.Errorf("read twilio response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var apiErr twilioError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return SendResult{}, fmt.Errorf("twilio %s (code %d): %s", resp.Status, apiErr.Code, apiErr.Message)
		}
		return SendResult{}, fmt.Errorf("twilio %s: %s", resp.Status, string(body))
	}

	var message twilioMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return SendResult{}, fmt.Errorf("decode twilio response: %w", err)
	}
	if message.SID == "" {
		return SendResult{}, fmt.Errorf("twilio response carried no message sid")
	}

	return SendResult{MessageID: message.SID, SentAt: time.Now()}, nil
}
