// Package sms delivers text messages through a Twilio-compatible REST API.
package sms

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Config holds gateway credentials. None of it has a default.
type Config struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	Timeout    time.Duration
}

// Gateway implements ports.NotificationService.
type Gateway struct {
	client *fasthttp.Client
	cfg    Config
}

// NewGateway creates a Gateway. It fails when credentials are missing.
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, errors.New("sms: account sid, auth token and sender are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Gateway{
		client: &fasthttp.Client{Name: "firewatch-alerts"},
		cfg:    cfg,
	}, nil
}

type messageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// SendSMS posts a message and returns the provider's message SID.
func (g *Gateway) SendSMS(ctx context.Context, to, body string) (string, error) {
	if to == "" {
		return "", errors.New("sms: recipient is required")
	}

	form := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(form)
	form.Set("To", to)
	form.Set("From", g.cfg.From)
	form.Set("Body", body)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", g.cfg.BaseURL, url.PathEscape(g.cfg.AccountSID)))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(g.cfg.AccountSID+":"+g.cfg.AuthToken)))
	req.SetBody(form.QueryString())

	timeout := g.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := g.client.DoTimeout(req, resp, timeout); err != nil {
		return "", fmt.Errorf("sms: send: %w", err)
	}

	code := resp.StatusCode()
	if code < 200 || code >= 300 {
		var apiErr apiError
		if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.Message != "" {
			return "", fmt.Errorf("sms: gateway returned %d: %s (code %d)", code, apiErr.Message, apiErr.Code)
		}
		return "", fmt.Errorf("sms: gateway returned %d", code)
	}

	var msg messageResponse
	if err := json.Unmarshal(resp.Body(), &msg); err != nil {
		return "", fmt.Errorf("sms: decode response: %w", err)
	}
	if msg.ErrorCode != nil {
		return "", fmt.Errorf("sms: message %s failed: %s (code %d)", msg.SID, msg.ErrorMessage, *msg.ErrorCode)
	}
	return msg.SID, nil
}
