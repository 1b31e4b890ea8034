package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var apiJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPAPI posts messages as JSON to {BaseURL}/email.
type HTTPAPI struct {
	BaseURL   string
	From      string
	AuthToken string
	Client    *http.Client
}

type httpAPIRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	Content  string `json:"Content"`
	TextBody string `json:"TextBody,omitempty"`
}

func NewHTTPAPI(baseURL, from, authToken string, timeout time.Duration) *HTTPAPI {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPAPI{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		From:      from,
		AuthToken: authToken,
		Client:    &http.Client{Timeout: timeout},
	}
}

func (h *HTTPAPI) Send(ctx context.Context, to, subject, text, html string) error {
	content := html
	if content == "" {
		content = text
	}
	b, err := apiJSON.Marshal(httpAPIRequest{From: h.From, To: to, Subject: subject, Content: content, TextBody: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/email", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.AuthToken)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email api responded %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
