package builtin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"tools.zach/dev/flagman/internal/action"
)

const defaultWebhookRetries = 2

// webhookEvent is the JSON body posted on every step.
type webhookEvent struct {
	Source string `json:"source"`
	Host   string `json:"host,omitempty"`
	PID    int    `json:"pid"`
	Seq    uint64 `json:"seq"`
	Time   string `json:"time"`
}

// webhookAction posts one event per step.
type webhookAction struct {
	opts   Options
	url    string
	client *retryablehttp.Client
	host   string
	seq    uint64
}

func webhookFactory(opts Options) action.Factory {
	return func(args []string) (action.Action, error) {
		if err := action.CheckArgs(args, 1, 2); err != nil {
			return nil, err
		}
		u, err := url.Parse(args[0])
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: %q is not an http(s) URL", action.ErrArgs, args[0])
		}
		retries := defaultWebhookRetries
		if len(args) == 2 {
			retries, err = strconv.Atoi(args[1])
			if err != nil || retries < 0 {
				return nil, fmt.Errorf("%w: retries %q must be a non-negative integer", action.ErrArgs, args[1])
			}
		}

		host, _ := os.Hostname()
		return &webhookAction{opts: opts, url: u.String(), client: newWebhookClient(opts.HTTPClient, retries), host: host}, nil
	}
}

// newWebhookClient returns a client that retries up to retries times. The
// transport and retry policy come from base when it is set.
func newWebhookClient(base *retryablehttp.Client, retries int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil // suppress retryablehttp's default logging
	if base != nil {
		client.Logger = base.Logger
		client.RetryWaitMin = base.RetryWaitMin
		client.RetryWaitMax = base.RetryWaitMax
		if base.HTTPClient != nil {
			client.HTTPClient = base.HTTPClient
		}
		if base.CheckRetry != nil {
			client.CheckRetry = base.CheckRetry
		}
		if base.Backoff != nil {
			client.Backoff = base.Backoff
		}
		client.ErrorHandler = base.ErrorHandler
	}
	client.RetryMax = retries
	return client
}

func (w *webhookAction) Step() (action.Outcome, error) {
	w.seq++
	body, err := json.Marshal(webhookEvent{
		Source: "flagman",
		Host:   w.host,
		PID:    os.Getpid(),
		Seq:    w.seq,
		Time:   w.opts.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return action.Continue, fmt.Errorf("encode webhook event: %w", err)
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return action.Continue, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return action.Continue, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return action.Continue, fmt.Errorf("post webhook: unexpected status %s", resp.Status)
	}
	return action.Continue, nil
}

func (w *webhookAction) Close() error {
	w.client.HTTPClient.CloseIdleConnections()
	return nil
}
