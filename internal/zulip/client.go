package zulip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 30 * time.Second
)

// UserAgent is sent with every request.
var UserAgent = "zterm"

// Credentials identify a user on a Zulip server.
type Credentials struct {
	Site   string
	Email  string
	APIKey string
}

// APIError is a non-success response from the server.
type APIError struct {
	Status int
	Code   string
	Msg    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("zulip: %s (%s, HTTP %d)", e.Msg, e.Code, e.Status)
	}
	return fmt.Sprintf("zulip: %s (HTTP %d)", e.Msg, e.Status)
}

// RateLimitedError is returned when the server answers with HTTP 429.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("zulip: rate limited, retry after %s", e.RetryAfter)
}

// Client is a thin Zulip REST client with rate-limit retry and cached
// identity information.
type Client struct {
	http   *http.Client
	base   string
	email  string
	apiKey string

	UserID   int64
	Email    string
	FullName string
	Site     string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client, validates the credentials via GET /users/me and
// populates the identity fields.
func New(ctx context.Context, creds Credentials, opts ...Option) (*Client, error) {
	if creds.Email == "" || creds.APIKey == "" {
		return nil, errors.New("email and API key are required")
	}
	site, err := NormalizeSite(creds.Site)
	if err != nil {
		return nil, err
	}

	c := &Client{
		http:   &http.Client{},
		base:   site + apiPrefix,
		email:  creds.Email,
		apiKey: creds.APIKey,
		Site:   site,
	}
	for _, opt := range opts {
		opt(c)
	}

	var me struct {
		UserID   int64  `json:"user_id"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	}
	if err := c.call(ctx, http.MethodGet, "/users/me", nil, &me); err != nil {
		return nil, err
	}
	c.UserID = me.UserID
	c.Email = me.Email
	c.FullName = me.FullName
	return c, nil
}

// NormalizeSite returns the server URL with a scheme and without a trailing
// slash.
func NormalizeSite(site string) (string, error) {
	site = strings.TrimSpace(site)
	if site == "" {
		return "", errors.New("server site is required")
	}
	if !strings.Contains(site, "://") {
		site = "https://" + site
	}
	u, err := url.Parse(site)
	if err != nil {
		return "", fmt.Errorf("invalid site %q: %w", site, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid site %q: missing host", site)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// Register creates an event queue for the given event types. Registering
// before the initial fetch means no update is lost while it runs.
func (c *Client) Register(ctx context.Context, eventTypes []string) (*Queue, error) {
	types, err := json.Marshal(eventTypes)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("event_types", string(types))
	params.Set("apply_markdown", "false")

	var q Queue
	if err := c.call(ctx, http.MethodPost, "/register", params, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// GetMessages fetches a bounded window of messages around an anchor.
func (c *Client) GetMessages(ctx context.Context, p GetMessagesParams) ([]Message, error) {
	params := url.Values{}
	params.Set("anchor", p.Anchor.String())
	params.Set("num_before", strconv.Itoa(p.NumBefore))
	params.Set("num_after", strconv.Itoa(p.NumAfter))
	params.Set("apply_markdown", "false")
	if len(p.Narrow) > 0 {
		narrow, err := json.Marshal(p.Narrow)
		if err != nil {
			return nil, err
		}
		params.Set("narrow", string(narrow))
	}

	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := c.call(ctx, http.MethodGet, "/messages", params, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// GetEvents long-polls the event queue for events newer than lastEventID.
func (c *Client) GetEvents(ctx context.Context, queueID string, lastEventID int64) ([]Event, error) {
	params := url.Values{}
	params.Set("queue_id", queueID)
	params.Set("last_event_id", strconv.FormatInt(lastEventID, 10))

	var resp struct {
		Events []Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "/events", params, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// GetUsers returns all realm members.
func (c *Client) GetUsers(ctx context.Context) ([]User, error) {
	var resp struct {
		Members []User `json:"members"`
	}
	if err := c.call(ctx, http.MethodGet, "/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

// GetSubscriptions returns the streams the current user is subscribed to.
func (c *Client) GetSubscriptions(ctx context.Context) ([]Subscription, error) {
	var resp struct {
		Subscriptions []Subscription `json:"subscriptions"`
	}
	if err := c.call(ctx, http.MethodGet, "/users/me/subscriptions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Subscriptions, nil
}

// GetStreamTopics returns the topics of a stream, most recent first.
func (c *Client) GetStreamTopics(ctx context.Context, streamID int64) ([]Topic, error) {
	var resp struct {
		Topics []Topic `json:"topics"`
	}
	path := fmt.Sprintf("/users/me/%d/topics", streamID)
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Topics, nil
}

// SendStreamMessage posts a message to a stream topic and returns its ID.
func (c *Client) SendStreamMessage(ctx context.Context, stream, topic, content string) (int64, error) {
	params := url.Values{}
	params.Set("type", TypeStream)
	params.Set("to", stream)
	params.Set("topic", topic)
	params.Set("content", content)
	return c.send(ctx, params)
}

// SendPrivateMessage posts a private message to the given recipients.
func (c *Client) SendPrivateMessage(ctx context.Context, emails []string, content string) (int64, error) {
	to, err := json.Marshal(emails)
	if err != nil {
		return 0, err
	}
	params := url.Values{}
	params.Set("type", TypePrivate)
	params.Set("to", string(to))
	params.Set("content", content)
	return c.send(ctx, params)
}

func (c *Client) send(ctx context.Context, params url.Values) (int64, error) {
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/messages", params, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// MarkRead adds the read flag to the given messages.
func (c *Client) MarkRead(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	params := url.Values{}
	params.Set("messages", string(encoded))
	params.Set("op", "add")
	params.Set("flag", FlagRead)
	return c.call(ctx, http.MethodPost, "/messages/flags", params, nil)
}

// call performs a short request bounded by requestTimeout, retrying once on
// rate limiting.
func (c *Client) call(ctx context.Context, method, path string, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return retryOnRateLimit(ctx, func() error {
		return c.do(ctx, method, path, params, out)
	})
}

// retryOnRateLimit executes fn and, if a RateLimitedError is returned,
// waits for the requested duration and retries once.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	var rle *RateLimitedError
	if !errors.As(err, &rle) {
		return err
	}
	t := time.NewTimer(rle.RetryAfter)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}
	return fn()
}

// do sends a single request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any) error {
	endpoint := c.base + path

	var body io.Reader
	if method == http.MethodGet {
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.email, c.apiKey)
	req.Header.Set("User-Agent", UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitedError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}

	var envelope struct {
		Result string `json:"result"`
		Msg    string `json:"msg"`
		Code   string `json:"code"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return &APIError{Status: resp.StatusCode, Msg: fmt.Sprintf("invalid response from %s", path)}
	}
	if envelope.Result != "success" {
		return &APIError{Status: resp.StatusCode, Code: envelope.Code, Msg: envelope.Msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// parseRetryAfter reads a Retry-After header in (possibly fractional)
// seconds, defaulting to one second.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || secs <= 0 {
		return time.Second
	}
	return time.Duration(secs * float64(time.Second))
}
