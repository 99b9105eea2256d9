package jenkins

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"miladyos/internal/api"
	"miladyos/pkg/logging"
)

// Timing bundles the client's poll intervals and retry budgets. Tests
// shrink these so queue and streaming timeouts run in milliseconds.
type Timing struct {
	// ConnectRetryDelay is the wait before the single connect retry.
	ConnectRetryDelay time.Duration
	// QueuePollInterval is the wait between queue item lookups.
	QueuePollInterval time.Duration
	// QueuePollAttempts bounds the queue resolution polls.
	QueuePollAttempts uint
	// StreamPollInterval is the wait between build info polls while
	// streaming console output.
	StreamPollInterval time.Duration
	// StreamMaxPolls bounds the streaming loop.
	StreamMaxPolls int
	// RequestTimeout applies to every individual HTTP request.
	RequestTimeout time.Duration
}

// DefaultTiming returns the production budgets: one connect retry after
// 2s, ~60s of queue polling, ~3min of console streaming.
func DefaultTiming() Timing {
	return Timing{
		ConnectRetryDelay:  2 * time.Second,
		QueuePollInterval:  2 * time.Second,
		QueuePollAttempts:  30,
		StreamPollInterval: 3 * time.Second,
		StreamMaxPolls:     60,
		RequestTimeout:     30 * time.Second,
	}
}

// Options configures a connection to one Jenkins server.
type Options struct {
	// ServerName labels the server in logs and errors.
	ServerName string
	// URL is the Jenkins base URL.
	URL string
	// Username and Password are sent as basic auth on every request.
	Username string
	Password string
	// Timing overrides the default budgets when non-zero.
	Timing Timing
}

// Client talks to a single Jenkins master. It is created per operation
// and not shared across tasks.
type Client struct {
	serverName string
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	timing     Timing

	// CSRF crumb state, resolved lazily before the first POST. A server
	// without crumb enforcement leaves crumb empty.
	crumbMu      sync.Mutex
	crumbChecked bool
	crumb        string
	crumbField   string
}

// Connect builds a client and verifies the credentials against the
// remote. A failed identity check is retried once after a fixed delay;
// a second failure surfaces as ErrJenkinsUnreachable.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	timing := opts.Timing
	if timing.RequestTimeout == 0 {
		timing = DefaultTiming()
	}

	// Crumbs issued by modern Jenkins are tied to the web session, so
	// the client keeps the session cookie from the crumb request.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	c := &Client{
		serverName: opts.ServerName,
		baseURL:    strings.TrimRight(opts.URL, "/"),
		username:   opts.Username,
		password:   opts.Password,
		httpClient: &http.Client{Timeout: timing.RequestTimeout, Jar: jar},
		timing:     timing,
	}

	err = retry.Do(
		func() error { return c.whoAmI(ctx) },
		retry.Attempts(2),
		retry.Delay(timing.ConnectRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(_ uint, err error) {
			logging.Info("Jenkins", "Retrying connection to %s after delay: %v", opts.ServerName, err)
		}),
	)
	if err != nil {
		logging.Error("Jenkins", err, "Could not connect to server %s (%s)", opts.ServerName, opts.URL)
		return nil, fmt.Errorf("%w: %s: %v", api.ErrJenkinsUnreachable, opts.ServerName, err)
	}

	logging.Info("Jenkins", "Connected to server %s (%s)", opts.ServerName, c.baseURL)
	return c, nil
}

// ServerName returns the label the client was connected under.
func (c *Client) ServerName() string {
	return c.serverName
}

// whoAmI validates the credentials. Jenkins exposes the authenticated
// identity under /me/api/json; some proxies hide it, so the root
// api/json is accepted as a fallback.
func (c *Client) whoAmI(ctx context.Context) error {
	if err := c.checkEndpoint(ctx, "/me/api/json"); err == nil {
		return nil
	}
	return c.checkEndpoint(ctx, "/api/json")
}

func (c *Client) checkEndpoint(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity check at %s returned status %d", path, resp.StatusCode)
	}
	return nil
}

// do issues one authenticated request. body may be nil; contentType is
// only set when non-empty. POSTs carry the CSRF crumb when the server
// issues one.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	var crumb, crumbField string
	if method == http.MethodPost {
		var err error
		crumb, crumbField, err = c.ensureCrumb(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving crumb for %s: %w", path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", path, err)
	}
	req.SetBasicAuth(c.username, c.password)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if crumb != "" && crumbField != "" {
		req.Header.Set(crumbField, crumb)
	}
	return c.httpClient.Do(req)
}

// ensureCrumb fetches the CSRF crumb from the issuer once per client
// and caches it. A 404 means crumb enforcement is disabled; that
// outcome is cached as an empty crumb.
func (c *Client) ensureCrumb(ctx context.Context) (string, string, error) {
	c.crumbMu.Lock()
	defer c.crumbMu.Unlock()
	if c.crumbChecked {
		return c.crumb, c.crumbField, nil
	}

	resp, err := c.do(ctx, http.MethodGet, "/crumbIssuer/api/json", nil, "")
	if err != nil {
		return "", "", fmt.Errorf("fetching crumb: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var issued struct {
			Crumb             string `json:"crumb"`
			CrumbRequestField string `json:"crumbRequestField"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&issued); err != nil {
			return "", "", fmt.Errorf("parsing crumb response: %w", err)
		}
		c.crumb = issued.Crumb
		c.crumbField = issued.CrumbRequestField
		logging.Debug("Jenkins", "Fetched CSRF crumb from %s", c.serverName)
	case http.StatusNotFound:
		logging.Debug("Jenkins", "Server %s issues no crumbs, proceeding without", c.serverName)
	default:
		return "", "", fmt.Errorf("crumb issuer returned status %d", resp.StatusCode)
	}

	c.crumbChecked = true
	return c.crumb, c.crumbField, nil
}

// jobPath returns the URL path fragment for a job name.
func jobPath(jobName string) string {
	return "/job/" + url.PathEscape(jobName)
}

// drain reads and discards a response body so the connection can be
// reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
