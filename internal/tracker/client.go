// Package tracker reads pull request metadata from GitHub: the milestone a
// pull request landed in and the author-written release notes comment.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v66/github"
)

// Defaults for Config fields left zero.
const (
	DefaultOwner         = "rapid7"
	DefaultRepo          = "metasploit-framework"
	DefaultMaxRetries    = 3
	DefaultTimeout       = 30 * time.Second
	DefaultRetryInterval = 500 * time.Millisecond
)

// debugLogger is a function that logs debug messages when debug mode is enabled.
// By default, it's a no-op. Set it via SetDebugLogger to enable debug output.
var debugLogger func(format string, args ...any)

// SetDebugLogger configures the debug logger for tracker operations.
// Pass nil to disable debug logging.
func SetDebugLogger(logger func(format string, args ...any)) {
	debugLogger = logger
}

func logDebug(format string, args ...any) {
	if debugLogger != nil {
		debugLogger(format, args...)
	}
}

// Config configures a Client.
type Config struct {
	Owner string
	Repo  string
	// Token is optional; requests are anonymous without it.
	Token string
	// BaseURL overrides the API endpoint, e.g. for GitHub Enterprise or tests.
	BaseURL string
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries    int
	Timeout       time.Duration
	RetryInterval time.Duration
}

// Client fetches issue data for one repository.
type Client struct {
	gh            *github.Client
	owner         string
	repo          string
	maxRetries    int
	retryInterval time.Duration
}

// NewClient builds a client from cfg, filling in defaults.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Owner == "" {
		cfg.Owner = DefaultOwner
	}
	if cfg.Repo == "" {
		cfg.Repo = DefaultRepo
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}

	gh := github.NewClient(&http.Client{Timeout: cfg.Timeout})
	if cfg.Token != "" {
		gh = gh.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parsing tracker base URL: %w", err)
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:            gh,
		owner:         cfg.Owner,
		repo:          cfg.Repo,
		maxRetries:    cfg.MaxRetries,
		retryInterval: cfg.RetryInterval,
	}, nil
}

// Milestone returns the milestone title of a pull request, or NoMilestone.
func (c *Client) Milestone(ctx context.Context, number int) (string, error) {
	var issue *github.Issue
	err := c.retry(ctx, fmt.Sprintf("issue #%d", number), func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		issue, resp, err = c.gh.Issues.Get(ctx, c.owner, c.repo, number)
		return resp, err
	})
	if err != nil {
		return "", fmt.Errorf("fetching #%d: %w", number, err)
	}

	if title := issue.GetMilestone().GetTitle(); title != "" {
		return title, nil
	}
	return NoMilestone, nil
}

// Comments returns the bodies of every comment on a pull request, oldest first.
func (c *Client) Comments(ctx context.Context, number int) ([]string, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var bodies []string
	for {
		var page []*github.IssueComment
		var next int
		err := c.retry(ctx, fmt.Sprintf("comments of #%d page %d", number, opts.Page), func() (*github.Response, error) {
			var (
				resp *github.Response
				err  error
			)
			page, resp, err = c.gh.Issues.ListComments(ctx, c.owner, c.repo, number, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("fetching comments of #%d: %w", number, err)
		}

		for _, comment := range page {
			bodies = append(bodies, comment.GetBody())
		}
		if next == 0 {
			return bodies, nil
		}
		opts.Page = next
	}
}

// retry runs call with exponential backoff. Client errors other than rate
// limiting are not retried.
func (c *Client) retry(ctx context.Context, what string, call func() (*github.Response, error)) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxElapsedTime = 0

	op := func() error {
		resp, err := call()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || isPermanent(resp, err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logDebug("[tracker] %s failed, retrying in %s: %v", what, wait.Round(time.Millisecond), err)
	}

	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx), notify)
}

func isPermanent(resp *github.Response, err error) bool {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return false
	}
	if resp == nil {
		return false
	}
	code := resp.StatusCode
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}
