// Package github implements the SourceClient port using the go-github
// library for issue threads and the githubv4 library for discussions.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/ericfisherdev/repotalk/internal/domain/model"
	"github.com/ericfisherdev/repotalk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SourceClient = (*Client)(nil)

// rateLimitLowWater is the remaining-quota threshold below which the client
// suspends further requests until the reported reset time.
const rateLimitLowWater = 10

// Client implements the driven.SourceClient port. Issue threads come from
// the REST API, discussions from the GraphQL API.
type Client struct {
	gh *gh.Client
	v4 *githubv4.Client

	// wait blocks for d or until ctx is canceled. Injectable for tests.
	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time
}

// NewClient creates a new GitHub source client with the following REST
// transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
//
// The GraphQL client reuses the same token via oauth2.
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	restClient := gh.NewClient(rateLimitClient).WithAuthToken(token)

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	v4Client := githubv4.NewClient(oauth2.NewClient(context.Background(), src))

	return &Client{
		gh:   restClient,
		v4:   v4Client,
		wait: sleepContext,
		now:  time.Now,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server for both the REST and GraphQL endpoints.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	restClient := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	restClient.BaseURL = u

	graphqlU := *u
	graphqlU.Path = "/graphql"

	return &Client{
		gh:   restClient,
		v4:   githubv4.NewEnterpriseClient(graphqlU.String(), httpClient),
		wait: sleepContext,
		now:  time.Now,
	}, nil
}

// FetchSince retrieves issues, issue comments, discussions, and discussion
// comments for the repository, normalized and sorted newest first. The two
// retrieval paths fail independently; a typed SourceFetchError is returned
// only when both fail.
func (c *Client) FetchSince(ctx context.Context, repoURL string, since *time.Time) ([]model.SourceItem, error) {
	owner, name, err := splitRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	issueItems, issuesErr := c.fetchIssueThreads(ctx, owner, name, since)
	if issuesErr != nil {
		slog.Warn("issue thread fetch failed", "repo", repoURL, "error", issuesErr)
	}

	discussionItems, discussionsErr := c.fetchDiscussions(ctx, owner, name)
	if discussionsErr != nil {
		slog.Warn("discussion fetch failed", "repo", repoURL, "error", discussionsErr)
	}

	if issuesErr != nil && discussionsErr != nil {
		return nil, &driven.SourceFetchError{
			RepoURL:        repoURL,
			IssuesErr:      issuesErr,
			DiscussionsErr: discussionsErr,
		}
	}

	items := append(issueItems, discussionItems...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})

	return items, nil
}

// fetchIssueThreads lists issues updated since the watermark (newest-updated
// first) and expands each into its comment thread. Pagination is followed
// until the API signals no further pages.
func (c *Client) fetchIssueThreads(ctx context.Context, owner, name string, since *time.Time) ([]model.SourceItem, error) {
	opts := &gh.IssueListByRepoOptions{
		State:     "all",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}
	if since != nil {
		opts.Since = *since
	}

	var items []model.SourceItem

	for {
		issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("listing issues for %s/%s (page %d): %w", owner, name, opts.ListOptions.Page, err)
		}

		for _, issue := range issues {
			// The issues listing also returns pull requests; only
			// true issues belong in the feed.
			if issue.IsPullRequest() {
				continue
			}

			items = append(items, model.SourceItem{
				Content:   issue.GetBody(),
				Timestamp: issue.GetCreatedAt().Time,
				Author:    issue.GetUser().GetLogin(),
				URL:       issue.GetHTMLURL(),
				Type:      model.MessageTypeIssue,
			})

			comments, err := c.fetchIssueComments(ctx, owner, name, issue.GetNumber(), issue.GetTitle())
			if err != nil {
				return nil, err
			}
			items = append(items, comments...)
		}

		if err := c.checkRateLimit(ctx, resp, owner+"/"+name, opts.ListOptions.Page, len(issues)); err != nil {
			return nil, err
		}

		if resp.NextPage == 0 {
			break
		}
		opts.ListOptions.Page = resp.NextPage
	}

	return items, nil
}

// fetchIssueComments expands one issue into its comment thread.
func (c *Client) fetchIssueComments(ctx context.Context, owner, name string, number int, parentTitle string) ([]model.SourceItem, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var items []model.SourceItem

	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, name, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s/%s#%d (page %d): %w", owner, name, number, opts.Page, err)
		}

		for _, comment := range comments {
			items = append(items, model.SourceItem{
				Content:     comment.GetBody(),
				Timestamp:   comment.GetCreatedAt().Time,
				Author:      comment.GetUser().GetLogin(),
				URL:         comment.GetHTMLURL(),
				Type:        model.MessageTypeComment,
				ParentTitle: parentTitle,
			})
		}

		if err := c.checkRateLimit(ctx, resp, fmt.Sprintf("%s/%s#%d", owner, name, number), opts.Page, len(comments)); err != nil {
			return nil, err
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return items, nil
}

// checkRateLimit inspects the quota headers returned with each page. When
// remaining quota drops below the low-water mark, the calling sync cycle is
// suspended until the reported reset time. Other repositories' work is not
// affected; only this call blocks.
func (c *Client) checkRateLimit(ctx context.Context, resp *gh.Response, endpoint string, page, count int) error {
	if resp == nil {
		return nil
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining >= rateLimitLowWater {
		return nil
	}

	delay := resp.Rate.Reset.Time.Sub(c.now())
	if delay <= 0 {
		return nil
	}

	slog.Warn("github rate limit low, suspending requests",
		"endpoint", endpoint,
		"remaining", resp.Rate.Remaining,
		"resume_in", delay.Round(time.Second),
	)

	return c.wait(ctx, delay)
}

// sleepContext blocks for d or until ctx is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// splitRepoURL extracts the owner and repository name from a repository url
// such as "https://github.com/owner/repo".
func splitRepoURL(repoURL string) (string, string, error) {
	trimmed := strings.TrimSuffix(repoURL, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid repository url %q: expected .../owner/repo", repoURL)
	}

	owner, name := parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || name == "" {
		return "", "", fmt.Errorf("invalid repository url %q: expected .../owner/repo", repoURL)
	}

	return owner, name, nil
}
