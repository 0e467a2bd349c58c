package github

import (
	"context"
	"fmt"

	"github.com/shurcooL/githubv4"

	"github.com/ericfisherdev/repotalk/internal/domain/model"
)

// discussionsQuery fetches the most recent window of discussions with their
// nested comments. The GraphQL API exposes no "since" filter for
// discussions, so every cycle re-scans this window; the store's dedup key
// makes the re-scan idempotent.
type discussionsQuery struct {
	Repository struct {
		Discussions struct {
			Nodes []struct {
				Title     string
				Body      string
				CreatedAt githubv4.DateTime
				URL       githubv4.URI `graphql:"url"`
				Author    struct {
					Login string
				}
				Comments struct {
					Nodes []struct {
						Body      string
						CreatedAt githubv4.DateTime
						URL       githubv4.URI `graphql:"url"`
						Author    struct {
							Login string
						}
					}
				} `graphql:"comments(first: 50)"`
			}
		} `graphql:"discussions(first: 50, orderBy: {field: UPDATED_AT, direction: DESC})"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// fetchDiscussions retrieves discussions and their comments as normalized items.
func (c *Client) fetchDiscussions(ctx context.Context, owner, name string) ([]model.SourceItem, error) {
	var query discussionsQuery
	variables := map[string]any{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(name),
	}

	if err := c.v4.Query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("querying discussions for %s/%s: %w", owner, name, err)
	}

	var items []model.SourceItem
	for _, discussion := range query.Repository.Discussions.Nodes {
		items = append(items, model.SourceItem{
			Content:   discussion.Body,
			Timestamp: discussion.CreatedAt.Time,
			Author:    discussion.Author.Login,
			URL:       uriString(discussion.URL),
			Type:      model.MessageTypeDiscussion,
		})

		for _, comment := range discussion.Comments.Nodes {
			items = append(items, model.SourceItem{
				Content:     comment.Body,
				Timestamp:   comment.CreatedAt.Time,
				Author:      comment.Author.Login,
				URL:         uriString(comment.URL),
				Type:        model.MessageTypeDiscussionComment,
				ParentTitle: discussion.Title,
			})
		}
	}

	return items, nil
}

// uriString renders a githubv4.URI, tolerating the null case.
func uriString(u githubv4.URI) string {
	if u.URL == nil {
		return ""
	}
	return u.URL.String()
}
