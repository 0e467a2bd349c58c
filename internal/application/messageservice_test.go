package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/repotalk/internal/application"
	"github.com/ericfisherdev/repotalk/internal/domain/model"
	"github.com/ericfisherdev/repotalk/internal/domain/validation"
)

type mockPusher struct {
	status string
	err    error
	pushed chan struct{}
}

func newMockPusher() *mockPusher {
	return &mockPusher{status: "pushed", pushed: make(chan struct{}, 8)}
}

func (m *mockPusher) Push(_ context.Context) (string, error) {
	m.pushed <- struct{}{}
	return m.status, m.err
}

func (m *mockPusher) waitForPush(t *testing.T) {
	t.Helper()
	select {
	case <-m.pushed:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a push, none happened")
	}
}

func newTestMessageService() (*application.MessageService, *mockMessageStore, *mockRepoStore, *mockPusher) {
	messages := &mockMessageStore{}
	repos := &mockRepoStore{}
	pusher := newMockPusher()
	svc := application.NewMessageService(messages, repos, pusher, nil)
	return svc, messages, repos, pusher
}

func TestRegisterRepository(t *testing.T) {
	svc, _, _, _ := newTestMessageService()

	repo, created, err := svc.RegisterRepository(context.Background(), "alpha", "https://github.com/alice/alpha")
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.True(t, created)
	assert.Equal(t, "alpha", repo.Name)
	assert.Equal(t, "https://github.com/alice/alpha", repo.URL)
}

func TestRegisterRepository_Idempotent(t *testing.T) {
	svc, _, _, _ := newTestMessageService()
	ctx := context.Background()

	first, created, err := svc.RegisterRepository(ctx, "alpha", "https://github.com/alice/alpha")
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.RegisterRepository(ctx, "renamed", "https://github.com/alice/alpha")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alpha", second.Name, "re-registering does not rename")
}

func TestRegisterRepository_DefaultName(t *testing.T) {
	svc, _, _, _ := newTestMessageService()

	repo, _, err := svc.RegisterRepository(context.Background(), "", "https://github.com/alice/alpha")
	require.NoError(t, err)
	assert.Equal(t, "github.com/alice/alpha", repo.Name)
}

func TestRegisterRepository_Validation(t *testing.T) {
	svc, _, _, _ := newTestMessageService()
	ctx := context.Background()

	for _, url := range []string{"", "   ", "github.com/alice/alpha", "ftp://example.com/x"} {
		_, _, err := svc.RegisterRepository(ctx, "alpha", url)
		require.Error(t, err, "url %q", url)

		var verr *validation.Error
		assert.True(t, errors.As(err, &verr), "url %q should be a validation error", url)
	}
}

func TestListMessages_Defaults(t *testing.T) {
	svc, messages, _, _ := newTestMessageService()
	messages.total = 3

	page, err := svc.ListMessages(context.Background(), application.MessageQuery{})
	require.NoError(t, err)

	assert.Equal(t, application.DefaultPageLimit, page.Limit)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, 3, page.Total)
	assert.False(t, page.HasMore)

	assert.Equal(t, application.DefaultPageLimit, messages.lastFilter.Limit)
	assert.Equal(t, model.SortDesc, messages.lastFilter.Sort, "default order is newest first")
	assert.Nil(t, messages.lastFilter.RepositoryIDs)
	assert.Nil(t, messages.lastFilter.Types)
}

func TestListMessages_HasMore(t *testing.T) {
	svc, messages, _, _ := newTestMessageService()
	messages.total = 50

	page, err := svc.ListMessages(context.Background(), application.MessageQuery{Limit: "10", Offset: "30"})
	require.NoError(t, err)
	assert.True(t, page.HasMore)

	page, err = svc.ListMessages(context.Background(), application.MessageQuery{Limit: "10", Offset: "40"})
	require.NoError(t, err)
	assert.False(t, page.HasMore, "the last page has no more")
}

func TestListMessages_ZeroLimit(t *testing.T) {
	svc, messages, _, _ := newTestMessageService()
	messages.messages = []model.Message{{ID: 1}, {ID: 2}, {ID: 3}}
	messages.total = 3

	page, err := svc.ListMessages(context.Background(), application.MessageQuery{Limit: "0"})
	require.NoError(t, err)

	// limit=0 means an empty page with the counts, never "everything".
	assert.Empty(t, page.Messages)
	assert.Equal(t, 0, page.Limit)
	assert.Equal(t, 3, page.Total)
	assert.True(t, page.HasMore)
}

func TestListMessages_InvalidLimitOffset(t *testing.T) {
	svc, _, _, _ := newTestMessageService()
	ctx := context.Background()

	for _, query := range []application.MessageQuery{
		{Limit: "abc"},
		{Limit: "-1"},
		{Offset: "abc"},
		{Offset: "-5"},
	} {
		_, err := svc.ListMessages(ctx, query)
		require.Error(t, err, "query %+v", query)

		var verr *validation.Error
		assert.True(t, errors.As(err, &verr), "query %+v should be a validation error", query)
	}
}

func TestListMessages_SortFallback(t *testing.T) {
	svc, messages, _, _ := newTestMessageService()
	ctx := context.Background()

	// Unrecognized sort values fall back to the default instead of erroring.
	_, err := svc.ListMessages(ctx, application.MessageQuery{Sort: "sideways"})
	require.NoError(t, err)
	assert.Equal(t, model.SortDesc, messages.lastFilter.Sort)

	_, err = svc.ListMessages(ctx, application.MessageQuery{Sort: "asc"})
	require.NoError(t, err)
	assert.Equal(t, model.SortAsc, messages.lastFilter.Sort, "asc is matched case-insensitively")
}

func TestListMessages_Filters(t *testing.T) {
	svc, messages, _, _ := newTestMessageService()

	_, err := svc.ListMessages(context.Background(), application.MessageQuery{
		Repositories: "1, 3",
		Types:        "issue,local",
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3}, messages.lastFilter.RepositoryIDs)
	assert.Equal(t, []model.MessageType{model.MessageTypeIssue, model.MessageTypeLocal}, messages.lastFilter.Types)
}

func TestListMessages_InvalidFilters(t *testing.T) {
	svc, _, _, _ := newTestMessageService()
	ctx := context.Background()

	_, err := svc.ListMessages(ctx, application.MessageQuery{Repositories: "1,abc"})
	var verr *validation.Error
	require.Error(t, err)
	assert.True(t, errors.As(err, &verr))

	_, err = svc.ListMessages(ctx, application.MessageQuery{Types: "issue,telegram"})
	require.Error(t, err)
	assert.True(t, errors.As(err, &verr))
}

func TestPostMessage(t *testing.T) {
	svc, messages, _, pusher := newTestMessageService()
	messages.localID = 42

	id, err := svc.PostMessage(context.Background(), "hello", "dev")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	// Posting triggers a best-effort push in the background.
	pusher.waitForPush(t)
}

func TestPostMessage_DefaultAuthor(t *testing.T) {
	svc, messages, _, pusher := newTestMessageService()

	_, err := svc.PostMessage(context.Background(), "  hello  ", "   ")
	require.NoError(t, err)

	assert.Equal(t, "hello", messages.localContent, "content is trimmed")
	assert.Equal(t, "Anonymous", messages.localAuthor)

	pusher.waitForPush(t)
}

func TestPostMessage_EmptyContent(t *testing.T) {
	svc, _, _, _ := newTestMessageService()

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := svc.PostMessage(context.Background(), content, "dev")
		require.Error(t, err, "content %q", content)

		var verr *validation.Error
		assert.True(t, errors.As(err, &verr))
	}
}

func TestPostMessage_PushFailureIsNonFatal(t *testing.T) {
	svc, messages, _, pusher := newTestMessageService()
	messages.localID = 7
	pusher.err = errors.New("remote rejected")

	id, err := svc.PostMessage(context.Background(), "hello", "dev")
	require.NoError(t, err, "a failed push never loses the message")
	assert.Equal(t, int64(7), id)

	pusher.waitForPush(t)
}

func TestPushNow(t *testing.T) {
	svc, _, _, pusher := newTestMessageService()
	pusher.status = "nothing to commit"

	status, err := svc.PushNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "nothing to commit", status)
}

func TestPushNow_NoPusherConfigured(t *testing.T) {
	svc := application.NewMessageService(&mockMessageStore{}, &mockRepoStore{}, nil, nil)

	_, err := svc.PushNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no artifact pusher")
}
