package application

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/repotalk/internal/domain/model"
	"github.com/ericfisherdev/repotalk/internal/domain/port/driven"
	"github.com/ericfisherdev/repotalk/internal/domain/validation"
)

// DefaultPageLimit is the page size applied when a feed read does not
// specify one.
const DefaultPageLimit = 20

// anonymousAuthor is recorded when a local post carries no author.
const anonymousAuthor = "Anonymous"

// MessageService is the command/query façade consumed by the HTTP layer.
// It validates inputs, translates them into store contract calls, and owns
// no state of its own.
type MessageService struct {
	messages driven.MessageStore
	repos    driven.RepoStore
	pusher   driven.ArtifactPusher
	sync     *SyncService // nil when remote syncing is not configured
}

// NewMessageService creates a MessageService with all required dependencies.
// sync may be nil when no source credentials are configured; registration
// then skips the immediate first sync. pusher may be nil when no artifact
// remote is configured; pushes then report an error instead of running.
func NewMessageService(
	messages driven.MessageStore,
	repos driven.RepoStore,
	pusher driven.ArtifactPusher,
	sync *SyncService,
) *MessageService {
	return &MessageService{
		messages: messages,
		repos:    repos,
		pusher:   pusher,
		sync:     sync,
	}
}

// MessageQuery carries the raw feed-read parameters as received from the
// caller. The façade owns parsing and validation.
type MessageQuery struct {
	Limit        string
	Offset       string
	Sort         string
	Repositories string // comma-separated repository ids
	Types        string // comma-separated message types
}

// MessagePage is one page of the feed plus pagination metadata.
type MessagePage struct {
	Messages []model.Message
	Total    int
	Offset   int
	Limit    int
	HasMore  bool
}

// RegisterRepository registers a source repository for syncing. Registration
// is idempotent on url: re-registering returns the existing repository with
// created == false. A newly registered repository receives an immediate
// out-of-band first sync.
func (s *MessageService) RegisterRepository(ctx context.Context, name, url string) (*model.Repository, bool, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, false, validation.Errorf("url", "url is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, false, validation.Errorf("url", "url must start with http:// or https://")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	}

	existing, err := s.repos.GetByURL(ctx, url)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		slog.Info("repository already registered", "repo", url, "id", existing.ID)
		return existing, false, nil
	}

	if _, err := s.repos.AddOrGet(ctx, name, url); err != nil {
		return nil, false, err
	}

	repo, err := s.repos.GetByURL(ctx, url)
	if err != nil {
		return nil, false, err
	}
	if repo == nil {
		// AddOrGet just returned an id for this url.
		return nil, false, driven.ErrRepoNotFound
	}

	if s.sync != nil {
		// Fire-and-forget with a background context: the request context
		// is canceled once the response is sent. A stopped scheduler just
		// means the process is shutting down.
		go func() {
			err := s.sync.SyncRepo(context.Background(), url)
			if err != nil && !errors.Is(err, ErrSchedulerStopped) {
				slog.Error("initial sync failed", "repo", url, "error", err)
			}
		}()
	}

	slog.Info("repository registered", "repo", url, "id", repo.ID)
	return repo, true, nil
}

// ListRepositories returns every registered repository, active or not.
func (s *MessageService) ListRepositories(ctx context.Context) ([]model.Repository, error) {
	return s.repos.ListAll(ctx, false)
}

// ListMessages validates and applies the query, returning one page of the
// feed. Unparseable limit/offset values are validation errors; an
// unrecognized sort value falls back to the default (DESC) rather than
// erroring.
func (s *MessageService) ListMessages(ctx context.Context, query MessageQuery) (*MessagePage, error) {
	limit := DefaultPageLimit
	if query.Limit != "" {
		parsed, err := strconv.Atoi(query.Limit)
		if err != nil || parsed < 0 {
			return nil, validation.Errorf("limit", "must be a non-negative integer, got %q", query.Limit)
		}
		limit = parsed
	}

	offset := 0
	if query.Offset != "" {
		parsed, err := strconv.Atoi(query.Offset)
		if err != nil || parsed < 0 {
			return nil, validation.Errorf("offset", "must be a non-negative integer, got %q", query.Offset)
		}
		offset = parsed
	}

	sort := model.SortDesc
	if strings.EqualFold(query.Sort, string(model.SortAsc)) {
		sort = model.SortAsc
	}

	repoIDs, err := parseRepositoryIDs(query.Repositories)
	if err != nil {
		return nil, err
	}

	types, err := parseMessageTypes(query.Types)
	if err != nil {
		return nil, err
	}

	filter := model.MessageFilter{
		RepositoryIDs: repoIDs,
		Types:         types,
		Limit:         limit,
		Offset:        offset,
		Sort:          sort,
	}

	// limit=0 is a legal page size: counts only, no rows. The store treats
	// a non-positive limit as "unlimited", so it must not see the zero.
	if limit == 0 {
		total, err := s.messages.Count(ctx, filter)
		if err != nil {
			return nil, err
		}
		return &MessagePage{
			Total:   total,
			Offset:  offset,
			Limit:   limit,
			HasMore: offset+limit < total,
		}, nil
	}

	messages, total, err := s.messages.Page(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &MessagePage{
		Messages: messages,
		Total:    total,
		Offset:   offset,
		Limit:    limit,
		HasMore:  offset+limit < total,
	}, nil
}

// PostMessage appends a locally authored message and triggers a best-effort
// push of the durable artifact. A push failure never affects the already
// committed store write.
func (s *MessageService) PostMessage(ctx context.Context, content, author string) (int64, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, validation.Errorf("content", "content is required")
	}

	author = strings.TrimSpace(author)
	if author == "" {
		author = anonymousAuthor
	}

	id, err := s.messages.AppendLocal(ctx, content, author, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	if s.pusher != nil {
		go func() {
			if _, err := s.pusher.Push(context.Background()); err != nil {
				slog.Warn("best-effort push failed", "error", err)
			}
		}()
	}

	return id, nil
}

// PushNow runs the stage/commit/push sequence on demand and reports the
// outcome to the caller.
func (s *MessageService) PushNow(ctx context.Context) (string, error) {
	if s.pusher == nil {
		return "", errors.New("no artifact pusher configured")
	}
	return s.pusher.Push(ctx)
}

func parseRepositoryIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, validation.Errorf("repositories", "invalid repository id %q", part)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func parseMessageTypes(raw string) ([]model.MessageType, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var types []model.MessageType
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t := model.MessageType(part)
		if !t.Valid() {
			return nil, validation.Errorf("types", "unknown message type %q", part)
		}
		types = append(types, t)
	}

	return types, nil
}
