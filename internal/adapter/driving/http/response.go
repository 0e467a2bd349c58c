package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/repotalk/internal/application"
	"github.com/ericfisherdev/repotalk/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// RegisterRepositoryRequest is the JSON body for the register repository endpoint.
type RegisterRepositoryRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RepositoryResponse is the JSON representation of a tracked repository.
type RepositoryResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	URL        string  `json:"url"`
	LastSynced *string `json:"last_synced"`
	IsActive   bool    `json:"is_active"`
}

// RepositoriesResponse is the envelope for the repository listing.
type RepositoriesResponse struct {
	Repositories []RepositoryResponse `json:"repositories"`
}

// MessageResponse is the JSON representation of one feed entry.
type MessageResponse struct {
	ID           int64  `json:"id"`
	RepositoryID int64  `json:"repository_id"`
	Content      string `json:"content"`
	Timestamp    string `json:"timestamp"`
	Author       string `json:"author"`
	URL          string `json:"url,omitempty"`
	MessageType  string `json:"message_type"`
	ParentTitle  string `json:"parent_title,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// PaginationResponse carries the metadata for one page of the feed.
type PaginationResponse struct {
	Total   int  `json:"total"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// MessagesResponse is the envelope for the feed listing.
type MessagesResponse struct {
	Messages   []MessageResponse  `json:"messages"`
	Pagination PaginationResponse `json:"pagination"`
}

// PostMessageRequest is the JSON body for the post message endpoint.
type PostMessageRequest struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

// PostMessageResponse acknowledges a stored local message.
type PostMessageResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

// PushResponse reports the outcome of a manual push.
type PushResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toRepositoryResponse converts a domain Repository to its JSON representation.
func toRepositoryResponse(repo model.Repository) RepositoryResponse {
	var lastSynced *string
	if repo.LastSynced != nil {
		s := repo.LastSynced.UTC().Format(time.RFC3339)
		lastSynced = &s
	}

	return RepositoryResponse{
		ID:         repo.ID,
		Name:       repo.Name,
		URL:        repo.URL,
		LastSynced: lastSynced,
		IsActive:   repo.IsActive,
	}
}

// toMessageResponse converts a domain Message to its JSON representation.
func toMessageResponse(msg model.Message) MessageResponse {
	return MessageResponse{
		ID:           msg.ID,
		RepositoryID: msg.RepositoryID,
		Content:      msg.Content,
		Timestamp:    msg.Timestamp.UTC().Format(time.RFC3339),
		Author:       msg.Author,
		URL:          msg.URL,
		MessageType:  string(msg.Type),
		ParentTitle:  msg.ParentTitle,
		CreatedAt:    msg.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toMessagesResponse converts a façade page to its JSON envelope.
func toMessagesResponse(page *application.MessagePage) MessagesResponse {
	messages := make([]MessageResponse, 0, len(page.Messages))
	for _, msg := range page.Messages {
		messages = append(messages, toMessageResponse(msg))
	}

	return MessagesResponse{
		Messages: messages,
		Pagination: PaginationResponse{
			Total:   page.Total,
			Offset:  page.Offset,
			Limit:   page.Limit,
			HasMore: page.HasMore,
		},
	}
}

// nowRFC3339 renders the current UTC time for the health endpoint.
func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
