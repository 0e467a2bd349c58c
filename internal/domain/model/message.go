package model

import "time"

// MessageType identifies where a message originated.
type MessageType string

const (
	MessageTypeIssue             MessageType = "issue"
	MessageTypeComment           MessageType = "comment"
	MessageTypeDiscussion        MessageType = "discussion"
	MessageTypeDiscussionComment MessageType = "discussion_comment"
	MessageTypeLocal             MessageType = "local"
)

// AllMessageTypes lists every valid MessageType, in display order.
var AllMessageTypes = []MessageType{
	MessageTypeIssue,
	MessageTypeComment,
	MessageTypeDiscussion,
	MessageTypeDiscussionComment,
	MessageTypeLocal,
}

// Valid reports whether t is one of the enumerated message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeIssue, MessageTypeComment, MessageTypeDiscussion,
		MessageTypeDiscussionComment, MessageTypeLocal:
		return true
	}
	return false
}

// Message is one entry in the aggregated feed. Messages are immutable once
// stored: there is no update or delete path.
type Message struct {
	ID           int64
	RepositoryID int64
	Content      string
	// Timestamp is the source event time (issue created, comment posted).
	// It drives feed ordering.
	Timestamp time.Time
	Author    string
	// URL is the canonical link to the item on the source. Empty for
	// locally authored messages.
	URL  string
	Type MessageType
	// ParentTitle is the title of the enclosing issue or discussion.
	// Set only for comments and discussion replies.
	ParentTitle string
	// CreatedAt is the local ingestion time, kept for audit only.
	CreatedAt time.Time
}

// SourceItem is the normalized shape both retrieval paths (issue threads and
// discussions) produce before merging into the store.
type SourceItem struct {
	Content     string
	Timestamp   time.Time
	Author      string
	URL         string
	Type        MessageType
	ParentTitle string
}

// SortOrder controls feed ordering by source timestamp.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// MessageFilter narrows and pages a feed read. Zero-value slices mean no
// filtering on that dimension; Limit <= 0 means no limit.
type MessageFilter struct {
	RepositoryIDs []int64
	Types         []MessageType
	Limit         int
	Offset        int
	Sort          SortOrder
}
