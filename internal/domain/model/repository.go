package model

import "time"

// Repository is a tracked message source. The url is the natural key:
// registering the same url twice yields the same repository.
type Repository struct {
	ID   int64
	Name string
	URL  string
	// LastSynced is the incremental-fetch watermark. Nil until the first
	// successful sync cycle.
	LastSynced *time.Time
	// IsActive is a soft flag; repositories are never hard-deleted.
	IsActive bool
}

// LocalRepositoryURL is the url of the seeded repository that holds locally
// authored messages.
const LocalRepositoryURL = "local"
