package domain

import "time"

type Collection string

const (
	CollectionBooks              Collection = "books"
	CollectionUsers              Collection = "users"
	CollectionLoans              Collection = "loans"
	CollectionReturnRequests     Collection = "returnRequests"
	CollectionMembershipRequests Collection = "membershipRequests"
	CollectionSettings           Collection = "settings"
	CollectionReviews            Collection = "reviews"
)

type ChangeOp string

const (
	ChangeOpCreated ChangeOp = "created"
	ChangeOpUpdated ChangeOp = "updated"
	ChangeOpDeleted ChangeOp = "deleted"
)

// ChangeEvent tells subscribers that a document changed; they re-read it.
type ChangeEvent struct {
	Collection Collection `json:"collection"`
	ID         string     `json:"id"`
	Op         ChangeOp   `json:"op"`
	At         time.Time  `json:"at"`
}
