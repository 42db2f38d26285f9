// Package queue defines activity events exchanged over the message broker
// and the background consumer that records them.
package queue

// Queue names. One queue per event type, durable.
const (
	BookUploadedQueue = "book.uploaded"
	ReviewPostedQueue = "review.posted"
)

// BookUploadedEvent is published when a user successfully shares a book.
// It carries enough information for downstream consumers to log or notify
// without querying the primary database.
type BookUploadedEvent struct {
	BookID     int64  `json:"book_id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	GenreID    int64  `json:"genre_id"`
	LanguageID int64  `json:"language_id"`
	UploadedAt string `json:"uploaded_at"`
}

// ReviewPostedEvent is published when a review is created.
type ReviewPostedEvent struct {
	ReviewID int64  `json:"review_id"`
	BookID   int64  `json:"book_id"`
	Title    string `json:"title"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	PostedAt string `json:"posted_at"`
}
