package model

import "time"

// Book represents a shared book record in the `books` table. The file and
// thumbnail URLs point at externally hosted objects; this service only
// stores the links.
//
// Fields:
//  ID           – primary key identifier of the book.
//  Title        – book title.
//  Description  – free text description.
//  Author       – author of the book (not the uploading user).
//  Published    – publication date (DATE column, midnight UTC).
//  Pages        – page count.
//  BookURL      – download link of the uploaded book file.
//  ThumbnailURL – link of the cover image.
//  LanguageID   – foreign key into the languages table.
//  GenreID      – foreign key into the genres table.
//  UserID       – uploading user (owner).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Book struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Author       string    `json:"author"`
	Published    time.Time `json:"published"`
	Pages        int       `json:"pages"`
	BookURL      string    `json:"bookUrl"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	LanguageID   int64     `json:"languageId"`
	GenreID      int64     `json:"genreId"`
	UserID       int64     `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Genre represents a row in the `genres` table.
type Genre struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Language represents a row in the `languages` table.
type Language struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Review represents a user's review of a book. Rating is constrained to
// the 1..10 range at the service layer.
//
// Fields:
//  ID      – primary key identifier.
//  Content – review text.
//  Rating  – score between 1 and 10.
//  BookID  – reviewed book.
//  UserID  – review author.
type Review struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	Rating  int    `json:"rating"`
	BookID  int64  `json:"bookId"`
	UserID  int64  `json:"userId"`
}
