package domain

import "time"

// Document is one question/answer pair. It is persisted as markdown in the
// object store and chunked into the search index.
type Document struct {
	Key        string
	Question   string
	Answer     string
	Metadata   string
	UploadedAt time.Time
}

type AddTextResult struct {
	Message    string    `json:"message"`
	Title      string    `json:"title"`
	Chunks     int       `json:"chunks"`
	Files      []string  `json:"files"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type SearchResult struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}
