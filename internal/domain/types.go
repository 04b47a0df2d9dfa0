package domain

// Segment is a contiguous run of document pages that belongs to one
// detected feature label. Pages are 1-indexed and inclusive.
type Segment struct {
	Feature   string `json:"feature"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	Content   string `json:"content"`
}

// EmbeddedRecord is a segment ready to be uploaded to the vector store.
type EmbeddedRecord struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	Metadata      string    `json:"metadata"`
	ContentVector []float32 `json:"content_vector"`
}

// IndexedDocument is a record as returned by the vector store, ranked by
// the store's own similarity score.
type IndexedDocument struct {
	ID       string
	Content  string
	Metadata string
	Score    float64
}
