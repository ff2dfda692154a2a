package model

// SourceType tags a context fragment with its provenance.
type SourceType string

const (
	SourceUploaded SourceType = "uploaded"
	SourceIndexed  SourceType = "indexed"
)

// UnknownDocument is the filename sentinel used when a search result carries
// no resolvable title, filepath, or parent path.
const UnknownDocument = "Unknown Document"

// ContextFragment is one retrievable unit of document text. Fragments are
// created per request and never mutated afterwards.
type ContextFragment struct {
	Content     string     `json:"content"`
	Filename    string     `json:"filename"`
	SourceType  SourceType `json:"source_type"`
	PageNumber  int        `json:"page_number"`
	ParentID    string     `json:"parent_id,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
	ChunkNumber *int       `json:"chunk_number,omitempty"`
}

// Source is a deduplicated, renumbered citation target exposed to the caller.
// Exactly one Source exists per distinct cited filename; citation numbers are
// dense starting at 1.
type Source struct {
	Filename       string     `json:"filename"`
	SourceType     SourceType `json:"source_type"`
	DownloadURL    string     `json:"download_url,omitempty"`
	CitationNumber int        `json:"citation_number"`
}

// ConversationTurn is one query/response exchange in a session's history.
type ConversationTurn struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// PageText is one page of extracted document text.
type PageText struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// SessionDocument is a user-uploaded document held for the lifetime of a
// session.
type SessionDocument struct {
	Filename  string     `json:"filename"`
	Content   string     `json:"content"`
	PageTexts []PageText `json:"page_texts"`
	PageCount int        `json:"page_count"`
}
