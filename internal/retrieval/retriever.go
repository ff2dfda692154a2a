// Package retrieval turns a user query into ranked document context
// fragments from the hybrid index.
package retrieval

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"propchat/internal/model"
	"propchat/internal/platform/logger"
	"propchat/internal/searchindex"
)

// Embedder produces the query vector for hybrid search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchClient runs index queries. Results arrive rank-ordered.
type SearchClient interface {
	Hybrid(ctx context.Context, query string, vector []float32, top int) ([]searchindex.Document, error)
	Keyword(ctx context.Context, query string, top int) ([]searchindex.Document, error)
}

// URLSigner issues time-limited download URLs for indexed blobs.
type URLSigner interface {
	SignedDownloadURL(objectName string) (string, error)
}

// Retriever fetches indexed context for a query. Search degradation never
// surfaces as an error: a failed hybrid query falls back to keyword-only
// search, and a failed fallback yields an empty context.
type Retriever struct {
	embedder     Embedder
	search       SearchClient
	signer       URLSigner // nil when no blob store is configured
	maxResults   int
	maxPerDoc    int
	contentLimit int
	log          *logger.Logger
}

func New(embedder Embedder, search SearchClient, signer URLSigner, maxResults, maxPerDoc, contentLimit int, log *logger.Logger) *Retriever {
	if maxResults <= 0 {
		maxResults = 15
	}
	if maxPerDoc <= 0 {
		maxPerDoc = 7
	}
	if contentLimit <= 0 {
		contentLimit = 5000
	}
	return &Retriever{
		embedder:     embedder,
		search:       search,
		signer:       signer,
		maxResults:   maxResults,
		maxPerDoc:    maxPerDoc,
		contentLimit: contentLimit,
		log:          log,
	}
}

// Retrieve returns up to maxResults fragments in index rank order, with at
// most maxPerDoc fragments per parent document.
func (r *Retriever) Retrieve(ctx context.Context, query string) []model.ContextFragment {
	docs, err := r.hybridSearch(ctx, query)
	if err != nil {
		r.log.Warn("hybrid search failed, falling back to keyword search",
			"query_length", len(query), "error", err)
		return r.keywordFallback(ctx, query)
	}
	return r.shape(docs, false)
}

func (r *Retriever) hybridSearch(ctx context.Context, query string) ([]searchindex.Document, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	// The client overfetches so per-document capping can still fill the
	// result budget.
	return r.search.Hybrid(ctx, query, vector, r.maxResults)
}

func (r *Retriever) keywordFallback(ctx context.Context, query string) []model.ContextFragment {
	docs, err := r.search.Keyword(ctx, query, r.maxResults)
	if err != nil {
		r.log.Error("keyword fallback search failed, returning empty context", "error", err)
		return nil
	}
	return r.shape(docs, true)
}

// shape walks rank-ordered hits, capping fragments per parent document and
// truncating oversized chunk content. The fallback path drops hits whose
// filename cannot be resolved because keyword-only matches carry weaker
// metadata.
func (r *Retriever) shape(docs []searchindex.Document, skipUnknown bool) []model.ContextFragment {
	perParent := make(map[string]int)
	fragments := make([]model.ContextFragment, 0, r.maxResults)

	for i, doc := range docs {
		if len(fragments) >= r.maxResults {
			break
		}

		filename := resolveFilename(doc)
		if skipUnknown && filename == model.UnknownDocument {
			continue
		}

		key := parentKey(doc, i)
		if perParent[key] >= r.maxPerDoc {
			continue
		}
		// Empty chunks are dropped without consuming the document's cap.
		if doc.Content == "" {
			continue
		}
		perParent[key]++

		page := doc.PageNumber
		if page <= 0 {
			page = 1
		}
		fragments = append(fragments, model.ContextFragment{
			Content:     truncate(doc.Content, r.contentLimit),
			Filename:    filename,
			SourceType:  model.SourceIndexed,
			PageNumber:  page,
			ParentID:    doc.ParentID,
			DownloadURL: r.downloadURL(doc, filename),
			ChunkNumber: doc.ChunkNumber,
		})
	}
	return fragments
}

func (r *Retriever) downloadURL(doc searchindex.Document, filename string) string {
	if r.signer == nil {
		return ""
	}
	objectName := doc.BlobName
	if objectName == "" {
		objectName = filename
	}
	signed, err := r.signer.SignedDownloadURL(objectName)
	if err != nil {
		r.log.Warn("signing download url failed", "filename", filename, "error", err)
		return ""
	}
	return signed
}

// parentKey groups chunks of the same document. Orphan chunks without a
// parent id get a synthetic per-hit key so they never crowd each other out.
func parentKey(doc searchindex.Document, rank int) string {
	if doc.ParentID != "" {
		return doc.ParentID
	}
	if doc.ChunkID != "" {
		return doc.ChunkID
	}
	return fmt.Sprintf("standalone_%d", rank)
}

// resolveFilename tries index metadata fields from most to least reliable.
func resolveFilename(doc searchindex.Document) string {
	if title := strings.TrimSpace(doc.Title); title != "" {
		return title
	}
	if fp := strings.TrimSpace(doc.Filepath); fp != "" {
		return path.Base(fp)
	}
	if doc.ParentID != "" {
		if u, err := url.Parse(doc.ParentID); err == nil && u.Path != "" {
			base := path.Base(u.Path)
			if decoded, err := url.QueryUnescape(base); err == nil {
				base = decoded
			}
			if base != "" && base != "." && base != "/" {
				return base
			}
		}
	}
	return model.UnknownDocument
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
