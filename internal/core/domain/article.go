package domain

import "time"

// Article is the unit of work flowing through the pipeline: a fetched
// research article with its extracted text content and any scores computed
// so far. The ID is stable across pipeline stages and is the cache key
// everywhere.
type Article struct {
	// ID is the stable unique identifier (e.g. an arXiv ID).
	ID string

	// Title is the article title.
	Title string

	// URL points at the source document.
	URL string

	// Content is the extracted text used for scoring and summarisation.
	Content string

	// Similarity is the cached or freshly computed embedding similarity
	// score. Nil means not yet scored.
	Similarity *float64

	// Rating is the cached or freshly computed LLM rating score.
	// Nil means not yet scored.
	Rating *float64
}

// HasSimilarity returns true if a similarity score is attached.
func (a *Article) HasSimilarity() bool {
	return a.Similarity != nil
}

// HasRating returns true if a rating score is attached.
func (a *Article) HasRating() bool {
	return a.Rating != nil
}

// Digest is a selected article paired with its generated summary,
// ready for rendering and delivery.
type Digest struct {
	Article Article

	// Summary is the LLM-generated summary text.
	Summary string

	// GeneratedAt records when the summary was produced.
	GeneratedAt time.Time
}
