// Package model provides data models for the docchat service.
package model

// IngestReport summarizes one ingestion run. Field names follow the
// public API response body.
type IngestReport struct {
	Message          string `json:"message"`
	Collection       string `json:"collection"`
	Source           string `json:"source"`
	DocumentsLoaded  int    `json:"documentsLoaded"`
	ChunksCreated    int    `json:"chunksCreated"`
	VectorsCreated   int    `json:"vectorsCreated"`
	VectorsUpserted  int    `json:"vectorsUpserted"`
	FailedEmbeddings int    `json:"failedEmbeddings"`
	ContentPreview   string `json:"contentPreview"`
	Timestamp        string `json:"timestamp"`
}

// SourceRef is one deduplicated source attached to an answer.
type SourceRef struct {
	Source    string  `json:"source"`
	Score     float64 `json:"score"`
	Relevance string  `json:"relevance"`
}

// QueryResult represents a question answered against a collection.
type QueryResult struct {
	Collection   string      `json:"collection"`
	Question     string      `json:"question"`
	Answer       string      `json:"answer"`
	Sources      []SourceRef `json:"sources"`
	ContextFound bool        `json:"context_found"`
	TotalSources int         `json:"total_sources"`
	Timestamp    string      `json:"timestamp"`
}
