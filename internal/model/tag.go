package model

// TagSummary is one distinct tag and the number of papers carrying it.
type TagSummary struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
