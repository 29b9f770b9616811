package model

type SectionType string

const (
	SectionTypeText    SectionType = "text"
	SectionTypeGallery SectionType = "gallery"
)

func (t SectionType) Valid() bool {
	return t == SectionTypeText || t == SectionTypeGallery
}

// PaperMeta is the descriptive part of a paper. Date is free-form text and is
// compared as a plain string when picking the latest paper.
type PaperMeta struct {
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Tags      []string `json:"tags"`
	Date      string   `json:"date"`
	PaperLink string   `json:"paperLink"`
}

// Section content holds paragraphs for text sections and image references for
// gallery sections.
type Section struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Type    SectionType `json:"type"`
	Content []string    `json:"content"`
}

type Paper struct {
	ID       string    `json:"id"`
	Meta     PaperMeta `json:"meta"`
	Sections []Section `json:"sections"`
}

type PaperSummary struct {
	ID   string    `json:"id"`
	Meta PaperMeta `json:"meta"`
}

func (m PaperMeta) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
