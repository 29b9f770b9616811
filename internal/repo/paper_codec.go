package repo

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/xxxsen/papershelf/internal/model"
	appErr "github.com/xxxsen/papershelf/internal/pkg/errors"
)

// PaperRow is the stored form of a paper: scalar metadata plus three JSON
// encoded columns.
type PaperRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	Authors   string `db:"authors"`
	Tags      string `db:"tags"`
	Date      string `db:"date"`
	PaperLink string `db:"paperLink"`
	Sections  string `db:"sections"`
}

// paperRecord is what the scan sees: rows written by older clients may carry
// NULL in any column.
type paperRecord struct {
	ID        string         `db:"id"`
	Title     sql.NullString `db:"title"`
	Authors   sql.NullString `db:"authors"`
	Tags      sql.NullString `db:"tags"`
	Date      sql.NullString `db:"date"`
	PaperLink sql.NullString `db:"paperLink"`
	Sections  sql.NullString `db:"sections"`
}

// toRow reads NULL as empty text. Empty aggregate columns are rejected when
// decoded.
func (r *paperRecord) toRow() PaperRow {
	return PaperRow{
		ID:        r.ID,
		Title:     r.Title.String,
		Authors:   r.Authors.String,
		Tags:      r.Tags.String,
		Date:      r.Date.String,
		PaperLink: r.PaperLink.String,
		Sections:  r.Sections.String,
	}
}

func (r *PaperRow) toMap() map[string]interface{} {
	return map[string]interface{}{
		"id":        r.ID,
		"title":     r.Title,
		"authors":   r.Authors,
		"tags":      r.Tags,
		"date":      r.Date,
		"paperLink": r.PaperLink,
		"sections":  r.Sections,
	}
}

func EncodePaper(p *model.Paper) (*PaperRow, error) {
	authors, err := encodeStrings(p.Meta.Authors)
	if err != nil {
		return nil, fmt.Errorf("encode authors: %w", err)
	}
	tags, err := encodeStrings(p.Meta.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	sections, err := EncodeSections(p.Sections)
	if err != nil {
		return nil, err
	}
	return &PaperRow{
		ID:        p.ID,
		Title:     p.Meta.Title,
		Authors:   authors,
		Tags:      tags,
		Date:      p.Meta.Date,
		PaperLink: p.Meta.PaperLink,
		Sections:  sections,
	}, nil
}

func DecodePaper(row *PaperRow) (*model.Paper, error) {
	meta, err := decodeMeta(row)
	if err != nil {
		return nil, err
	}
	sections, err := DecodeSections(row.ID, row.Sections)
	if err != nil {
		return nil, err
	}
	return &model.Paper{ID: row.ID, Meta: meta, Sections: sections}, nil
}

// DecodeSummary decodes only the metadata columns; Sections is ignored.
func DecodeSummary(row *PaperRow) (*model.PaperSummary, error) {
	meta, err := decodeMeta(row)
	if err != nil {
		return nil, err
	}
	return &model.PaperSummary{ID: row.ID, Meta: meta}, nil
}

func EncodeSections(sections []model.Section) (string, error) {
	normalized := make([]model.Section, len(sections))
	for i, s := range sections {
		if s.Content == nil {
			s.Content = []string{}
		}
		normalized[i] = s
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return "", fmt.Errorf("encode sections: %w", err)
	}
	return string(raw), nil
}

// storedSection mirrors model.Section with nullable content entries so that a
// null entry is reported instead of read as "".
type storedSection struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Type    model.SectionType `json:"type"`
	Content []*string         `json:"content"`
}

func DecodeSections(paperID, raw string) ([]model.Section, error) {
	if raw == "" {
		return nil, malformed(paperID, "sections", "null or empty")
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, malformed(paperID, "sections", err.Error())
	}
	if items == nil {
		return nil, malformed(paperID, "sections", "not an array")
	}
	sections := make([]model.Section, 0, len(items))
	for i, item := range items {
		if !bytes.HasPrefix(bytes.TrimSpace(item), []byte("{")) {
			return nil, malformed(paperID, "sections", fmt.Sprintf("entry %d is not an object", i))
		}
		var s storedSection
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, malformed(paperID, "sections", fmt.Sprintf("entry %d: %v", i, err))
		}
		if s.Content == nil {
			return nil, malformed(paperID, "sections", fmt.Sprintf("entry %d has no content array", i))
		}
		content, err := derefStrings(paperID, fmt.Sprintf("sections[%d].content", i), s.Content)
		if err != nil {
			return nil, err
		}
		sections = append(sections, model.Section{ID: s.ID, Title: s.Title, Type: s.Type, Content: content})
	}
	return sections, nil
}

func decodeMeta(row *PaperRow) (model.PaperMeta, error) {
	authors, err := decodeStrings(row.ID, "authors", row.Authors)
	if err != nil {
		return model.PaperMeta{}, err
	}
	tags, err := decodeStrings(row.ID, "tags", row.Tags)
	if err != nil {
		return model.PaperMeta{}, err
	}
	return model.PaperMeta{
		Title:     row.Title,
		Authors:   authors,
		Tags:      tags,
		Date:      row.Date,
		PaperLink: row.PaperLink,
	}, nil
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeStrings(paperID, column, raw string) ([]string, error) {
	if raw == "" {
		return nil, malformed(paperID, column, "null or empty")
	}
	var items []*string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, malformed(paperID, column, err.Error())
	}
	if items == nil {
		return nil, malformed(paperID, column, "not an array")
	}
	return derefStrings(paperID, column, items)
}

func derefStrings(paperID, column string, items []*string) ([]string, error) {
	out := make([]string, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, malformed(paperID, column, fmt.Sprintf("entry %d is null", i))
		}
		out = append(out, *item)
	}
	return out, nil
}

func malformed(paperID, column, reason string) error {
	return fmt.Errorf("%w: paper %s column %s: %s", appErr.ErrMalformedRecord, paperID, column, reason)
}
