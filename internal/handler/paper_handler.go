package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/papershelf/internal/model"
	"github.com/xxxsen/papershelf/internal/pkg/response"
	"github.com/xxxsen/papershelf/internal/service"
)

type PaperHandler struct {
	papers *service.PaperService
}

func NewPaperHandler(papers *service.PaperService) *PaperHandler {
	return &PaperHandler{papers: papers}
}

// String lists are bound as []*string so that a null entry is rejected
// instead of read as "".
type paperMetaRequest struct {
	Title     string    `json:"title"`
	Authors   []*string `json:"authors"`
	Tags      []*string `json:"tags"`
	Date      string    `json:"date"`
	PaperLink string    `json:"paperLink"`
}

type sectionRequest struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Type    model.SectionType `json:"type"`
	Content []*string         `json:"content"`
}

type createPaperRequest struct {
	Meta     *paperMetaRequest `json:"meta" binding:"required"`
	Sections []sectionRequest  `json:"sections" binding:"required"`
}

type sectionContentRequest struct {
	Content *[]*string `json:"content" binding:"required"`
}

func (r *createPaperRequest) toInput() (service.CreatePaperInput, error) {
	authors, err := nonNullStrings("meta.authors", r.Meta.Authors)
	if err != nil {
		return service.CreatePaperInput{}, err
	}
	tags, err := nonNullStrings("meta.tags", r.Meta.Tags)
	if err != nil {
		return service.CreatePaperInput{}, err
	}
	sections := make([]model.Section, 0, len(r.Sections))
	for i, s := range r.Sections {
		content, err := nonNullStrings(fmt.Sprintf("sections[%d].content", i), s.Content)
		if err != nil {
			return service.CreatePaperInput{}, err
		}
		sections = append(sections, model.Section{ID: s.ID, Title: s.Title, Type: s.Type, Content: content})
	}
	return service.CreatePaperInput{
		Meta: &model.PaperMeta{
			Title:     r.Meta.Title,
			Authors:   authors,
			Tags:      tags,
			Date:      r.Meta.Date,
			PaperLink: r.Meta.PaperLink,
		},
		Sections: sections,
	}, nil
}

func nonNullStrings(field string, items []*string) ([]string, error) {
	if items == nil {
		return nil, nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("%s entry %d is null", field, i)
		}
		out = append(out, *item)
	}
	return out, nil
}

// queryCount parses an optional non-negative integer query parameter; absent
// means zero.
func queryCount(c *gin.Context, name string) (int, error) {
	value := c.Query(name)
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return parsed, nil
}

func (h *PaperHandler) List(c *gin.Context) {
	limit, err := queryCount(c, "limit")
	if err != nil {
		invalidRequest(c, err.Error())
		return
	}
	offset, err := queryCount(c, "offset")
	if err != nil {
		invalidRequest(c, err.Error())
		return
	}
	opts := service.ListOptions{Tag: c.Query("tag"), Limit: limit, Offset: offset}
	items, err := h.papers.List(c.Request.Context(), opts)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}

func (h *PaperHandler) Get(c *gin.Context) {
	paper, err := h.papers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, paper)
}

func (h *PaperHandler) Latest(c *gin.Context) {
	paper, err := h.papers.Latest(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, paper)
}

func (h *PaperHandler) Create(c *gin.Context) {
	var req createPaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "invalid data structure")
		return
	}
	input, err := req.toInput()
	if err != nil {
		invalidRequest(c, err.Error())
		return
	}
	id, err := h.papers.Create(c.Request.Context(), input)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, gin.H{"message": "Paper created", "id": id})
}

// ReplaceLatestSection and DeleteLatestSection act on the latest paper; the
// paper-addressed variants below take the paper id from the path.
func (h *PaperHandler) ReplaceLatestSection(c *gin.Context) {
	h.replaceSection(c, "", c.Param("id"))
}

func (h *PaperHandler) DeleteLatestSection(c *gin.Context) {
	h.deleteSection(c, "", c.Param("id"))
}

func (h *PaperHandler) ReplaceSection(c *gin.Context) {
	h.replaceSection(c, c.Param("id"), c.Param("sectionId"))
}

func (h *PaperHandler) DeleteSection(c *gin.Context) {
	h.deleteSection(c, c.Param("id"), c.Param("sectionId"))
}

func (h *PaperHandler) replaceSection(c *gin.Context, paperID, sectionID string) {
	var req sectionContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, "content must be an array")
		return
	}
	content, err := nonNullStrings("content", *req.Content)
	if err != nil {
		invalidRequest(c, err.Error())
		return
	}
	updated, err := h.papers.ReplaceSection(c.Request.Context(), paperID, sectionID, content)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, updated)
}

func (h *PaperHandler) deleteSection(c *gin.Context, paperID, sectionID string) {
	if err := h.papers.DeleteSection(c.Request.Context(), paperID, sectionID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"success": true})
}

func (h *PaperHandler) Health(c *gin.Context) {
	count, err := h.papers.Count(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true, "papers": count})
}
