package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/papershelf/internal/pkg/response"
	"github.com/xxxsen/papershelf/internal/service"
)

type TagHandler struct {
	tags *service.TagService
}

func NewTagHandler(tags *service.TagService) *TagHandler {
	return &TagHandler{tags: tags}
}

func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.tags.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, tags)
}
