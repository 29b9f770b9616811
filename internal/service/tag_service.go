package service

import (
	"context"
	"sort"

	"github.com/xxxsen/papershelf/internal/model"
	"github.com/xxxsen/papershelf/internal/repo"
)

type TagService struct {
	papers *repo.PaperRepo
}

func NewTagService(papers *repo.PaperRepo) *TagService {
	return &TagService{papers: papers}
}

// List returns every distinct tag, most used first and then by name.
// A tag repeated on one paper counts once for that paper.
func (s *TagService) List(ctx context.Context) ([]model.TagSummary, error) {
	rows, err := s.papers.ListSummaries(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for i := range rows {
		summary, err := repo.DecodeSummary(&rows[i])
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(summary.Meta.Tags))
		for _, tag := range summary.Meta.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			counts[tag]++
		}
	}
	tags := make([]model.TagSummary, 0, len(counts))
	for name, count := range counts {
		tags = append(tags, model.TagSummary{Name: name, Count: count})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return tags[i].Name < tags[j].Name
	})
	return tags, nil
}
