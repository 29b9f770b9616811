package service

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/xxxsen/papershelf/internal/model"
	appErr "github.com/xxxsen/papershelf/internal/pkg/errors"
)

type seedPaper struct {
	Meta     *model.PaperMeta `json:"meta"`
	Sections []model.Section  `json:"sections"`
}

// ReadSeed parses a JSON array of {meta, sections} documents.
func ReadSeed(r io.Reader) ([]CreatePaperInput, error) {
	var items []seedPaper
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: decode seed: %v", appErr.ErrInvalidInput, err)
	}
	inputs := make([]CreatePaperInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, CreatePaperInput{Meta: item.Meta, Sections: item.Sections})
	}
	return inputs, nil
}

func ReadSeedFile(path string) ([]CreatePaperInput, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer file.Close()
	return ReadSeed(file)
}
