package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"swipe_server/core/domain"
	"swipe_server/core/port/out"
	"swipe_server/core/service/normalize"
)

// MockSource serves a fixed dataset from disk. The file is re-read on every fetch.
type MockSource struct {
	path       string
	normalizer *normalize.Normalizer
}

var _ out.EmailSource = (*MockSource)(nil)

func NewMockSource(path string, normalizer *normalize.Normalizer) *MockSource {
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}
	return &MockSource{path: path, normalizer: normalizer}
}

// Name returns the source name.
func (s *MockSource) Name() string {
	return "mock"
}

// Fetch loads the dataset. A missing file yields an empty batch.
func (s *MockSource) Fetch(ctx context.Context, max int) ([]domain.NormalizedEmail, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.NormalizedEmail{}, nil
		}
		return nil, fmt.Errorf("read mock dataset: %w", err)
	}

	records, err := decodeRecords(s.path, data)
	if err != nil {
		return nil, fmt.Errorf("decode mock dataset %s: %w", filepath.Base(s.path), err)
	}

	emails := make([]domain.NormalizedEmail, 0, len(records))
	for i, rec := range records {
		emails = append(emails, s.normalizer.FromRecord(rec, i))
	}
	emails = normalize.DropEmpty(emails)
	if max > 0 && len(emails) > max {
		emails = emails[:max]
	}
	return emails, nil
}

func decodeRecords(path string, data []byte) ([]normalize.Record, error) {
	var records []normalize.Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
	}
	return records, nil
}
