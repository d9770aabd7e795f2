// Package filestore keeps trained models and the canonical disease list as
// files in a single directory. Every write goes to a temporary file that is
// renamed into place, so readers never observe a partial file.
package filestore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwalitptl/surveillance-api/internal/model"
	"github.com/jwalitptl/surveillance-api/internal/repository"
)

const diseaseListFile = "diseases.txt"

type modelStore struct {
	dir string
}

// NewModelStore returns a ModelRepository rooted at dir, creating it if needed.
func NewModelStore(dir string) (repository.ModelRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model dir %s: %w", dir, err)
	}
	return &modelStore{dir: dir}, nil
}

// ModelFileName returns the file a disease's model is stored in. The name is
// path-escaped so that distinct diseases never share a file.
func ModelFileName(disease string) string {
	return "model_" + url.PathEscape(disease) + ".json"
}

func (s *modelStore) SaveModel(ctx context.Context, m *model.TrendModel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model for %s: %w", m.Disease, err)
	}
	return s.writeAtomic(ModelFileName(m.Disease), data)
}

func (s *modelStore) LoadModel(ctx context.Context, disease string) (*model.TrendModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, ModelFileName(disease)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model for %s: %w", disease, err)
	}

	var m model.TrendModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model for %s: %w", disease, err)
	}
	if m.Disease != disease {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (s *modelStore) SaveDiseases(ctx context.Context, diseases []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, d := range diseases {
		buf.WriteString(d)
		buf.WriteByte('\n')
	}
	return s.writeAtomic(diseaseListFile, buf.Bytes())
}

func (s *modelStore) LoadDiseases(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, diseaseListFile))
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read disease list: %w", err)
	}

	diseases := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			diseases = append(diseases, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse disease list: %w", err)
	}
	return diseases, nil
}

func (s *modelStore) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return nil
}
