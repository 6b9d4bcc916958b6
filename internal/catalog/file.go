package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/adhikaar/internal/model"
)

// FileProvider reads the catalog from a YAML (or JSON) document of the form
//
//	schemes:
//	  - id: pm-kisan
//	    name: PM-KISAN
//	    rules:
//	      - requires_farmer: true
//
// Schemes without an is_active key are treated as active.
type FileProvider struct {
	path     string
	validate *validator.Validate
}

// NewFileProvider creates a provider for the file at path
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path, validate: validator.New()}
}

// Name returns the provider name
func (p *FileProvider) Name() string {
	return "file"
}

// Version identifies the file contents by modification time and size
func (p *FileProvider) Version() (string, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size()), nil
}

type catalogFile struct {
	Schemes []yaml.Node `yaml:"schemes"`
}

// Load reads, validates and ranks the catalog
func (p *FileProvider) Load(ctx context.Context) ([]model.SchemeWithRules, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return p.parse(data)
}

func (p *FileProvider) parse(data []byte) ([]model.SchemeWithRules, error) {
	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", p.path, err)
	}

	seen := make(map[string]bool, len(doc.Schemes))
	schemes := make([]model.SchemeWithRules, 0, len(doc.Schemes))
	for i := range doc.Schemes {
		s := model.SchemeWithRules{Scheme: model.Scheme{IsActive: true}}
		if err := doc.Schemes[i].Decode(&s); err != nil {
			return nil, fmt.Errorf("scheme #%d: %w", i+1, err)
		}
		if err := p.validate.Struct(&s); err != nil {
			return nil, fmt.Errorf("scheme #%d (%s): %w", i+1, s.ID, err)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("scheme #%d: duplicate id %s", i+1, s.ID)
		}
		seen[s.ID] = true

		for j := range s.Rules {
			if s.Rules[j].SchemeID == "" {
				s.Rules[j].SchemeID = s.ID
			}
		}
		schemes = append(schemes, s)
	}

	return Rank(schemes), nil
}
