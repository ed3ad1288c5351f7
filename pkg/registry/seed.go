package registry

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-unify/pkg/models"
)

//go:embed seed/*.yaml
var seedFS embed.FS

// seedNamespace scopes the deterministic seed ids so re-seeding yields the same rows.
var seedNamespace = uuid.MustParse("6f1c2a8e-3b4d-5e6f-8a9b-0c1d2e3f4a5b")

type seedFile struct {
	Domain  models.Domain `yaml:"domain"`
	Objects []seedObject  `yaml:"objects"`
}

type seedObject struct {
	Type   models.ObjectType `yaml:"type"`
	Fields []seedField       `yaml:"fields"`
	Custom []seedCustom      `yaml:"custom"`
}

type seedField struct {
	Name      string                        `yaml:"name"`
	Providers map[models.ProviderID]*string `yaml:"providers"`
}

type seedCustom struct {
	Provider models.ProviderID `yaml:"provider"`
	Source   string            `yaml:"source"`
	Target   string            `yaml:"target"`
}

// Seed is the root SchemaMapping and its FieldMapping rows.
type Seed struct {
	Root          *models.SchemaMapping
	FieldMappings []*models.FieldMapping
}

// BuildSeed decodes the embedded seed files into the root SchemaMapping.
// A standard row is produced for every (canonical field, domain provider)
// pair; providers without an equivalent get a row with no source field.
func BuildSeed() (*Seed, error) {
	files, err := fs.Glob(seedFS, "seed/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to list seed files: %w", err)
	}

	root := &models.SchemaMapping{
		ID:     seedID("schema_mapping", models.RootSchemaMappingName),
		Name:   models.RootSchemaMappingName,
		IsRoot: true,
	}
	seed := &Seed{Root: root}

	for _, name := range files {
		data, err := seedFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		var file seedFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		if err := seed.add(path.Base(name), &file); err != nil {
			return nil, err
		}
	}

	return seed, nil
}

func (s *Seed) add(fileName string, file *seedFile) error {
	providers := ProvidersForDomain(file.Domain)
	if len(providers) == 0 {
		return fmt.Errorf("%s: no providers serve domain %q", fileName, file.Domain)
	}

	for _, obj := range file.Objects {
		if !obj.Type.IsValid() || obj.Type.Domain() != file.Domain {
			return fmt.Errorf("%s: object type %q is not part of domain %q", fileName, obj.Type, file.Domain)
		}
		if s.Root.Schema(obj.Type) != nil {
			return fmt.Errorf("%s: object type %q seeded twice", fileName, obj.Type)
		}

		schema := &models.ObjectSchema{
			ID:              seedID("object_schema", string(obj.Type)),
			SchemaMappingID: s.Root.ID,
			ObjectType:      obj.Type,
		}
		for _, f := range obj.Fields {
			for p := range f.Providers {
				if !SupportsObject(p, obj.Type) {
					return fmt.Errorf("%s: provider %q does not serve %s.%s", fileName, p, obj.Type, f.Name)
				}
			}
			schema.Fields = append(schema.Fields, f.Name)
			for _, p := range providers {
				s.FieldMappings = append(s.FieldMappings, &models.FieldMapping{
					ID:              seedID("field_mapping", string(obj.Type), string(p), f.Name),
					SchemaID:        schema.ID,
					SourceProvider:  p,
					SourceFieldName: f.Providers[p],
					TargetFieldName: f.Name,
					IsStandardField: true,
				})
			}
		}
		for _, c := range obj.Custom {
			if !SupportsObject(c.Provider, obj.Type) {
				return fmt.Errorf("%s: provider %q does not serve %s", fileName, c.Provider, obj.Type)
			}
			s.FieldMappings = append(s.FieldMappings, &models.FieldMapping{
				ID:              seedID("field_mapping", string(obj.Type), string(c.Provider), "custom", c.Target),
				SchemaID:        schema.ID,
				SourceProvider:  c.Provider,
				SourceFieldName: models.StringPtr(c.Source),
				TargetFieldName: c.Target,
				IsStandardField: false,
			})
		}
		s.Root.Schemas = append(s.Root.Schemas, schema)
	}
	return nil
}

func seedID(parts ...string) uuid.UUID {
	return uuid.NewSHA1(seedNamespace, []byte(strings.Join(parts, "/")))
}
