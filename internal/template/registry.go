package template

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/kamathanirudh/labstack/pkg/types"
)

//go:embed templates.json
var defaultsFS embed.FS

// ErrUnknownTemplate is returned when no template exists for a lab type.
var ErrUnknownTemplate = errors.New("unknown lab template")

// templateDef is the on-disk shape of one template entry, keyed by name.
type templateDef struct {
	Image         string `json:"image"`
	HostPort      int    `json:"hostPort"`
	ContainerPort int    `json:"containerPort"`
}

// Registry is the read-only mapping from lab type to template.
type Registry struct {
	templates map[string]types.LabTemplate
}

// Load parses template definitions from the given file, or from the embedded
// defaults when path is empty. A malformed definition source is fatal for the
// caller: the process must not start without a valid registry.
func Load(path string) (*Registry, error) {
	var raw []byte
	var err error
	if path != "" {
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read template definitions %s: %w", path, err)
		}
	} else {
		raw, err = defaultsFS.ReadFile("templates.json")
		if err != nil {
			return nil, fmt.Errorf("read embedded template definitions: %w", err)
		}
	}

	var defs map[string]templateDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("parse template definitions: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("template definitions are empty")
	}

	r := &Registry{templates: make(map[string]types.LabTemplate, len(defs))}
	for name, def := range defs {
		if def.Image == "" {
			return nil, fmt.Errorf("template %q has no image", name)
		}
		if def.HostPort <= 0 || def.ContainerPort <= 0 {
			return nil, fmt.Errorf("template %q has invalid ports %d:%d", name, def.HostPort, def.ContainerPort)
		}
		r.templates[name] = types.LabTemplate{
			Name:          name,
			Image:         def.Image,
			HostPort:      def.HostPort,
			ContainerPort: def.ContainerPort,
		}
	}
	return r, nil
}

// Lookup returns the template for a lab type. Pure, no side effects.
func (r *Registry) Lookup(name string) (types.LabTemplate, error) {
	t, ok := r.templates[name]
	if !ok {
		return types.LabTemplate{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return t, nil
}

// List returns all templates sorted by name.
func (r *Registry) List() []types.LabTemplate {
	result := make([]types.LabTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}
