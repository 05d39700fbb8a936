package opts

import (
	"maps"
	"path/filepath"
	"reflect"

	"github.com/goliatone/go-pkgtree/document"
	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/goliatone/go-pkgtree/layering"
)

// Common holds the options shared by every package kind. Fields are set
// first-write-wins: documents are accumulated from highest to lowest
// precedence, so a value already present is never replaced.
type Common struct {
	TargetPlatform string            `yaml:"target_platform" freezedry:"target_platform"`
	Env            map[string]string `yaml:"env" freezedry:"env"`
	DeployDirs     map[string]string `yaml:"deploy_dirs" freezedry:"deploy_dirs"`

	trace map[string][]Provenance
}

// CommonFields lists the option keys Common accepts.
func CommonFields() []string {
	return []string{"target_platform", "env", "deploy_dirs"}
}

func (*Common) FreezeDryTag() string  { return "common" }
func (*Common) FreezeDryVersion() int { return 2 }

// Upgrade renames deploy_paths, used by version 1, to deploy_dirs.
func (*Common) Upgrade(fields map[string]any, version int) (map[string]any, error) {
	if version < 2 {
		if paths, ok := fields["deploy_paths"]; ok {
			fields["deploy_dirs"] = paths
			delete(fields, "deploy_paths")
		}
	}
	return fields, nil
}

// Apply sets one option field from a document value. origin names the file
// the value came from; relative deploy directories are resolved against it.
func (c *Common) Apply(field string, value document.Node, origin string) error {
	var fragment Common
	switch field {
	case "target_platform":
		if value.IsNull() {
			break
		}
		platform, err := value.Scalar()
		if err != nil {
			return err
		}
		fragment.TargetPlatform = normalizePlatform(platform)
	case "env":
		if err := decodeStringMap(value, &fragment.Env); err != nil {
			return err
		}
	case "deploy_dirs":
		if err := decodeStringMap(value, &fragment.DeployDirs); err != nil {
			return err
		}
		base := filepath.Dir(origin)
		for name, dir := range fragment.DeployDirs {
			if !filepath.IsAbs(dir) {
				fragment.DeployDirs[name] = filepath.Join(base, dir)
			}
		}
	default:
		return value.Errorf("unknown option %q", field)
	}

	before := c.fieldValue(field)
	layering.Fill(c, fragment)
	after := c.fieldValue(field)

	if c.trace == nil {
		c.trace = map[string][]Provenance{}
	}
	c.trace[field] = append(c.trace[field], Provenance{
		Origin:  origin,
		Value:   fragment.fieldValue(field),
		Applied: !reflect.DeepEqual(before, after),
	})
	return nil
}

// Finalize fills defaults for fields no document set.
func (c *Common) Finalize() {
	if c.TargetPlatform == "" {
		c.TargetPlatform = HostPlatform()
	}
}

// Symbols returns the expression symbol table derived from these options.
func (c *Common) Symbols() Symbols {
	target := c.TargetPlatform
	if target == "" {
		target = HostPlatform()
	}
	env := maps.Clone(c.Env)
	if env == nil {
		env = map[string]string{}
	}
	deployDirs := maps.Clone(c.DeployDirs)
	if deployDirs == nil {
		deployDirs = map[string]string{}
	}
	return Symbols{
		SymbolHostPlatform:   HostPlatform(),
		SymbolTargetPlatform: target,
		SymbolEnv:            env,
		SymbolDeployDirs:     deployDirs,
	}
}

// Trace reports which documents tried to set field.
func (c *Common) Trace(field string) Trace {
	return Trace{Path: field, Layers: append([]Provenance(nil), c.trace[field]...)}
}

func (c *Common) fieldValue(field string) any {
	switch field {
	case "target_platform":
		return c.TargetPlatform
	case "env":
		return maps.Clone(c.Env)
	case "deploy_dirs":
		return maps.Clone(c.DeployDirs)
	}
	return nil
}

func decodeStringMap(value document.Node, dst *map[string]string) error {
	if value.IsNull() {
		return nil
	}
	entries, err := value.Entries()
	if err != nil {
		return err
	}
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		text, err := entry.Value.Scalar()
		if err != nil {
			return err
		}
		out[entry.Key] = text
	}
	*dst = out
	return nil
}

var (
	_ freezedry.Tagged   = (*Common)(nil)
	_ freezedry.Upgrader = (*Common)(nil)
)
