// Package catalog loads judge, game and model definitions from YAML and
// writes them to the store.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/chainguard-dev/clog"
	"gopkg.in/yaml.v3"

	"github.com/shizhouxing/project-enigma/internal/domain"
	"github.com/shizhouxing/project-enigma/internal/registry"
	"github.com/shizhouxing/project-enigma/internal/repository"
)

// Catalog is the admin-maintained set of games.
type Catalog struct {
	Judges []domain.Judge `yaml:"judges"`
	Games  []domain.Game  `yaml:"games"`
	Models []domain.Model `yaml:"models"`
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog document. Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &c, nil
}

// Validate checks ids and references, including that every judge names a
// registered sampler and validator. All problems are reported together.
func (c *Catalog) Validate(reg *registry.Registry) error {
	var errs []error

	judges := make(map[string]bool, len(c.Judges))
	for _, j := range c.Judges {
		if j.ID == "" {
			errs = append(errs, fmt.Errorf("judge %q has no id", j.Name))
			continue
		}
		if judges[j.ID] {
			errs = append(errs, fmt.Errorf("judge %s defined twice", j.ID))
		}
		judges[j.ID] = true
		if _, err := reg.Sampler(j.Sampler.Name); err != nil {
			errs = append(errs, fmt.Errorf("judge %s: %w", j.ID, err))
		}
		if _, err := reg.Validator(j.Validator.Name); err != nil {
			errs = append(errs, fmt.Errorf("judge %s: %w", j.ID, err))
		}
	}

	games := make(map[string]bool, len(c.Games))
	for _, g := range c.Games {
		switch {
		case g.ID == "":
			errs = append(errs, fmt.Errorf("game %q has no id", g.Name))
		case games[g.ID]:
			errs = append(errs, fmt.Errorf("game %s defined twice", g.ID))
		case !judges[g.JudgeID]:
			errs = append(errs, fmt.Errorf("game %s references unknown judge %q", g.ID, g.JudgeID))
		}
		games[g.ID] = true
	}

	models := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		switch {
		case m.ID == "":
			errs = append(errs, fmt.Errorf("model %q has no id", m.Name))
		case models[m.ID]:
			errs = append(errs, fmt.Errorf("model %s defined twice", m.ID))
		case m.Provider == "" || m.ModelName == "":
			errs = append(errs, fmt.Errorf("model %s needs provider and model_name", m.ID))
		}
		models[m.ID] = true
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	return nil
}

// Apply upserts the catalog. Judges go first so games can reference them.
func (c *Catalog) Apply(ctx context.Context, store repository.Store) error {
	for i := range c.Judges {
		if err := store.UpsertJudge(ctx, &c.Judges[i]); err != nil {
			return fmt.Errorf("judge %s: %w", c.Judges[i].ID, err)
		}
	}
	for i := range c.Games {
		if err := store.UpsertGame(ctx, &c.Games[i]); err != nil {
			return fmt.Errorf("game %s: %w", c.Games[i].ID, err)
		}
	}
	for i := range c.Models {
		if err := store.UpsertModel(ctx, &c.Models[i]); err != nil {
			return fmt.Errorf("model %s: %w", c.Models[i].ID, err)
		}
	}
	clog.FromContext(ctx).Infof("catalog applied: %d judges, %d games, %d models", len(c.Judges), len(c.Games), len(c.Models))
	return nil
}

// Seed loads, validates and applies the catalog at path.
func Seed(ctx context.Context, path string, reg *registry.Registry, store repository.Store) (*Catalog, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(reg); err != nil {
		return nil, err
	}
	return c, c.Apply(ctx, store)
}
