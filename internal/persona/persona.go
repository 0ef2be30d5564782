// ABOUTME: Persona registry loaded from a TOML definition file
// ABOUTME: Resolves persona ids with fallback to a default and a built-in minimal persona

package persona

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// Persona is a named system-prompt profile selectable per user.
// Immutable after load.
type Persona struct {
	ID          string
	Prompt      string
	Description string
}

// Fallback is the hard-coded persona used when nothing loads at all.
var Fallback = Persona{
	ID:          "assistant",
	Prompt:      "You are a helpful and friendly assistant. Respond clearly and concisely.",
	Description: "Plain helpful assistant",
}

// Registry holds the loaded personas and the process default.
type Registry struct {
	personas  map[string]Persona
	defaultID string
}

// personaDef is the TOML shape of one persona entry.
type personaDef struct {
	Prompt      string `toml:"prompt"`
	Description string `toml:"description"`
}

// personaFile is the TOML shape of the whole definition file.
type personaFile struct {
	Personas map[string]personaDef `toml:"personas"`
}

// Load reads persona definitions from the given TOML file. A missing or
// empty file is not fatal: the registry then contains only the built-in
// fallback. If defaultID names a persona that did not load, the default
// falls back to the first loaded persona (by id), and finally to the
// built-in one.
func Load(path, defaultID string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "persona")

	personas := make(map[string]Persona)

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logger.Warn("persona file not found, using built-in fallback only", "path", path)
	case err != nil:
		return nil, fmt.Errorf("reading persona file: %w", err)
	default:
		var pf personaFile
		if _, err := toml.Decode(string(data), &pf); err != nil {
			return nil, fmt.Errorf("parsing persona file: %w", err)
		}
		for id, def := range pf.Personas {
			if def.Prompt == "" {
				logger.Warn("skipping persona with empty prompt", "persona", id)
				continue
			}
			personas[id] = Persona{ID: id, Prompt: def.Prompt, Description: def.Description}
		}
	}

	if len(personas) == 0 {
		personas[Fallback.ID] = Fallback
		defaultID = Fallback.ID
	}

	if _, ok := personas[defaultID]; !ok {
		ids := sortedIDs(personas)
		fallbackTo := ids[0]
		logger.Warn("default persona not found, falling back",
			"requested", defaultID,
			"using", fallbackTo)
		defaultID = fallbackTo
	}

	logger.Info("personas loaded", "count", len(personas), "default", defaultID)
	return &Registry{personas: personas, defaultID: defaultID}, nil
}

// Get returns the persona for the given id.
func (r *Registry) Get(id string) (Persona, bool) {
	p, ok := r.personas[id]
	return p, ok
}

// Resolve returns the persona for id, or the default persona when the id is
// unknown. The second return reports whether the id resolved exactly.
func (r *Registry) Resolve(id string) (Persona, bool) {
	if p, ok := r.personas[id]; ok {
		return p, true
	}
	return r.personas[r.defaultID], false
}

// Default returns the process default persona.
func (r *Registry) Default() Persona {
	return r.personas[r.defaultID]
}

// DefaultID returns the process default persona id.
func (r *Registry) DefaultID() string {
	return r.defaultID
}

// List returns all personas ordered by id.
func (r *Registry) List() []Persona {
	out := make([]Persona, 0, len(r.personas))
	for _, id := range sortedIDs(r.personas) {
		out = append(out, r.personas[id])
	}
	return out
}

func sortedIDs(m map[string]Persona) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
