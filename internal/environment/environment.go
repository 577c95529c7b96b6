// Package environment describes the scenes a client can display and the
// ambient soundtrack chosen for each mood.
package environment

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bowerhall/bubble/internal/mood"
)

//go:embed catalogue.yaml
var builtin []byte

type SceneData struct {
	Particles      string  `yaml:"particles" json:"particles"`
	LightIntensity float64 `yaml:"lightIntensity" json:"lightIntensity"`
	FogDensity     float64 `yaml:"fogDensity" json:"fogDensity"`
}

type Environment struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	AudioURL  string    `yaml:"audioUrl" json:"audioUrl"`
	SceneData SceneData `yaml:"sceneData" json:"sceneData"`
}

type Track struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

type Catalogue struct {
	DefaultID    string              `yaml:"default"`
	Environments []Environment       `yaml:"environments"`
	Tracks       map[mood.Mood]Track `yaml:"tracks"`
	byID         map[string]Environment
}

// Parse decodes and checks a catalogue document.
func Parse(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}

	if len(c.Environments) == 0 {
		return nil, fmt.Errorf("catalogue has no environments")
	}

	c.byID = make(map[string]Environment, len(c.Environments))
	for _, env := range c.Environments {
		if env.ID == "" {
			return nil, fmt.Errorf("environment %q has no id", env.Name)
		}
		if _, dup := c.byID[env.ID]; dup {
			return nil, fmt.Errorf("duplicate environment %q", env.ID)
		}
		c.byID[env.ID] = env
	}

	if c.DefaultID == "" {
		c.DefaultID = c.Environments[0].ID
	}
	if _, ok := c.byID[c.DefaultID]; !ok {
		return nil, fmt.Errorf("default environment %q not in catalogue", c.DefaultID)
	}

	for m := range c.Tracks {
		if !m.Valid() {
			return nil, fmt.Errorf("track for unknown mood %q", m)
		}
	}
	if _, ok := c.Tracks[mood.Neutral]; !ok {
		return nil, fmt.Errorf("catalogue needs a neutral track")
	}

	return &c, nil
}

// Load reads a catalogue from path, or the built-in one when path is empty.
func Load(path string) (*Catalogue, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in catalogue.
var Default = sync.OnceValue(func() *Catalogue {
	c, err := Parse(builtin)
	if err != nil {
		panic("environment: built-in catalogue: " + err.Error())
	}
	return c
})

func (c *Catalogue) Lookup(id string) (Environment, bool) {
	env, ok := c.byID[id]
	return env, ok
}

// Get returns the environment for id, or the default for an unknown id.
func (c *Catalogue) Get(id string) Environment {
	if env, ok := c.byID[id]; ok {
		return env
	}
	return c.byID[c.DefaultID]
}

func (c *Catalogue) List() []Environment {
	out := make([]Environment, len(c.Environments))
	copy(out, c.Environments)
	return out
}

// Track picks the ambient track for m, falling back to the neutral one.
func (c *Catalogue) Track(m mood.Mood) Track {
	if t, ok := c.Tracks[m]; ok {
		return t
	}
	return c.Tracks[mood.Neutral]
}
