package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrUnknownModel = errors.New("unknown model")

// ModelInfo is one locally installed model.
type ModelInfo struct {
	Name     string `json:"name"`
	ID       string `json:"id,omitempty"`
	Size     string `json:"size,omitempty"`
	Modified string `json:"modified,omitempty"`
}

// ModelLister is implemented by backends that can enumerate installed models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Registry is the set of models the process may address. It is built once at startup
// and passed to whoever needs it. An empty registry resolves every name to itself.
type Registry struct {
	mu           sync.RWMutex
	defaultModel string
	order        []string
	models       map[string]ModelInfo
}

func NewRegistry(defaultModel string, models ...ModelInfo) *Registry {
	r := &Registry{defaultModel: defaultModel, models: map[string]ModelInfo{}}
	for _, m := range models {
		r.Add(m)
	}
	return r
}

// Discover builds a registry from whatever the lister reports.
func Discover(ctx context.Context, lister ModelLister, defaultModel string) (*Registry, error) {
	models, err := lister.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	return NewRegistry(defaultModel, models...), nil
}

func (r *Registry) Add(m ModelInfo) {
	if m.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[m.Name]; !ok {
		r.order = append(r.order, m.Name)
	}
	r.models[m.Name] = m
}

func (r *Registry) Default() string { return r.defaultModel }

func (r *Registry) Models() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelInfo, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.models[n])
	}
	return out
}

// Resolve maps a requested model name onto an installed one. "" selects the default;
// an untagged name matches "<name>:latest".
func (r *Registry) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = r.defaultModel
	}
	if name == "" {
		return "", fmt.Errorf("%w: no model requested and no default configured", ErrUnknownModel)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.models) == 0 {
		return name, nil
	}
	if _, ok := r.models[name]; ok {
		return name, nil
	}
	if !strings.Contains(name, ":") {
		if _, ok := r.models[name+":latest"]; ok {
			return name + ":latest", nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// ParseOllamaList reads the table printed by `ollama list`:
//
//	NAME            ID              SIZE      MODIFIED
//	llama3.2:3b     a80c4f17acd5    2.0 GB    3 weeks ago
func ParseOllamaList(out string) []ModelInfo {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil
	}
	var models []ModelInfo
	for _, ln := range lines[1:] {
		parts := strings.Fields(ln)
		if len(parts) == 0 {
			continue
		}
		m := ModelInfo{Name: parts[0]}
		if len(parts) > 1 {
			m.ID = parts[1]
		}
		if len(parts) > 3 {
			m.Size = parts[2] + " " + parts[3]
		}
		if len(parts) > 4 {
			m.Modified = strings.Join(parts[4:], " ")
		}
		models = append(models, m)
	}
	return models
}
