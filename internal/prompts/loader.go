// Package prompts serves the model prompt templates embedded with the
// binary. firmware.json holds the C++ module generation and verification
// prompts, widget.json the dashboard widget prompt, and wizard.json the
// feasibility and use-case prompts. Each file is a flat map of prompt key to
// template text with {{.Key}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var files embed.FS

// promptFile parses lazily, once, on first use.
type promptFile struct {
	once    sync.Once
	entries map[string]string
	err     error
}

var loaded sync.Map // filename -> *promptFile

func load(filename string) (map[string]string, error) {
	v, _ := loaded.LoadOrStore(filename, &promptFile{})
	pf := v.(*promptFile)
	pf.once.Do(func() {
		data, err := files.ReadFile(filename)
		if err != nil {
			pf.err = fmt.Errorf("failed to read prompt file %s: %w", filename, err)
			return
		}
		if err := json.Unmarshal(data, &pf.entries); err != nil {
			pf.err = fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
		}
	})
	return pf.entries, pf.err
}

// Get returns the prompt stored under key in the named file.
func Get(filename, key string) (string, error) {
	entries, err := load(filename)
	if err != nil {
		return "", err
	}
	prompt, ok := entries[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// MustGet is Get for prompts the binary cannot run without.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Format substitutes {{.Key}} placeholders with values from data. Keys absent
// from data leave their placeholder in place, which surfaces wiring mistakes
// in the generated prompt instead of silently dropping content.
func Format(template string, data map[string]string) string {
	out := template
	for key, value := range data {
		out = strings.ReplaceAll(out, "{{."+key+"}}", value)
	}
	return out
}

// List returns the prompt keys of a file, sorted.
func List(filename string) ([]string, error) {
	entries, err := load(filename)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
