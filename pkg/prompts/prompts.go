// Package prompts loads benchmark prompt items from JSON or YAML.
//
// A prompt document is a list of items, or an object whose "prompts" key
// holds that list. Each item is checked against an embedded JSON schema:
// it needs an id and exactly one of "messages" (a single prompt) or "turns"
// (a conversation). Items that fail the check are kept as invalid items,
// which the execution stage records as failures, unless SkipInvalid is set.
package prompts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/judgebench/pkg/bench"
	"github.com/papercomputeco/judgebench/pkg/logger"
)

// Format is the encoding of a prompt document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrNotAList is returned for documents that do not hold a list of items.
var ErrNotAList = errors.New("prompt document must be a list of items")

// Options configure loading.
type Options struct {
	// SkipInvalid drops items that fail validation instead of passing them
	// through as invalid items.
	SkipInvalid bool

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Problem describes why an item failed validation.
type Problem struct {
	Index   int
	ID      string
	Details []string
}

func (p Problem) String() string {
	id := p.ID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("item %d (%s): %s", p.Index, id, strings.Join(p.Details, "; "))
}

// Result is a loaded prompt document.
type Result struct {
	Items    []bench.PromptItem
	Problems []Problem
}

// FormatFor picks the format from a file extension. Anything that is not
// .yaml or .yml is read as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads and loads the prompt document at path.
func LoadFile(path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt file: %w", err)
	}

	res, err := Load(data, FormatFor(path), opts)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return res, nil
}

// Load decodes a prompt document.
func Load(data []byte, format Format, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	var (
		raws []rawItem
		err  error
	)
	switch format {
	case FormatYAML:
		raws, err = splitYAML(data)
	case FormatJSON, "":
		raws, err = splitJSON(data)
	default:
		return nil, fmt.Errorf("unknown prompt format %q", format)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{Items: make([]bench.PromptItem, 0, len(raws))}
	for i, raw := range raws {
		item, problems := raw.load()
		if len(problems) == 0 {
			res.Items = append(res.Items, item)
			continue
		}

		p := Problem{Index: i, ID: item.ID, Details: problems}
		res.Problems = append(res.Problems, p)

		if opts.SkipInvalid {
			log.Warn("skipping invalid prompt item", "index", i, "id", item.ID, "problems", p.Details)
			continue
		}

		log.Warn("invalid prompt item", "index", i, "id", item.ID, "problems", p.Details)
		item.Kind = bench.KindInvalid
		res.Items = append(res.Items, item)
	}

	if len(res.Items) == 0 {
		log.Warn("no prompt items loaded")
	}
	log.Info("prompts loaded",
		"items", len(res.Items),
		"invalid", len(res.Problems),
	)

	return res, nil
}

// rawItem is one undecoded element of a prompt document.
type rawItem struct {
	generic func() (any, error)
	decode  func(*bench.PromptItem) error
}

// load validates and decodes the element. The returned item carries
// whatever id could be recovered even when problems are reported.
func (r rawItem) load() (bench.PromptItem, []string) {
	instance, err := r.generic()
	if err != nil {
		return bench.PromptItem{}, []string{err.Error()}
	}

	problems := validateItem(jsonCompatible(instance))

	var item bench.PromptItem
	if err := r.decode(&item); err != nil {
		if m, ok := instance.(map[string]any); ok {
			if id, ok := m["id"].(string); ok {
				item.ID = id
			}
		}
		return item, append(problems, err.Error())
	}

	if len(problems) == 0 && item.Validate() != nil {
		problems = append(problems, bench.ErrInvalidItem.Error())
	}
	return item, problems
}

func splitJSON(data []byte) ([]rawItem, error) {
	data = bytes.TrimSpace(data)

	var list []json.RawMessage
	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Prompts []json.RawMessage `json:"prompts"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotAList, err)
		}
		if wrapper.Prompts == nil {
			return nil, ErrNotAList
		}
		list = wrapper.Prompts
	} else if err := json.Unmarshal(data, &list); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return nil, fmt.Errorf("%w: %w", ErrNotAList, err)
	}

	raws := make([]rawItem, len(list))
	for i, msg := range list {
		raws[i] = rawItem{
			generic: func() (any, error) {
				var v any
				err := json.Unmarshal(msg, &v)
				return v, err
			},
			decode: func(item *bench.PromptItem) error {
				return json.Unmarshal(msg, item)
			},
		}
	}
	return raws, nil
}

func splitYAML(data []byte) ([]rawItem, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, ErrNotAList
	}

	list := root.Content[0]
	if list.Kind == yaml.MappingNode {
		list = mappingValue(list, "prompts")
	}
	if list == nil || list.Kind != yaml.SequenceNode {
		return nil, ErrNotAList
	}

	raws := make([]rawItem, len(list.Content))
	for i, node := range list.Content {
		raws[i] = rawItem{
			generic: func() (any, error) {
				var v any
				err := node.Decode(&v)
				return v, err
			},
			decode: func(item *bench.PromptItem) error {
				return node.Decode(item)
			},
		}
	}
	return raws, nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
