// Package metadata validates and decodes the per-stage JSON documents that
// stage content ids point at.
package metadata

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/content"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Validator checks documents against the embedded stage schemas.
type Validator struct {
	schemaCache *lru.Cache[custody.Stage, *jsonschema.Schema]
}

// NewValidator creates a validator with an LRU cache of compiled schemas.
func NewValidator(cacheSize int) (*Validator, error) {
	cache, err := lru.New[custody.Stage, *jsonschema.Schema](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create schema cache: %w", err)
	}
	return &Validator{schemaCache: cache}, nil
}

// Schema returns the raw JSON schema for stage.
func Schema(stage custody.Stage) ([]byte, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: stage %d", custody.ErrInvalidInput, stage)
	}
	return schemaFS.ReadFile("schemas/" + stage.String() + ".json")
}

func (v *Validator) schema(stage custody.Stage) (*jsonschema.Schema, error) {
	if s, ok := v.schemaCache.Get(stage); ok {
		return s, nil
	}

	raw, err := Schema(stage)
	if err != nil {
		return nil, err
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s schema: %w", stage, err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)
	url := stage.String() + ".json"
	if err := compiler.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add %s schema: %w", stage, err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", stage, err)
	}

	v.schemaCache.Add(stage, s)
	return s, nil
}

// Validate parses raw and checks it against the stage schema. The parsed
// document is returned for further inspection.
func (v *Validator) Validate(stage custody.Stage, raw []byte) (map[string]any, error) {
	s, err := v.schema(stage)
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s document is not JSON: %v", custody.ErrInvalidInput, stage, err)
	}
	doc, ok := inst.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s document must be a JSON object", custody.ErrInvalidInput, stage)
	}

	if err := s.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %s", custody.ErrInvalidInput, formatValidationError(err))
	}
	return doc, nil
}

// Decode validates raw and decodes it into the typed document for stage.
func (v *Validator) Decode(stage custody.Stage, raw []byte) (Document, error) {
	doc, err := v.Validate(stage, raw)
	if err != nil {
		return nil, err
	}
	return decode(stage, doc)
}

// Inspect validates and decodes raw, also returning the ids it links to.
func (v *Validator) Inspect(stage custody.Stage, raw []byte) (Document, []string, error) {
	doc, err := v.Validate(stage, raw)
	if err != nil {
		return nil, nil, err
	}
	out, err := decode(stage, doc)
	if err != nil {
		return nil, nil, err
	}
	return out, Attachments(doc), nil
}

func decode(stage custody.Stage, doc map[string]any) (Document, error) {
	// json.Number values from the schema parser decode natively into
	// numeric fields; WeaklyTypedInput accepts numeric strings from forms.
	out := newDocument(stage)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s document: %v", custody.ErrInvalidInput, stage, err)
	}
	return out, nil
}

// Attachments lists the content ids linked from doc with ipfs:// URIs,
// sorted and without duplicates.
func Attachments(doc map[string]any) []string {
	seen := map[string]struct{}{}
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			if content.IsURI(t) {
				seen[content.NormalizeCID(t)] = struct{}{}
			}
		case map[string]any:
			for _, child := range t {
				walk(child)
			}
		case []any:
			for _, child := range t {
				walk(child)
			}
		}
	}
	walk(doc)

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// formatValidationError reports the deepest failing location, e.g.
// "validation failed at '$.location.lat': ...".
func formatValidationError(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) == 1 {
		ve = ve.Causes[0]
	}

	path := "$"
	var parts []string
	for _, part := range ve.InstanceLocation {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) > 0 {
		path = "$." + strings.Join(parts, ".")
	}

	msg := ve.Error()
	if len(msg) > 200 {
		msg = msg[:200] + "... (truncated)"
	}
	return fmt.Sprintf("validation failed at '%s': %s", path, msg)
}
