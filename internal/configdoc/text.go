package configdoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	hjson "github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned by Import for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported configuration format")

// ParseError is a failed parse of user-edited configuration text. The
// in-memory document stays at its last valid state.
type ParseError struct {
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
	}
	return e.Msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Format is a configuration text encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatHJSON Format = "hjson"
	FormatYAML  Format = "yaml"
)

// DetectFormat picks a format from a file name; JSON when unsure.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".hjson":
		return FormatHJSON
	}
	return FormatJSON
}

// Text renders the document as the editor's JSON view: two-space indent,
// trailing newline omitted.
func Text(c *Configuration) (string, error) {
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format configuration: %w", err)
	}
	return string(raw), nil
}

// ParseText reads the JSON view back into a document. Strict JSON is tried
// first; Hjson (comments, trailing commas, unquoted keys) second.
func ParseText(text string) (*Configuration, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Msg: "configuration text is empty"}
	}

	var c Configuration
	strictErr := json.Unmarshal([]byte(text), &c)
	if strictErr == nil {
		return normalize(&c), nil
	}

	if lenient, err := parseHjson(text); err == nil {
		return normalize(lenient), nil
	}
	return nil, newParseError(text, strictErr)
}

func parseHjson(text string) (*Configuration, error) {
	var generic map[string]interface{}
	if err := hjson.Unmarshal([]byte(text), &generic); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return nil, err
	}
	var c Configuration
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func newParseError(text string, err error) *ParseError {
	pe := &ParseError{Msg: err.Error(), Err: err}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var offset int64
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return pe
	}

	pe.Line, pe.Column = position(text, offset)
	return pe
}

// position converts a byte offset into a 1-based line and column.
func position(text string, offset int64) (int, int) {
	if offset > int64(len(text)) {
		offset = int64(len(text))
	}
	before := text[:offset]
	line := strings.Count(before, "\n") + 1
	col := len(before) - strings.LastIndex(before, "\n")
	return line, col
}

// Import decodes a document from r in the given format.
func Import(r io.Reader, format Format) (*Configuration, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	switch format {
	case FormatJSON, FormatHJSON, "":
		return ParseText(string(raw))
	case FormatYAML:
		var c Configuration
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(&c); err != nil {
			return nil, &ParseError{Msg: err.Error(), Err: err}
		}
		return normalize(&c), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// normalize makes an imported document safe to edit: missing subtrees are
// initialized, derived labels regenerated and the mapping put in column order.
func normalize(c *Configuration) *Configuration {
	ensure(c)
	if c.ID == "" {
		// a document without an identity is a new import
		c.ID = uuid.New().String()
		c.IsActive = true
	}
	if c.Version < 1 {
		c.Version = 1
	}
	c.Structure.PeriodMapping = c.Structure.PeriodMapping.Normalized()
	return c
}
