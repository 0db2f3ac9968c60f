package secretfs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a secrets document.
type Format string

const (
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatDotenv Format = "dotenv"
)

// ErrUnsupportedDocument is returned when a secrets document is neither an
// object of name/value pairs nor an array of key/value objects.
var ErrUnsupportedDocument = errors.New("unsupported secrets document: expected an object or an array of {key, value} objects")

// FormatOf guesses the format of a secrets document from its media type, or
// failing that, its file name. JSON is the default.
func FormatOf(contentType, name string) Format {
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			switch {
			case strings.HasSuffix(mt, "yaml"), strings.HasSuffix(mt, "yml"):
				return FormatYAML
			case strings.HasSuffix(mt, "json"):
				return FormatJSON
			}
		}
	}

	switch path.Ext(name) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".env":
		return FormatDotenv
	}

	return FormatJSON
}

// DecodeSecrets parses a secrets document in the given format. Two shapes are
// accepted:
//
//	{"name": "value", ...}
//	[{"key": "name", "value": "value", ...}, ...]
//
// In the first shape, values that aren't strings are stored as their compact
// JSON encoding, and secrets are returned in document order. In the second
// shape, every object must have string "key" and "value" fields, other fields
// are ignored, and items that aren't objects are skipped.
//
// Dotenv documents (KEY=value lines) are also accepted. As they carry no
// ordering guarantees once parsed, their secrets are sorted by name.
func DecodeSecrets(data []byte, format Format) ([]Secret, error) {
	switch format {
	case FormatYAML:
		return decodeYAML(data)
	case FormatDotenv:
		return decodeDotenv(data)
	case FormatJSON, "":
		return decodeJSON(data)
	default:
		return nil, fmt.Errorf("unknown secrets document format %q", format)
	}
}

func decodeJSON(data []byte) ([]Secret, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}

	var secrets []Secret

	switch tok {
	case json.Delim('{'):
		secrets, err = decodeJSONObject(dec)
	case json.Delim('['):
		secrets, err = decodeJSONArray(dec)
	default:
		return nil, ErrUnsupportedDocument
	}

	if err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse secrets: unexpected data after document")
	}

	return secrets, nil
}

func decodeJSONObject(dec *json.Decoder) ([]Secret, error) {
	secrets := []Secret{}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}

		val, err := jsonText(raw)
		if err != nil {
			return nil, err
		}

		secrets = append(secrets, Secret{Name: key, Value: val})
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return secrets, nil
}

func decodeJSONArray(dec *json.Decoder) ([]Secret, error) {
	secrets := []Secret{}

	for i := 0; dec.More(); i++ {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}

		// non-object items, null included, are skipped
		if t := bytes.TrimSpace(raw); len(t) == 0 || t[0] != '{' {
			continue
		}

		var item map[string]json.RawMessage
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		key, ok := jsonString(item["key"])
		if !ok {
			return nil, fmt.Errorf("item %d: missing or non-string \"key\"", i)
		}

		value, ok := jsonString(item["value"])
		if !ok {
			return nil, fmt.Errorf("item %d (%s): missing or non-string \"value\"", i, key)
		}

		secrets = append(secrets, Secret{Name: key, Value: []byte(value)})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return secrets, nil
}

func jsonString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}

	return s, true
}

// jsonText returns the string value of raw if it's a JSON string, otherwise
// its compact encoding.
func jsonText(raw json.RawMessage) ([]byte, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}

		return []byte(s), nil
	}

	buf := &bytes.Buffer{}
	if err := json.Compact(buf, raw); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeYAML(data []byte) ([]Secret, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ErrUnsupportedDocument
	}

	root := doc.Content[0]

	switch root.Kind {
	case yaml.MappingNode:
		return decodeYAMLMapping(root)
	case yaml.SequenceNode:
		return decodeYAMLSequence(root)
	default:
		return nil, ErrUnsupportedDocument
	}
}

func decodeYAMLMapping(n *yaml.Node) ([]Secret, error) {
	secrets := make([]Secret, 0, len(n.Content)/2)

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]

		val, err := yamlText(v)
		if err != nil {
			return nil, fmt.Errorf("parse secrets: %s: %w", k.Value, err)
		}

		secrets = append(secrets, Secret{Name: k.Value, Value: val})
	}

	return secrets, nil
}

func decodeYAMLSequence(n *yaml.Node) ([]Secret, error) {
	secrets := []Secret{}

	for i, item := range n.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}

		var key, value *yaml.Node

		for j := 0; j+1 < len(item.Content); j += 2 {
			switch item.Content[j].Value {
			case "key":
				key = item.Content[j+1]
			case "value":
				value = item.Content[j+1]
			}
		}

		if key == nil || key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parse secrets: item %d: missing or non-scalar \"key\"", i)
		}

		if value == nil || value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("parse secrets: item %d (%s): missing or non-scalar \"value\"", i, key.Value)
		}

		secrets = append(secrets, Secret{Name: key.Value, Value: []byte(value.Value)})
	}

	return secrets, nil
}

// yamlText returns a scalar's text, or the compact JSON encoding of anything
// else.
func yamlText(n *yaml.Node) ([]byte, error) {
	if n.Kind == yaml.ScalarNode {
		return []byte(n.Value), nil
	}

	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}

	return json.Marshal(v)
}

func decodeDotenv(data []byte) ([]Secret, error) {
	vars, err := godotenv.UnmarshalBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}

	sort.Strings(names)

	secrets := make([]Secret, 0, len(names))
	for _, name := range names {
		secrets = append(secrets, Secret{Name: name, Value: []byte(vars[name])})
	}

	return secrets, nil
}
