package secrets

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// PasswordField is the reserved field naming the first line.
const PasswordField = "password"

// Field is one named value from an entry body.
type Field struct {
	Key   string
	Value string
}

// Entry is a parsed entry.
type Entry struct {
	Password string
	Body     string
	Fields   []Field
	lines    []string
}

// Parse splits plaintext into password, body and fields.
func Parse(plaintext []byte) Entry {
	text := strings.ReplaceAll(string(plaintext), "\r\n", "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if text == "" {
		lines = nil
	}

	e := Entry{lines: lines}
	if len(lines) == 0 {
		return e
	}
	e.Password = lines[0]
	e.Body = strings.Join(lines[1:], "\n")
	if fields, ok := yamlFields(e.Body); ok {
		e.Fields = fields
	} else {
		e.Fields = lineFields(lines[1:])
	}
	return e
}

// Field returns the value of key. The first match wins.
func (e Entry) Field(key string) (string, bool) {
	key = strings.TrimSpace(key)
	if strings.EqualFold(key, PasswordField) {
		return e.Password, len(e.lines) > 0
	}
	for _, f := range e.Fields {
		if strings.EqualFold(f.Key, key) {
			return f.Value, true
		}
	}
	return "", false
}

// Line returns the 1-based line n of the entry.
func (e Entry) Line(n int) (string, bool) {
	if n < 1 || n > len(e.lines) {
		return "", false
	}
	return e.lines[n-1], true
}

// Lines returns how many lines the entry has.
func (e Entry) Lines() int { return len(e.lines) }

// Keys returns field names in body order.
func (e Entry) Keys() []string {
	keys := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Render formats an entry from a password and fields, one "key: value"
// line per field.
func Render(password string, fields []Field) []byte {
	var buf bytes.Buffer
	buf.WriteString(password)
	buf.WriteByte('\n')
	for _, f := range fields {
		fmt.Fprintf(&buf, "%s: %s\n", f.Key, f.Value)
	}
	return buf.Bytes()
}

// yamlFields reads the body as a YAML mapping, keeping key order. Nested
// values are re-encoded as YAML.
func yamlFields(body string) ([]Field, bool) {
	if strings.TrimSpace(body) == "" {
		return nil, false
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(body), &doc); err != nil {
		return nil, false
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, false
	}
	m := doc.Content[0]
	fields := make([]Field, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, false
		}
		fields = append(fields, Field{Key: k.Value, Value: nodeValue(v)})
	}
	return fields, true
}

func nodeValue(n *yaml.Node) string {
	if n.Kind == yaml.ScalarNode {
		return n.Value
	}
	out, err := yaml.Marshal(n)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(string(out), "\n")
}

func lineFields(lines []string) []Field {
	var fields []Field
	for _, l := range lines {
		key, value, ok := strings.Cut(l, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.ContainsAny(key, " \t") {
			continue
		}
		fields = append(fields, Field{Key: key, Value: strings.TrimSpace(value)})
	}
	return fields
}
