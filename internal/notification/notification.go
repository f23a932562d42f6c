// Package notification builds the localized message announcing newly
// downloaded bills.
package notification

import (
	"fmt"
	"os"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// Builder renders notification messages in one language.
type Builder struct {
	tag     language.Tag
	printer *message.Printer
	keys    map[string]bool
}

// NewBuilder returns a builder for lang (e.g. "fr", "en-GB"). Unknown
// languages fall back to French. overrides, when non-nil, replace or add
// messages.
func NewBuilder(lang string, overrides Messages) (*Builder, error) {
	msgs := defaultMessages()
	for tag, byKey := range overrides {
		if msgs[tag] == nil {
			msgs[tag] = make(map[string]Forms)
		}
		for key, forms := range byKey {
			msgs[tag][key] = forms
		}
	}

	cat := catalog.NewBuilder(catalog.Fallback(language.French))
	keys := make(map[string]bool)
	for tag, byKey := range msgs {
		for key, forms := range byKey {
			if forms.One == "" || forms.Other == "" {
				return nil, fmt.Errorf("message %q (%s) needs both one and other forms", key, tag)
			}
			err := cat.Set(tag, key, plural.Selectf(1, "%d",
				plural.One, forms.One,
				plural.Other, forms.Other,
			))
			if err != nil {
				return nil, fmt.Errorf("message %q (%s): %w", key, tag, err)
			}
			keys[key] = true
		}
	}

	requested, err := language.Parse(lang)
	if err != nil {
		requested = language.French
	}
	tag, _, _ := cat.Matcher().Match(requested)

	return &Builder{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(cat)),
		keys:    keys,
	}, nil
}

// Language is the tag messages are rendered in.
func (b *Builder) Language() language.Tag {
	return b.tag
}

// Build renders the message for key and count. Nothing is rendered when no
// bill is new. Unknown keys use the generic message.
func (b *Builder) Build(key string, count int) (string, bool) {
	if count <= 0 {
		return "", false
	}
	if !b.keys[key] {
		key = KeyDefault
	}
	return b.printer.Sprintf(key, count), true
}

// LoadMessages reads overrides from a YAML file shaped as
// language -> key -> {one, other}.
func LoadMessages(path string) (Messages, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages file: %w", err)
	}
	return ParseMessages(data)
}

// ParseMessages decodes YAML message overrides.
func ParseMessages(data []byte) (Messages, error) {
	var raw map[string]map[string]Forms
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}
	msgs := make(Messages, len(raw))
	for lang, byKey := range raw {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", lang, err)
		}
		msgs[tag] = byKey
	}
	return msgs, nil
}
