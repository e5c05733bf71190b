package builder

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/model"
)

// Metadata keys naming translation keys on a field. MessageKeysHint holds a
// map from validator name to key; translated messages are written to the
// "messages" metadata the validator registry reads.
const (
	LabelKeyHint       = "labelKey"
	PlaceholderKeyHint = "placeholderKey"
	HelperTextKeyHint  = "helperTextKey"
	MessageKeysHint    = "messageKeys"
)

// ErrMissingTranslator is passed to the missing handler when Localize runs
// without a Translator.
var ErrMissingTranslator = errors.New("builder: translator is not configured")

// Translator resolves a key for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingTranslationHandler picks the text used when a key cannot be
// translated. fallback is the untranslated text, possibly empty.
type MissingTranslationHandler func(locale, key, fallback string, err error) string

// Catalog is an in-memory Translator keyed by locale then message key.
type Catalog map[string]map[string]string

// Translate implements Translator. Arguments are ignored.
func (c Catalog) Translate(locale, key string, _ ...any) (string, error) {
	if msg, ok := c[locale][key]; ok {
		return msg, nil
	}
	return "", fmt.Errorf("builder: no %q translation for %q", locale, key)
}

// LoadCatalog reads a YAML (or JSON) document shaped as
// {locale: {key: message}}.
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("builder: read catalog: %w", err)
	}
	catalog := make(Catalog)
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("builder: decode catalog %s: %w", path, err)
	}
	return catalog, nil
}

// Localize returns a copy of form with field labels, placeholders, helper
// texts and validator messages translated from the keys named in each
// field's metadata. Untranslatable keys go through onMissing; without one
// the existing text is kept, or the key when there is none.
func Localize(form model.Form, locale string, t Translator, onMissing MissingTranslationHandler) model.Form {
	out := form.Clone()
	for i := range out.Fields {
		localizeField(&out.Fields[i], locale, t, onMissing)
	}
	return out
}

func localizeField(field *model.Field, locale string, t Translator, onMissing MissingTranslationHandler) {
	if len(field.Metadata) == 0 {
		return
	}
	if key := metaString(field.Metadata, LabelKeyHint); key != "" {
		field.Label = translate(locale, key, field.Label, t, onMissing)
	}
	if key := metaString(field.Metadata, PlaceholderKeyHint); key != "" {
		field.Placeholder = translate(locale, key, field.Placeholder, t, onMissing)
	}
	if key := metaString(field.Metadata, HelperTextKeyHint); key != "" {
		field.HelperText = translate(locale, key, field.HelperText, t, onMissing)
	}

	keys, ok := field.Metadata[MessageKeysHint].(map[string]any)
	if !ok || len(keys) == 0 {
		return
	}
	messages, _ := field.Metadata["messages"].(map[string]any)
	if messages == nil {
		messages = make(map[string]any, len(keys))
	}
	for name, rawKey := range keys {
		key, _ := rawKey.(string)
		if strings.TrimSpace(key) == "" {
			continue
		}
		fallback, _ := messages[name].(string)
		if msg := translate(locale, key, fallback, t, onMissing); msg != key || fallback != "" {
			messages[name] = msg
		}
	}
	if len(messages) > 0 {
		field.Metadata["messages"] = messages
	}
}

func translate(locale, key, fallback string, t Translator, onMissing MissingTranslationHandler) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}

	var err error = ErrMissingTranslator
	if t != nil {
		var result string
		result, err = t.Translate(locale, key)
		if err == nil && strings.TrimSpace(result) != "" {
			return result
		}
	}

	if onMissing != nil {
		return onMissing(locale, key, fallback, err)
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return key
}

func metaString(meta map[string]any, key string) string {
	s, _ := meta[key].(string)
	return strings.TrimSpace(s)
}
