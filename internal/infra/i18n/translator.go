package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Translator holds one language's message catalogue.
type Translator struct {
	translations map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := filepath.Join("locales", fmt.Sprintf("%s.yaml", langCode))

	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return newTranslatorFromBytes(data)
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T returns the message for key, formatted with args. Unknown keys come back unchanged.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Catalog picks a Translator per request language and falls back to the default one.
type Catalog struct {
	byLang   map[string]*Translator
	fallback *Translator
}

// NewCatalog loads every language in langs; defaultLang must be one of them.
func NewCatalog(fsys fs.FS, defaultLang string, langs ...string) (*Catalog, error) {
	c := &Catalog{byLang: make(map[string]*Translator, len(langs))}
	for _, lang := range langs {
		tr, err := NewTranslator(fsys, lang)
		if err != nil {
			return nil, err
		}
		c.byLang[lang] = tr
	}
	fb, ok := c.byLang[defaultLang]
	if !ok {
		return nil, fmt.Errorf("default language %q is not loaded", defaultLang)
	}
	c.fallback = fb
	return c, nil
}

// For resolves an Accept-Language header such as "zh-CN,zh;q=0.9,en;q=0.8".
// Entries are tried in the order given; quality values are ignored.
func (c *Catalog) For(acceptLanguage string) *Translator {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" {
			continue
		}
		primary := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if tr, ok := c.byLang[primary]; ok {
			return tr
		}
	}
	return c.fallback
}
