// Package i18n loads YAML message catalogs and resolves localized strings.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

const embeddedDir = "locales"

// Translator resolves localized strings using dot-separated keys. Optional args are
// key/value pairs substituted into {key} placeholders.
type Translator interface {
	T(key string, args ...any) string
	Lang() string
}

// Manager stores all available translations.
type Manager struct {
	translations catalog
	defaultLang  string
}

// Load loads the catalogs compiled into the binary.
func Load(defaultLang string) (*Manager, error) {
	return LoadFS(embedded, embeddedDir, defaultLang)
}

// LoadFromDir loads translations from a directory containing YAML files.
func LoadFromDir(dir, defaultLang string) (*Manager, error) {
	return LoadFS(os.DirFS(dir), ".", defaultLang)
}

// LoadFS loads translations from dir inside fsys.
func LoadFS(fsys fs.FS, dir, defaultLang string) (*Manager, error) {
	parsed, err := parseDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	if defaultLang == "" {
		defaultLang = "en"
	}

	if _, ok := parsed[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}

	return &Manager{translations: parsed, defaultLang: defaultLang}, nil
}

// Translator returns a translator for the requested language.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	norm := strings.ToLower(strings.TrimSpace(lang))
	if norm == "" || m.translations[norm] == nil {
		norm = m.defaultLang
	}

	return translator{
		lang:         norm,
		fallback:     m.defaultLang,
		translations: m.translations,
	}
}

// Languages returns all loaded languages in sorted order.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}

	languages := make([]string, 0, len(m.translations))
	for lang := range m.translations {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}

// DefaultLang returns the fallback language.
func (m *Manager) DefaultLang() string {
	if m == nil {
		return ""
	}
	return m.defaultLang
}

// Supports reports whether a catalog exists for lang.
func (m *Manager) Supports(lang string) bool {
	if m == nil {
		return false
	}
	_, ok := m.translations[strings.ToLower(strings.TrimSpace(lang))]
	return ok
}

// AllValues returns the distinct translations of key across every language. It is
// used to match reply-keyboard labels regardless of the sender's language.
func (m *Manager) AllValues(key string) []string {
	if m == nil {
		return nil
	}

	seen := make(map[string]bool)
	values := make([]string, 0, len(m.translations))
	for _, lang := range m.Languages() {
		if v, ok := m.translations[lang][key]; ok && v != "" && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	return values
}

type translator struct {
	lang         string
	fallback     string
	translations catalog
}

func (t translator) Lang() string {
	return t.lang
}

func (t translator) T(key string, args ...any) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}

	value := t.lookup(t.lang, key)
	if value == "" {
		value = t.lookup(t.fallback, key)
	}
	if value == "" {
		return key
	}

	return Format(value, args...)
}

// Format replaces {name} placeholders using key/value pairs from args.
func Format(template string, args ...any) string {
	if len(args) < 2 || !strings.Contains(template, "{") {
		return template
	}

	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		name, ok := args[i].(string)
		if !ok {
			continue
		}
		pairs = append(pairs, "{"+name+"}", fmt.Sprint(args[i+1]))
	}

	return strings.NewReplacer(pairs...).Replace(template)
}

func (t translator) lookup(lang, key string) string {
	if lang == "" {
		return ""
	}
	return t.translations[lang][key]
}

// MissingKeys lists keys of the default language that lang does not translate.
func (m *Manager) MissingKeys(lang string) []string {
	if m == nil {
		return nil
	}

	own := m.translations[lang]
	var missing []string
	for key := range m.translations[m.defaultLang] {
		if _, ok := own[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

// catalog maps language to flattened key to message.
type catalog map[string]map[string]string

func (c catalog) merge(other catalog) {
	for lang, entries := range other {
		dst, ok := c[lang]
		if !ok {
			dst = make(map[string]string, len(entries))
			c[lang] = dst
		}
		for key, value := range entries {
			dst[key] = value
		}
	}
}

// parseDir merges every YAML file in dir. Later files override earlier ones key by key.
func parseDir(fsys fs.FS, dir string) (catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read dir %s: %w", dir, err)
	}

	merged := make(catalog)
	found := false
	for _, entry := range entries {
		ext := strings.ToLower(path.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		found = true

		name := path.Join(dir, entry.Name())
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("i18n: read file %s: %w", name, err)
		}
		parsed, err := parseCatalog(data)
		if err != nil {
			return nil, fmt.Errorf("i18n: parse file %s: %w", name, err)
		}
		merged.merge(parsed)
	}

	if !found {
		return nil, fmt.Errorf("i18n: no yaml files found in %s", dir)
	}
	return merged, nil
}

// parseCatalog reads a document whose top-level keys are languages and whose nested
// mappings flatten into dotted keys.
func parseCatalog(data []byte) (catalog, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	out := make(catalog, len(doc))
	for lang, tree := range doc {
		lang = strings.ToLower(strings.TrimSpace(lang))
		nested, ok := tree.(map[string]any)
		if lang == "" || !ok {
			continue
		}

		entries := make(map[string]string)
		flatten(entries, "", nested)
		if len(entries) > 0 {
			out[lang] = entries
		}
	}
	return out, nil
}

func flatten(dst map[string]string, prefix string, tree map[string]any) {
	for key, value := range tree {
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		switch v := value.(type) {
		case map[string]any:
			flatten(dst, key, v)
		case nil:
		default:
			dst[key] = fmt.Sprint(v)
		}
	}
}
