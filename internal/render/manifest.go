package render

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrEmptyManifest возвращается для манифеста без единого спрайта
var ErrEmptyManifest = errors.New("empty texture manifest")

// Handle - непрозрачный идентификатор ресурса, выданный Resolver
type Handle int

// Sprite описывает ресурс: путь к текстуре для графических клиентов
// и символ с цветами для терминала.
type Sprite struct {
	Category string `yaml:"-"`
	Name     string `yaml:"-"`
	Texture  string `yaml:"texture"`
	Glyph    string `yaml:"glyph"`
	FG       string `yaml:"fg"`
	BG       string `yaml:"bg"`
}

// Rune возвращает символ спрайта, по умолчанию '?'
func (s Sprite) Rune() rune {
	for _, r := range s.Glyph {
		return r
	}
	return '?'
}

// Resolver сопоставляет ресурс (категория, имя) с хендлом
type Resolver interface {
	Resolve(category, name string) (Handle, bool)
}

// Manifest - таблица спрайтов, загружается один раз и дальше только читается
type Manifest struct {
	sprites []Sprite
	index   map[string]Handle
}

type manifestFile map[string]map[string]Sprite

// ParseManifest разбирает YAML вида category -> name -> sprite
func ParseManifest(data []byte) (*Manifest, error) {
	var raw manifestFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	m := &Manifest{index: make(map[string]Handle)}
	categories := make([]string, 0, len(raw))
	for c := range raw {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		names := make([]string, 0, len(raw[category]))
		for n := range raw[category] {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, name := range names {
			s := raw[category][name]
			s.Category = category
			s.Name = name
			if s.Texture == "" {
				s.Texture = fmt.Sprintf("%s/%s.png", category, name)
			}
			m.index[key(category, name)] = Handle(len(m.sprites))
			m.sprites = append(m.sprites, s)
		}
	}
	if len(m.sprites) == 0 {
		return nil, ErrEmptyManifest
	}
	return m, nil
}

// LoadManifest читает манифест из файла
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}

func key(category, name string) string {
	return category + "/" + name
}

// Resolve возвращает хендл ресурса
func (m *Manifest) Resolve(category, name string) (Handle, bool) {
	h, ok := m.index[key(category, name)]
	return h, ok
}

// Sprite возвращает спрайт по хендлу
func (m *Manifest) Sprite(h Handle) (Sprite, bool) {
	if h < 0 || int(h) >= len(m.sprites) {
		return Sprite{}, false
	}
	return m.sprites[h], true
}

// Len возвращает количество спрайтов
func (m *Manifest) Len() int {
	return len(m.sprites)
}
