package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Catalog formats selectable by name.
const (
	FormatINI  = "ini"
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// Parser turns one catalog file into a Catalog. Extension is the file
// suffix, dot included, appended to the locale tag to name the file.
type Parser interface {
	Extension() string
	Parse(path string) (Catalog, error)
}

// ParserFor returns the parser registered for format; an empty format selects INI.
func ParserFor(format string) (Parser, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatINI:
		return INIParser{}, nil
	case FormatTOML:
		return TOMLParser{}, nil
	case FormatYAML, "yml":
		return YAMLParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// INIParser reads files where top level "key = value" lines are entries and
// "[section]" headers open a section. Values are kept as written: "#" and ";"
// after a value are part of it and "%(name)s" is not expanded.
type INIParser struct{}

func (INIParser) Extension() string {
	return ".ini"
}

func (INIParser) Parse(path string) (Catalog, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		UnescapeValueDoubleQuotes: true,
		IgnoreInlineComment:       true,
	}, path)
	if err != nil {
		return Catalog{}, err
	}

	c := New()
	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			for _, key := range section.Keys() {
				c.Entries[key.Name()] = key.Value()
			}
			continue
		}

		values := make(map[string]string, len(section.Keys()))
		for _, key := range section.Keys() {
			values[key.Name()] = key.Value()
		}
		c.Sections[section.Name()] = values
	}

	return c, c.Validate()
}

// TOMLParser reads TOML files; top level tables are sections.
type TOMLParser struct{}

func (TOMLParser) Extension() string {
	return ".toml"
}

func (TOMLParser) Parse(path string) (Catalog, error) {
	var tree map[string]any
	if _, err := toml.DecodeFile(path, &tree); err != nil {
		return Catalog{}, err
	}
	return fromTree(tree)
}

// YAMLParser reads YAML files; top level mappings are sections.
type YAMLParser struct{}

func (YAMLParser) Extension() string {
	return ".yaml"
}

func (YAMLParser) Parse(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, err
	}

	var tree map[string]any
	if err = yaml.Unmarshal(raw, &tree); err != nil {
		return Catalog{}, err
	}
	return fromTree(tree)
}

// fromTree folds a decoded document into a Catalog, allowing one level of nesting.
func fromTree(tree map[string]any) (Catalog, error) {
	c := New()
	for key, value := range tree {
		nested, isSection := value.(map[string]any)
		if !isSection {
			scalar, err := scalarString(key, value)
			if err != nil {
				return Catalog{}, err
			}
			c.Entries[key] = scalar
			continue
		}

		values := make(map[string]string, len(nested))
		for subKey, subValue := range nested {
			scalar, err := scalarString(key+"."+subKey, subValue)
			if err != nil {
				return Catalog{}, err
			}
			values[subKey] = scalar
		}
		c.Sections[key] = values
	}
	return c, nil
}

func scalarString(key string, value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case map[string]any:
		return "", fmt.Errorf("%q: sections cannot be nested", key)
	case []any:
		return "", fmt.Errorf("%q: lists are not messages", key)
	default:
		return fmt.Sprint(v), nil
	}
}
