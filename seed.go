package downblog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// SeedFormat is the encoding of a seed file.
type SeedFormat string

const (
	SeedTOML     SeedFormat = "toml"
	SeedYAML     SeedFormat = "yaml"
	SeedMarkdown SeedFormat = "markdown"
)

var ErrUnsupportedSeedFormat = errors.New("unsupported seed format")

// SeedFile is the document shape of a seed file: a list of posts to submit.
//
// YAML:
//
//	posts:
//	  - title: Hello
//	    text: First post
//	    author: bob
//
// TOML:
//
//	[[posts]]
//	title = "Hello"
//	text = "First post"
//	author = "bob"
type SeedFile struct {
	Posts []PostFields `yaml:"posts" toml:"posts"`
}

// SeedFormatFromPath picks the seed format from a file extension.
func SeedFormatFromPath(path string) (SeedFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return SeedYAML, nil
	case ".toml":
		return SeedTOML, nil
	case ".md", ".markdown":
		return SeedMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSeedFormat, filepath.Ext(path))
	}
}

// LoadSeed reads the posts of a seed file, or of every seed file below a
// directory in lexical order. Files in a directory with other extensions are skipped.
func LoadSeed(path string) ([]PostFields, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat seed path: %w", err)
	}

	if !info.IsDir() {
		return LoadSeedFile(path)
	}

	var posts []PostFields
	err = filepath.WalkDir(path, func(file string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if _, err := SeedFormatFromPath(file); err != nil {
			return nil
		}

		entries, err := LoadSeedFile(file)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		posts = append(posts, entries...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return posts, nil
}

// LoadSeedFile reads and decodes a YAML, TOML or markdown seed file.
func LoadSeedFile(path string) ([]PostFields, error) {
	format, err := SeedFormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	return ParseSeed(data, format)
}

// ParseSeed decodes seed data in the given format.
func ParseSeed(data []byte, format SeedFormat) ([]PostFields, error) {
	var seed SeedFile

	switch format {
	case SeedYAML:
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML seed: %w", err)
		}
	case SeedTOML:
		if _, err := toml.Decode(string(data), &seed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal TOML seed: %w", err)
		}
	case SeedMarkdown:
		post, err := ParseMarkdownPost(data)
		if err != nil {
			return nil, err
		}
		return []PostFields{post}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSeedFormat, format)
	}

	return seed.Posts, nil
}
