package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a schema file lifted into nodes.
type Document struct {
	// Name is the $id of the root schema, or the file name without its
	// extension.
	Name   string
	Source string
	Root   *Node
	Defs   *Resolver
}

// ParseFile parses a schema document from a YAML or JSON file.
func ParseFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read file %s: %w", path, err)
	}

	base := filepath.Base(path)
	doc, err := Parse(data, strings.TrimSuffix(base, filepath.Ext(base)))
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// Parse parses a schema document from YAML or JSON bytes. fallbackName is
// used when the root schema has no $id.
func Parse(data []byte, fallbackName string) (Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("parse yaml: %w", err)
	}

	root, defs, err := FromDocument(raw)
	if err != nil {
		return Document{}, err
	}

	name := root.ID()
	if name == "" {
		name = fallbackName
	}
	if !isValidName(name) {
		return Document{}, fmt.Errorf("schema name %q is not a valid identifier", name)
	}

	return Document{Name: name, Root: root, Defs: defs}, nil
}

// ParseDir parses all schema documents from a directory, including
// subdirectories.
func ParseDir(dir string) ([]Document, error) {
	var docs []Document

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, sub...)
			continue
		}

		if !IsSchemaFile(entry.Name()) {
			continue
		}

		doc, err := ParseFile(path)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// IsSchemaFile reports whether name has a schema file extension.
func IsSchemaFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// isValidName checks that a schema name is safe to use in URLs.
func isValidName(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' && c != '-' && c != '.' {
				return false
			}
		}
	}

	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
