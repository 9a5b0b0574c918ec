// Package document reads YAML schema and query documents.
//
// A schema document declares tables and the associations between them:
//
//	tables:
//	  - name: authors
//	    primaryKey: [id]
//	  - name: books
//	    primaryKey: [id]
//	    foreignKeys:
//	      - {columns: [author_id], table: authors}
//	associations:
//	  - {origin: authors, kind: hasMany, target: books}
//	  - {origin: books, kind: belongsTo, target: authors}
//
// A query document lists named requests compiled against a schema:
//
//	queries:
//	  - name: prolific
//	    from: authors
//	    annotate: [{count: books, as: bookCount}]
//	    where: [{count: books, op: gt, value: 10}]
//
// YAML is converted to JSON before decoding, so numbers arrive as float64;
// values are normalised with spf13/cast before they reach the compiler.
package document

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// LoadSchema reads a schema document from path.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema decodes a schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	return &s, nil
}

// LoadQueries reads a query document from path.
func LoadQueries(path string) (*Queries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return ParseQueries(data)
}

// ParseQueries decodes a query document. Query names must be unique.
func ParseQueries(data []byte) (*Queries, error) {
	var q Queries
	if err := yaml.UnmarshalStrict(data, &q); err != nil {
		return nil, fmt.Errorf("parsing queries: %w", err)
	}
	seen := make(map[string]bool, len(q.Queries))
	for i, query := range q.Queries {
		if query.Name == "" {
			return nil, fmt.Errorf("parsing queries: query %d has no name", i)
		}
		if seen[query.Name] {
			return nil, fmt.Errorf("parsing queries: duplicate query %q", query.Name)
		}
		seen[query.Name] = true
	}
	return &q, nil
}

// Marshal encodes a document as YAML.
func Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}
