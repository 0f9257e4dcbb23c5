package compiler

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/relpath/internal/ir"
	"github.com/roach88/relpath/internal/schema"
)

// CompileYAML parses model definitions from a YAML document shaped like
// the CUE sources:
//
//	model:
//	  Author:
//	    fields:
//	      id: {kind: serial, key: true}
//	      name: string
//	    relationships:
//	      books: {target: Book, cardinality: one_to_many}
//
// Declaration order is preserved. filename is only used in errors.
func CompileYAML(data []byte, filename string) ([]schema.ModelDef, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error(), File: filename}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, yamlError(filename, root, "yaml", "document must be a mapping")
	}

	models := lookupNode(root, "model")
	if models == nil {
		return nil, nil
	}
	if models.Kind != yaml.MappingNode {
		return nil, yamlError(filename, models, "model", "must be a mapping of model names")
	}

	var defs []schema.ModelDef
	for i := 0; i+1 < len(models.Content); i += 2 {
		name, body := models.Content[i], models.Content[i+1]
		def, err := compileYAMLModel(filename, name.Value, body)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func compileYAMLModel(filename, name string, node *yaml.Node) (schema.ModelDef, error) {
	def := schema.ModelDef{Name: name}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return def, nil
	}
	if node.Kind != yaml.MappingNode {
		return def, yamlError(filename, node, name, "model must be a mapping")
	}
	if err := node.Decode(&def); err != nil {
		return def, yamlError(filename, node, name, err.Error())
	}
	def.Name = name

	if fields := lookupNode(node, "fields"); fields != nil {
		if fields.Kind != yaml.MappingNode {
			return def, yamlError(filename, fields, name+".fields", "must be a mapping")
		}
		for i := 0; i+1 < len(fields.Content); i += 2 {
			fd, err := compileYAMLField(filename, fields.Content[i].Value, fields.Content[i+1])
			if err != nil {
				return def, err
			}
			def.Fields = append(def.Fields, fd)
		}
	}

	if rels := lookupNode(node, "relationships"); rels != nil {
		if rels.Kind != yaml.MappingNode {
			return def, yamlError(filename, rels, name+".relationships", "must be a mapping")
		}
		for i := 0; i+1 < len(rels.Content); i += 2 {
			rd, err := compileYAMLRelationship(filename, rels.Content[i].Value, rels.Content[i+1])
			if err != nil {
				return def, err
			}
			def.Relationships = append(def.Relationships, rd)
		}
	}

	return def, nil
}

func compileYAMLField(filename, name string, node *yaml.Node) (schema.FieldDef, error) {
	fd := schema.FieldDef{Name: name}

	// Shorthand: name: string
	if node.Kind == yaml.ScalarNode {
		fd.Kind = node.Value
		return fd, nil
	}
	if node.Kind != yaml.MappingNode {
		return fd, yamlError(filename, node, "fields."+name, "must be a kind or a mapping")
	}

	if err := node.Decode(&fd); err != nil {
		return fd, yamlError(filename, node, "fields."+name, err.Error())
	}
	fd.Name = name
	if fd.Kind == "" {
		return fd, yamlError(filename, node, "fields."+name+".kind", "field kind is required")
	}

	if defNode := lookupNode(node, "default"); defNode != nil {
		var raw any
		if err := defNode.Decode(&raw); err != nil {
			return fd, yamlError(filename, defNode, "fields."+name+".default", err.Error())
		}
		v, err := ir.FromAny(raw)
		if err != nil {
			return fd, yamlError(filename, defNode, "fields."+name+".default", err.Error())
		}
		if ir.IsEnumerable(v) {
			return fd, yamlError(filename, defNode, "fields."+name+".default", "default must be a scalar")
		}
		fd.Default = v
	}

	return fd, nil
}

func compileYAMLRelationship(filename, name string, node *yaml.Node) (schema.RelationshipDef, error) {
	rd := schema.RelationshipDef{Name: name}

	// Shorthand: books: Book
	if node.Kind == yaml.ScalarNode {
		rd.Target = node.Value
		return rd, nil
	}
	if node.Kind != yaml.MappingNode {
		return rd, yamlError(filename, node, "relationships."+name, "must be a target model name or a mapping")
	}

	if err := node.Decode(&rd); err != nil {
		return rd, yamlError(filename, node, "relationships."+name, err.Error())
	}
	rd.Name = name
	if rd.Target == "" && len(rd.Through) == 0 {
		return rd, yamlError(filename, node, "relationships."+name, "relationship needs a target or a through chain")
	}
	return rd, nil
}

func lookupNode(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func yamlError(filename string, node *yaml.Node, field, message string) *CompileError {
	return &CompileError{
		Field:   field,
		Message: message,
		File:    filename,
		Line:    node.Line,
		Column:  node.Column,
	}
}

// EncodeYAML renders defs in the format CompileYAML reads. Fields and
// relationships that only carry a kind or a target use the shorthand form.
func EncodeYAML(defs []schema.ModelDef) ([]byte, error) {
	models := &yaml.Node{Kind: yaml.MappingNode}
	for _, def := range defs {
		body := &yaml.Node{}
		if err := body.Encode(def); err != nil {
			return nil, fmt.Errorf("encode %s: %w", def.Name, err)
		}
		// An empty struct encodes as a flow mapping "{}".
		body.Style = 0

		if len(def.Fields) > 0 {
			fields := &yaml.Node{Kind: yaml.MappingNode}
			for _, fd := range def.Fields {
				value, err := encodeField(fd)
				if err != nil {
					return nil, fmt.Errorf("encode %s.%s: %w", def.Name, fd.Name, err)
				}
				fields.Content = append(fields.Content, scalarNode(fd.Name), value)
			}
			body.Content = append(body.Content, scalarNode("fields"), fields)
		}

		if len(def.Relationships) > 0 {
			rels := &yaml.Node{Kind: yaml.MappingNode}
			for _, rd := range def.Relationships {
				value := scalarNode(rd.Target)
				if !isShorthandRelationship(rd) {
					value = &yaml.Node{}
					if err := value.Encode(rd); err != nil {
						return nil, fmt.Errorf("encode %s.%s: %w", def.Name, rd.Name, err)
					}
				}
				rels.Content = append(rels.Content, scalarNode(rd.Name), value)
			}
			body.Content = append(body.Content, scalarNode("relationships"), rels)
		}

		models.Content = append(models.Content, scalarNode(def.Name), body)
	}

	doc := &yaml.Node{
		Kind: yaml.DocumentNode,
		Content: []*yaml.Node{{
			Kind:    yaml.MappingNode,
			Content: []*yaml.Node{scalarNode("model"), models},
		}},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeField(fd schema.FieldDef) (*yaml.Node, error) {
	if isShorthandField(fd) {
		return scalarNode(fd.Kind), nil
	}
	node := &yaml.Node{}
	if err := node.Encode(fd); err != nil {
		return nil, err
	}
	if fd.Default != nil {
		def := &yaml.Node{}
		if err := def.Encode(nativeValue(fd.Default)); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, scalarNode("default"), def)
	}
	return node, nil
}

func isShorthandField(fd schema.FieldDef) bool {
	return !fd.Key && !fd.Required && !fd.Lazy && len(fd.LazyContexts) == 0 &&
		fd.Length == 0 && fd.Default == nil && fd.Repository == "" && len(fd.Options) == 0
}

func isShorthandRelationship(rd schema.RelationshipDef) bool {
	return rd.Target != "" && rd.Cardinality == "" && rd.TargetRepository == "" &&
		rd.Repository == "" && len(rd.Through) == 0
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// nativeValue converts a scalar default into the Go value the YAML
// encoder renders with its natural tag.
func nativeValue(v ir.Value) any {
	switch val := v.(type) {
	case ir.String:
		return string(val)
	case ir.Int:
		return int64(val)
	case ir.Bool:
		return bool(val)
	default:
		return nil
	}
}
