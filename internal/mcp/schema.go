package mcp

import "github.com/google/jsonschema-go/jsonschema"

// Param describes one tool parameter. Types lists Go type names; more
// than one means the parameter accepts any of them.
type Param struct {
	Name        string
	Types       []string
	Description string
	Required    bool
}

// ObjectSchema builds an object schema from params. Unknown properties
// are rejected.
func ObjectSchema(params ...Param) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:                 "object",
		Properties:           make(map[string]*jsonschema.Schema, len(params)),
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}

	for _, p := range params {
		prop := &jsonschema.Schema{Description: p.Description}

		switch len(p.Types) {
		case 0:
		case 1:
			prop.Type = goTypeToJSONType(p.Types[0])
		default:
			for _, t := range p.Types {
				prop.Types = append(prop.Types, goTypeToJSONType(t))
			}
		}

		if prop.Type == "array" {
			prop.Items = &jsonschema.Schema{}
		}

		schema.Properties[p.Name] = prop

		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}

	return schema
}

// goTypeToJSONType converts a Go type name to a JSON Schema type.
func goTypeToJSONType(goType string) string {
	switch goType {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return "integer"
	case "float32", "float64", "float", "number":
		return "number"
	case "bool", "boolean":
		return "boolean"
	case "any", "object", "map[string]any":
		return "object"
	case "null", "nil":
		return "null"
	default:
		if len(goType) > 2 && goType[:2] == "[]" {
			return "array"
		}

		return "string"
	}
}
