package llm

// SchemaType enumerates the JSON types a response schema can declare.
type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Schema is a provider-neutral response schema. Providers translate it to
// their native structured-output format.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
	Enum        []string
	Minimum     *float64
	Maximum     *float64
}

// Float64 returns a pointer to v, for schema bounds.
func Float64(v float64) *float64 {
	return &v
}
