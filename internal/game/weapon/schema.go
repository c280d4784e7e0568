package weapon

import "github.com/invopop/jsonschema"

// Schema returns the JSON schema of a weapon table file for content authoring tools.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(new(File))
	schema.Title = "Arena weapon table"
	schema.Description = "Validates designer-authored weapon definitions loaded at startup"
	return schema
}
