package manifest

import "github.com/invopop/jsonschema"

// Schema describes the JSON rendering of a Manifest.
func Schema() *jsonschema.Schema {
	reflector := new(jsonschema.Reflector)
	reflector.ExpandedStruct = true
	reflector.Anonymous = true

	schema := reflector.Reflect(&Manifest{})
	schema.Title = "Userscript manifest"
	return schema
}
