package schema

import "github.com/invopop/jsonschema"

// Export is the whole-state backup document the client can download and
// re-import. Each field mirrors one persisted store key.
type Export struct {
	Profile    UserProfile `json:"profile" jsonschema_description:"The user's own profile"`
	Characters []Character `json:"characters" jsonschema_description:"Character roster with per-character transcripts"`
	Groups     []Group     `json:"groups" jsonschema_description:"Group roster; members reference character ids"`
	Background string      `json:"background,omitempty" jsonschema_description:"Chat background image reference"`
}

func generateSchema[T any]() any {
	r := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return r.Reflect(v)
}

// ExportSchema is served to clients that want to validate a backup before import.
var ExportSchema = generateSchema[Export]()
