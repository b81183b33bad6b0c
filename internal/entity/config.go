package entity

// Config names the document fields that may hold the embedded GTS identifier
// of an entity and of its schema, in probe order.
type Config struct {
	EntityIDFields []string `yaml:"entity_id_fields"`
	SchemaIDFields []string `yaml:"schema_id_fields"`
}

// DefaultConfig returns the documented default field probe order.
func DefaultConfig() Config {
	return Config{
		EntityIDFields: []string{
			"$id", "gtsId", "gtsIid", "gtsOid", "gtsI",
			"gts_id", "gts_oid", "gts_iid", "id",
		},
		SchemaIDFields: []string{
			"$schema", "gtsTid", "gtsT", "gts_t", "gts_tid",
			"type", "schema",
		},
	}
}

// normalized fills empty field lists from the defaults so a zero Config is
// usable.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if len(c.EntityIDFields) == 0 {
		c.EntityIDFields = def.EntityIDFields
	}
	if len(c.SchemaIDFields) == 0 {
		c.SchemaIDFields = def.SchemaIDFields
	}
	return c
}
