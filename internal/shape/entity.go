package shape

// Record holds an entity's property values keyed by field name. Collection
// values are []any, map values are map[any]any, struct values are nested
// Records, optional absence is nil, and references are *Entity values.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Entity is an aggregate value together with its identity state. A value is
// either transient (never saved, no identity) or persisted (carries the
// store-assigned id). Identity presence, not an explicit flag passed by the
// caller, decides whether save performs an insert or an update.
type Entity struct {
	values Record
	id     int64
	saved  bool
}

// Transient wraps property values that have never been saved.
func Transient(values Record) *Entity {
	return &Entity{values: values}
}

// Persisted wraps property values that already carry a store identity.
// Constructed by the persistence layer; callers normally receive persisted
// entities from Save and Fetch rather than building them.
func Persisted(id int64, values Record) *Entity {
	return &Entity{values: values, id: id, saved: true}
}

// IsPersisted reports whether the entity carries a store identity.
func (e *Entity) IsPersisted() bool { return e.saved }

// ID returns the store identity. Zero for transient entities.
func (e *Entity) ID() int64 { return e.id }

// Get returns the named property value.
func (e *Entity) Get(name string) any { return e.values[name] }

// Values returns the underlying record.
func (e *Entity) Values() Record { return e.values }
