package mapping

import (
	"fmt"

	"github.com/tordrt/relstore/internal/schema"
	"github.com/tordrt/relstore/internal/shape"
)

// Registry holds the entity mappings of one store instance. Built once at
// startup, passed explicitly to every operation; there is no global state.
type Registry struct {
	entities map[string]*EntityMapping
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*EntityMapping)}
}

// Register builds and stores the mapping tree for one entity definition.
// Registering the same name twice is a configuration error.
func (r *Registry) Register(def shape.EntityDef) error {
	if _, ok := r.entities[def.Name]; ok {
		return fmt.Errorf("entity %s is already registered", def.Name)
	}
	em, err := newEntityMapping(r, def)
	if err != nil {
		return err
	}
	r.entities[def.Name] = em
	r.order = append(r.order, def.Name)
	return nil
}

// Entity resolves a type name to its mapping.
func (r *Registry) Entity(name string) (*EntityMapping, error) {
	em, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotRegistered)
	}
	return em, nil
}

// Names returns the registered entity names in registration order.
func (r *Registry) Names() []string { return r.order }

// Tables returns every schema fragment produced by every registered entity,
// in registration order. Reference targets must be registered by the time
// this is called; the schema builder validates the result globally.
func (r *Registry) Tables() ([]schema.Table, error) {
	var tables []schema.Table
	for _, name := range r.order {
		em := r.entities[name]
		for _, t := range em.Tables() {
			// Foreign keys only ever target entity main tables.
			for _, fk := range t.ForeignKeys {
				if _, ok := r.entities[fk.TargetTable]; !ok {
					return nil, fmt.Errorf("table %s references unregistered entity %s: %w",
						t.Name, fk.TargetTable, ErrNotRegistered)
				}
			}
			tables = append(tables, t)
		}
	}
	return tables, nil
}
