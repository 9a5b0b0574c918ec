package document

import (
	"fmt"

	"github.com/pthm/relq/internal/sqlgen/sqldsl"
	"github.com/pthm/relq/schema"
)

// Schema is a schema document.
type Schema struct {
	Tables       []schema.Table `json:"tables"`
	Associations []Association  `json:"associations,omitempty"`
}

// Association declares one association. Exactly one of Target and Through
// is set.
type Association struct {
	Origin     string      `json:"origin"`
	Name       string      `json:"name,omitempty"`
	Kind       string      `json:"kind,omitempty"`
	Target     string      `json:"target,omitempty"`
	ForeignKey []string    `json:"foreignKey,omitempty"`
	PrimaryKey []string    `json:"primaryKey,omitempty"`
	Optional   bool        `json:"optional,omitempty"`
	Through    *Through    `json:"through,omitempty"`
	Filter     []Condition `json:"filter,omitempty"`
	Order      []Order     `json:"order,omitempty"`
}

// Through composes two associations. Pivot names an association of the
// origin table; Target names an association of the pivot's target table.
type Through struct {
	Pivot  string `json:"pivot"`
	Target string `json:"target"`
}

// FromTables builds a schema document holding tables and no associations.
func FromTables(tables []schema.Table) *Schema {
	return &Schema{Tables: tables}
}

// Registry builds the registry the document describes. Associations are
// declared in document order, so a through association may only use
// associations declared before it.
func (s *Schema) Registry() (*schema.Registry, error) {
	reg, err := schema.NewRegistry(s.Tables...)
	if err != nil {
		return nil, err
	}
	for i, a := range s.Associations {
		if _, err := a.declare(reg); err != nil {
			return nil, fmt.Errorf("association %d (%s): %w", i, a.label(), err)
		}
	}
	return reg, nil
}

func (a Association) label() string {
	if a.Name != "" {
		return a.Origin + "." + a.Name
	}
	if a.Target != "" {
		return a.Origin + "->" + a.Target
	}
	return a.Origin
}

func (a Association) declare(reg *schema.Registry) (*schema.Association, error) {
	opts, err := a.options()
	if err != nil {
		return nil, err
	}

	if a.Through != nil {
		if a.Target != "" {
			return nil, fmt.Errorf("%w: through and target are exclusive", schema.ErrInvalidThroughChain)
		}
		if a.Name == "" {
			return nil, fmt.Errorf("%w: through association needs a name", schema.ErrInvalidThroughChain)
		}
		pivot, err := reg.Association(a.Origin, a.Through.Pivot)
		if err != nil {
			return nil, err
		}
		target, err := reg.Association(pivot.Target().Name, a.Through.Target)
		if err != nil {
			return nil, err
		}
		return reg.Through(a.Name, pivot, target, opts...)
	}

	kind, err := schema.ParseKind(a.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case schema.HasOne:
		return reg.HasOne(a.Origin, a.Target, opts...)
	case schema.HasMany:
		return reg.HasMany(a.Origin, a.Target, opts...)
	}
	return reg.BelongsTo(a.Origin, a.Target, opts...)
}

func (a Association) options() ([]schema.Option, error) {
	var opts []schema.Option
	if a.Name != "" {
		opts = append(opts, schema.WithName(a.Name))
	}
	if len(a.ForeignKey) > 0 {
		opts = append(opts, schema.WithForeignKey(a.ForeignKey...))
	}
	if len(a.PrimaryKey) > 0 {
		opts = append(opts, schema.WithPrimaryKey(a.PrimaryKey...))
	}
	if a.Optional {
		opts = append(opts, schema.Optional())
	}

	// Association filters and orders only see the joined table.
	bare := bareResolver{}
	for _, c := range a.Filter {
		e, err := c.expr(bare)
		if err != nil {
			return nil, err
		}
		opts = append(opts, schema.WithFilter(e))
	}
	for _, o := range a.Order {
		term, err := o.term(bare)
		if err != nil {
			return nil, err
		}
		opts = append(opts, schema.WithOrder(term))
	}
	return opts, nil
}

// bareResolver resolves columns of association declarations. Columns stay
// unbound until the association is attached.
type bareResolver struct{}

func (bareResolver) column(name string) (sqldsl.Col, error) {
	return sqldsl.Column(name), nil
}

func (bareResolver) aggregate(Aggregate) (sqldsl.Expr, error) {
	return nil, fmt.Errorf("aggregates are not allowed in association declarations")
}
