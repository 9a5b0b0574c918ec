package schema

import (
	"fmt"

	"github.com/pthm/relq/internal/sqlgen/sqldsl"
)

// Kind is the cardinality of an association.
type Kind int

const (
	// BelongsTo: the origin holds a foreign key to the target.
	BelongsTo Kind = iota
	// HasOne: the target holds a foreign key to the origin, at most one row.
	HasOne
	// HasMany: the target holds a foreign key to the origin.
	HasMany
)

func (k Kind) String() string {
	switch k {
	case BelongsTo:
		return "belongsTo"
	case HasOne:
		return "hasOne"
	case HasMany:
		return "hasMany"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ToMany reports whether the association may match several target rows.
func (k Kind) ToMany() bool {
	return k == HasMany
}

// ParseKind parses the String form of a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "belongsTo", "belongs_to":
		return BelongsTo, nil
	case "hasOne", "has_one":
		return HasOne, nil
	case "hasMany", "has_many":
		return HasMany, nil
	}
	return 0, fmt.Errorf("unknown association kind %q", s)
}

// KeyPair maps one origin column to one target column.
type KeyPair struct {
	Origin string
	Target string
}

// Condition produces a custom join condition between an origin occurrence
// and a target occurrence.
type Condition func(origin, target *sqldsl.TableRef) sqldsl.Expr

// Association is an immutable relation between two tables.
//
// Associations are created through a Registry and may be shared across any
// number of plans and goroutines. Filter, Order and Named derive new
// associations; a derived association is a distinct value, so a plan joins
// it separately from the association it came from.
type Association struct {
	name     string
	kind     Kind
	origin   *Table
	target   *Table
	optional bool
	mapping  []KeyPair
	cond     Condition
	filters  []sqldsl.Expr
	order    []sqldsl.OrderTerm

	// hops is the flattened chain of a through association, nil otherwise.
	hops []*Association
}

// Name returns the association name, unique per origin table.
func (a *Association) Name() string { return a.name }

// Kind returns the association cardinality.
func (a *Association) Kind() Kind { return a.kind }

// Origin returns the table the association starts from.
func (a *Association) Origin() *Table { return a.origin }

// Target returns the table the association leads to.
func (a *Association) Target() *Table { return a.target }

// IsOptional reports whether the association may have no target row.
// Optional associations join with LEFT JOIN by default.
func (a *Association) IsOptional() bool { return a.optional }

// Mapping returns the key mapping. It is empty for through associations and
// may be empty for associations with a custom condition.
func (a *Association) Mapping() []KeyPair { return a.mapping }

// Condition returns the custom join condition, if any.
func (a *Association) Condition() Condition { return a.cond }

// Filters returns the predicates declared on the association. Bare columns
// refer to the target table.
func (a *Association) Filters() []sqldsl.Expr { return a.filters }

// Ordering returns the order terms declared on the association. Bare
// columns refer to the target table.
func (a *Association) Ordering() []sqldsl.OrderTerm { return a.order }

// IsThrough reports whether the association traverses pivot tables.
func (a *Association) IsThrough() bool { return len(a.hops) > 0 }

// Hops returns the ordered direct associations traversed by a. A direct
// association is its own single hop.
func (a *Association) Hops() []*Association {
	if len(a.hops) == 0 {
		return []*Association{a}
	}
	return a.hops
}

// Filter returns a copy of a with additional filters.
func (a *Association) Filter(exprs ...sqldsl.Expr) *Association {
	c := a.clone()
	for _, e := range exprs {
		if e != nil {
			c.filters = append(c.filters, e)
		}
	}
	return c
}

// Order returns a copy of a with additional order terms.
func (a *Association) Order(terms ...sqldsl.OrderTerm) *Association {
	c := a.clone()
	c.order = append(c.order, terms...)
	return c
}

// Named returns a copy of a with a different name.
func (a *Association) Named(name string) *Association {
	c := a.clone()
	c.name = name
	return c
}

// String returns origin.name.
func (a *Association) String() string {
	return a.origin.Name + "." + a.name
}

func (a *Association) clone() *Association {
	c := *a
	c.mapping = append([]KeyPair(nil), a.mapping...)
	c.filters = append([]sqldsl.Expr(nil), a.filters...)
	c.order = append([]sqldsl.OrderTerm(nil), a.order...)
	c.hops = append([]*Association(nil), a.hops...)
	if len(c.hops) == 0 {
		c.hops = nil
	}
	return &c
}

// OriginColumns returns the origin columns the association reads, in key
// mapping order. For a through association these are the first hop's.
func (a *Association) OriginColumns() []string {
	first := a.Hops()[0]
	cols := make([]string, len(first.mapping))
	for i, p := range first.mapping {
		cols[i] = p.Origin
	}
	return cols
}

// Option configures an association declared through a Registry.
type Option func(*options)

type options struct {
	name       string
	foreignKey []string
	primaryKey []string
	optional   bool
	filters    []sqldsl.Expr
	order      []sqldsl.OrderTerm
}

// WithName sets the association name instead of deriving it from the
// target table.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithForeignKey selects the foreign key columns explicitly. For BelongsTo
// they live on the origin table, for HasOne and HasMany on the target.
func WithForeignKey(columns ...string) Option {
	return func(o *options) {
		o.foreignKey = columns
	}
}

// WithPrimaryKey sets the columns referenced by the foreign key when they
// are not the referenced table's primary key.
func WithPrimaryKey(columns ...string) Option {
	return func(o *options) {
		o.primaryKey = columns
	}
}

// Optional marks the association as possibly having no target row.
func Optional() Option {
	return func(o *options) {
		o.optional = true
	}
}

// WithFilter adds predicates on the target table.
func WithFilter(exprs ...sqldsl.Expr) Option {
	return func(o *options) {
		o.filters = append(o.filters, exprs...)
	}
}

// WithOrder adds order terms on the target table.
func WithOrder(terms ...sqldsl.OrderTerm) Option {
	return func(o *options) {
		o.order = append(o.order, terms...)
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
