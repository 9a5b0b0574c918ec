package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-openapi/inflect"
)

// Registry holds the tables and associations of one database schema.
//
// A Registry is populated once at startup and then shared read-only by every
// plan that compiles against it. All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
	names  []string
	assocs map[string]map[string]*Association
	order  map[string][]string
}

// NewRegistry creates a registry holding tables.
func NewRegistry(tables ...Table) (*Registry, error) {
	r := &Registry{
		tables: make(map[string]*Table),
		assocs: make(map[string]map[string]*Association),
		order:  make(map[string][]string),
	}
	for _, t := range tables {
		if _, err := r.AddTable(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func tableKey(name string) string {
	return strings.ToLower(name)
}

// AddTable validates and registers a table.
func (r *Registry) AddTable(t Table) (*Table, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	key := tableKey(t.Name)
	if _, ok := r.tables[key]; ok {
		return nil, fmt.Errorf("%w: table %q declared twice", ErrInvalidTable, t.Name)
	}
	stored := t
	r.tables[key] = &stored
	r.names = append(r.names, t.Name)
	return &stored, nil
}

// Table returns the table named name.
func (r *Registry) Table(name string) (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[tableKey(name)]
	return t, ok
}

// MustTable is like Table but panics if the table is unknown.
func (r *Registry) MustTable(name string) *Table {
	t, ok := r.Table(name)
	if !ok {
		panic(fmt.Sprintf("relq: unknown table %q", name))
	}
	return t
}

// Tables returns every table in declaration order.
func (r *Registry) Tables() []*Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Table, len(r.names))
	for i, n := range r.names {
		out[i] = r.tables[tableKey(n)]
	}
	return out
}

// Association returns the association declared on origin under name.
func (r *Registry) Association(origin, name string) (*Association, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.assocs[tableKey(origin)][name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAssociation, origin, name)
}

// Associations returns the associations declared on origin in declaration
// order.
func (r *Registry) Associations(origin string) []*Association {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := tableKey(origin)
	out := make([]*Association, 0, len(r.order[key]))
	for _, n := range r.order[key] {
		out = append(out, r.assocs[key][n])
	}
	return out
}

// Validate checks that every foreign key references a declared table and
// that referenced columns match in arity.
func (r *Registry) Validate() error {
	for _, t := range r.Tables() {
		if err := t.Validate(); err != nil {
			return err
		}
		for _, fk := range t.ForeignKeys {
			ref, ok := r.Table(fk.Table)
			if !ok {
				return fmt.Errorf("%w: %q references unknown table %q", ErrInvalidTable, t.Name, fk.Table)
			}
			refCols := fk.References
			if len(refCols) == 0 {
				refCols = ref.RowKey()
			}
			if len(refCols) != len(fk.Columns) {
				return fmt.Errorf("%w: foreign key %v of %q does not match key %v of %q",
					ErrInvalidTable, fk.Columns, t.Name, refCols, ref.Name)
			}
		}
	}
	return nil
}

// BelongsTo declares that origin holds a foreign key to target.
func (r *Registry) BelongsTo(origin, target string, opts ...Option) (*Association, error) {
	o := applyOptions(opts)
	ot, tt, err := r.pair(origin, target)
	if err != nil {
		return nil, err
	}
	cols, refs, err := resolveForeignKey(ot, tt, o)
	if err != nil {
		return nil, err
	}
	mapping := make([]KeyPair, len(cols))
	for i := range cols {
		mapping[i] = KeyPair{Origin: cols[i], Target: refs[i]}
	}
	return r.register(newAssociation(BelongsTo, ot, tt, mapping, o))
}

// HasOne declares that target holds a foreign key to origin and matches at
// most one row.
func (r *Registry) HasOne(origin, target string, opts ...Option) (*Association, error) {
	return r.inverse(HasOne, origin, target, opts)
}

// HasMany declares that target holds a foreign key to origin.
func (r *Registry) HasMany(origin, target string, opts ...Option) (*Association, error) {
	return r.inverse(HasMany, origin, target, opts)
}

func (r *Registry) inverse(kind Kind, origin, target string, opts []Option) (*Association, error) {
	o := applyOptions(opts)
	ot, tt, err := r.pair(origin, target)
	if err != nil {
		return nil, err
	}
	cols, refs, err := resolveForeignKey(tt, ot, o)
	if err != nil {
		return nil, err
	}
	mapping := make([]KeyPair, len(cols))
	for i := range cols {
		mapping[i] = KeyPair{Origin: refs[i], Target: cols[i]}
	}
	return r.register(newAssociation(kind, ot, tt, mapping, o))
}

// AssociationTo declares a to-one association joined by a custom condition.
// WithForeignKey and WithPrimaryKey are ignored.
func (r *Registry) AssociationTo(origin, target string, cond Condition, opts ...Option) (*Association, error) {
	if cond == nil {
		return nil, fmt.Errorf("%w: %s -> %s has no join condition", ErrMissingForeignKey, origin, target)
	}
	o := applyOptions(opts)
	ot, tt, err := r.pair(origin, target)
	if err != nil {
		return nil, err
	}
	a := newAssociation(BelongsTo, ot, tt, nil, o)
	a.cond = cond
	return r.register(a)
}

// Through declares an association reaching target's table by way of
// pivot's table. target must start where pivot ends. Chains flatten: a
// through association built from through associations has one ordered hop
// list.
func (r *Registry) Through(name string, pivot, target *Association, opts ...Option) (*Association, error) {
	if pivot == nil || target == nil {
		return nil, fmt.Errorf("%w: %q needs both a pivot and a target", ErrInvalidThroughChain, name)
	}
	if !target.Origin().Is(pivot.Target().Name) {
		return nil, fmt.Errorf("%w: %s ends at %q but %s starts at %q",
			ErrInvalidThroughChain, pivot, pivot.Target().Name, target, target.Origin().Name)
	}
	o := applyOptions(opts)
	if name != "" {
		o.name = name
	}

	hops := append(append([]*Association(nil), pivot.Hops()...), target.Hops()...)
	kind := HasOne
	optional := o.optional
	for _, h := range hops {
		if h.kind == HasMany {
			kind = HasMany
		}
		if h.optional {
			optional = true
		}
	}
	o.optional = optional

	a := newAssociation(kind, pivot.Origin(), target.Target(), nil, o)
	a.hops = hops
	return r.register(a)
}

func newAssociation(kind Kind, origin, target *Table, mapping []KeyPair, o options) *Association {
	name := o.name
	if name == "" {
		name = defaultName(kind, target.Name)
	}
	return &Association{
		name:     name,
		kind:     kind,
		origin:   origin,
		target:   target,
		optional: o.optional,
		mapping:  mapping,
		filters:  o.filters,
		order:    o.order,
	}
}

// defaultName derives an association name from the target table: singular
// for to-one associations, plural for to-many.
func defaultName(kind Kind, table string) string {
	if kind.ToMany() {
		return inflect.Pluralize(table)
	}
	return inflect.Singularize(table)
}

func (r *Registry) pair(origin, target string) (*Table, *Table, error) {
	ot, ok := r.Table(origin)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown table %q", ErrInvalidTable, origin)
	}
	tt, ok := r.Table(target)
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown table %q", ErrInvalidTable, target)
	}
	return ot, tt, nil
}

func (r *Registry) register(a *Association) (*Association, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tableKey(a.origin.Name)
	if _, ok := r.assocs[key][a.name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateAssociation, a)
	}
	if r.assocs[key] == nil {
		r.assocs[key] = make(map[string]*Association)
	}
	r.assocs[key][a.name] = a
	r.order[key] = append(r.order[key], a.name)
	return a, nil
}

// resolveForeignKey finds the foreign key of owner referencing referenced
// and returns its columns with the columns they reference.
func resolveForeignKey(owner, referenced *Table, o options) ([]string, []string, error) {
	var fk ForeignKey
	candidates := owner.foreignKeysTo(referenced.Name)

	switch {
	case len(o.foreignKey) > 0:
		fk = ForeignKey{Columns: o.foreignKey, Table: referenced.Name}
		for _, c := range candidates {
			if sameColumns(c.Columns, o.foreignKey) {
				fk = c
				break
			}
		}
	case len(candidates) == 1:
		fk = candidates[0]
	case len(candidates) == 0:
		return nil, nil, fmt.Errorf("%w: no foreign key from %q to %q", ErrMissingForeignKey, owner.Name, referenced.Name)
	default:
		found := make([]string, len(candidates))
		for i, c := range candidates {
			found[i] = strings.Join(c.Columns, ",")
		}
		sort.Strings(found)
		return nil, nil, fmt.Errorf("%w: %q has foreign keys [%s] to %q",
			ErrAmbiguousForeignKey, owner.Name, strings.Join(found, "; "), referenced.Name)
	}

	refs := o.primaryKey
	if len(refs) == 0 {
		refs = fk.References
	}
	if len(refs) == 0 {
		refs = referenced.RowKey()
	}
	if len(refs) != len(fk.Columns) {
		return nil, nil, fmt.Errorf("%w: foreign key %v of %q does not match key %v of %q",
			ErrMissingForeignKey, fk.Columns, owner.Name, refs, referenced.Name)
	}
	return fk.Columns, refs, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
