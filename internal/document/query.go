package document

import (
	"fmt"
	"strings"

	"github.com/pthm/relq/pkg/compiler"
	"github.com/pthm/relq/schema"
)

// Queries is a query document.
type Queries struct {
	Queries []Query `json:"queries"`
}

// Find returns the query named name.
func (q *Queries) Find(name string) (Query, bool) {
	for _, query := range q.Queries {
		if query.Name == name {
			return query, true
		}
	}
	return Query{}, false
}

// Query is one named request. Instance queries resolve an association for
// a single origin row and ignore From, Alias, Include and Join.
type Query struct {
	Name     string      `json:"name"`
	From     string      `json:"from,omitempty"`
	Alias    string      `json:"alias,omitempty"`
	Include  []Join      `json:"include,omitempty"`
	Join     []Join      `json:"join,omitempty"`
	Where    []Condition `json:"where,omitempty"`
	Annotate []Aggregate `json:"annotate,omitempty"`
	Order    []Order     `json:"order,omitempty"`
	GroupBy  []string    `json:"groupBy,omitempty"`
	Limit    int         `json:"limit,omitempty"`
	Offset   int         `json:"offset,omitempty"`
	Instance *Instance   `json:"instance,omitempty"`
}

// Join attaches an association. From names an earlier join, by alias or
// association name; the root by default. Kind is "inner" or "left"; the
// association's declaration decides when empty.
type Join struct {
	Association string `json:"association"`
	From        string `json:"from,omitempty"`
	As          string `json:"as,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

// Instance selects the rows an association matches for one origin row.
type Instance struct {
	Origin      string         `json:"origin"`
	Association string         `json:"association"`
	Key         map[string]any `json:"key"`
}

// Compile builds the plan of a query against reg.
func (q Query) Compile(reg *schema.Registry) (*compiler.Plan, error) {
	if q.Instance != nil {
		return q.compileInstance(reg)
	}
	if q.From == "" {
		return nil, fmt.Errorf("query %q: from is required", q.Name)
	}

	p, err := compiler.NewPlanAs(reg, q.From, q.Alias)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", q.Name, err)
	}
	b := &planBuilder{reg: reg, plan: p, names: map[string]*compiler.TableRef{}}
	b.names[p.Root().Qualifier()] = p.Root()

	for _, j := range q.Include {
		if err := b.attach(j, compiler.Including()); err != nil {
			return nil, fmt.Errorf("query %q: %w", q.Name, err)
		}
	}
	for _, j := range q.Join {
		if err := b.attach(j, compiler.Joining()); err != nil {
			return nil, fmt.Errorf("query %q: %w", q.Name, err)
		}
	}
	if err := b.derive(q); err != nil {
		return nil, fmt.Errorf("query %q: %w", q.Name, err)
	}
	return p, nil
}

func (q Query) compileInstance(reg *schema.Registry) (*compiler.Plan, error) {
	in := q.Instance
	assoc, err := reg.Association(in.Origin, in.Association)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", q.Name, err)
	}
	key, err := Key(in.Key)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", q.Name, err)
	}
	p, err := compiler.ForInstance(reg, assoc, key)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", q.Name, err)
	}

	b := &planBuilder{reg: reg, plan: p, names: map[string]*compiler.TableRef{}}
	b.names[p.Root().Qualifier()] = p.Root()
	if err := b.derive(q); err != nil {
		return nil, fmt.Errorf("query %q: %w", q.Name, err)
	}
	return p, nil
}

// planBuilder applies a query to a plan. names maps join names and aliases
// to their occurrences.
type planBuilder struct {
	reg   *schema.Registry
	plan  *compiler.Plan
	names map[string]*compiler.TableRef
}

func (b *planBuilder) derive(q Query) error {
	for _, c := range q.Where {
		e, err := c.expr(b)
		if err != nil {
			return err
		}
		if err := b.plan.Filter(e); err != nil {
			return err
		}
	}
	for _, a := range q.Annotate {
		agg, err := b.association(a)
		if err != nil {
			return err
		}
		if err := b.plan.Annotate(agg); err != nil {
			return err
		}
	}
	for _, o := range q.Order {
		term, err := o.term(b)
		if err != nil {
			return err
		}
		if err := b.plan.Order(term); err != nil {
			return err
		}
	}
	for _, name := range q.GroupBy {
		col, err := b.column(name)
		if err != nil {
			return err
		}
		b.plan.GroupBy(col)
	}
	if q.Limit != 0 || q.Offset != 0 {
		b.plan.Limit(q.Limit, q.Offset)
	}
	return nil
}

func (b *planBuilder) attach(j Join, mode compiler.AttachOption) error {
	parent, err := b.ref(j.From)
	if err != nil {
		return err
	}
	assoc, err := b.lookup(parent, j.Association)
	if err != nil {
		return err
	}

	opts := []compiler.AttachOption{mode}
	switch strings.ToLower(j.Kind) {
	case "":
	case "inner":
		opts = append(opts, compiler.Required())
	case "left":
		opts = append(opts, compiler.OptionalJoin())
	default:
		return fmt.Errorf("unknown join kind %q", j.Kind)
	}
	if j.As != "" {
		opts = append(opts, compiler.As(j.As))
	}

	ref, err := b.plan.AttachFrom(parent, assoc, opts...)
	if err != nil {
		return err
	}
	name := j.As
	if name == "" {
		name = j.Association
	}
	if _, taken := b.names[name]; taken {
		return fmt.Errorf("join name %q is already used", name)
	}
	b.names[name] = ref
	return nil
}

func (b *planBuilder) ref(name string) (*compiler.TableRef, error) {
	if name == "" {
		return b.plan.Root(), nil
	}
	ref, ok := b.names[name]
	if !ok {
		return nil, fmt.Errorf("unknown join %q", name)
	}
	return ref, nil
}

func (b *planBuilder) lookup(parent *compiler.TableRef, name string) (*schema.Association, error) {
	return b.reg.Association(parent.Name, name)
}

// column resolves "join.column" against a named join and bare names
// across every table of the plan.
func (b *planBuilder) column(name string) (compiler.Col, error) {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		ref, err := b.ref(name[:i])
		if err != nil {
			return compiler.Col{}, err
		}
		return ref.Col(name[i+1:]), nil
	}
	return b.plan.Column(name)
}

func (b *planBuilder) association(a Aggregate) (*compiler.AssociationAggregate, error) {
	parent, err := b.ref(a.From)
	if err != nil {
		return nil, err
	}
	assoc, err := b.lookup(parent, a.Association)
	if err != nil {
		return nil, err
	}

	fn := strings.ToLower(a.Fn)
	if fn != "" && fn != "count" && a.Column == "" {
		return nil, fmt.Errorf("aggregate %s of %s needs a column", a.Fn, a.Association)
	}

	var agg *compiler.AssociationAggregate
	switch fn {
	case "", "count":
		agg = compiler.Count(assoc)
	case "sum":
		agg = compiler.Sum(assoc, a.Column)
	case "avg":
		agg = compiler.Avg(assoc, a.Column)
	case "min":
		agg = compiler.Min(assoc, a.Column)
	case "max":
		agg = compiler.Max(assoc, a.Column)
	default:
		return nil, fmt.Errorf("unknown aggregate %q", a.Fn)
	}
	if a.From != "" {
		agg = agg.From(parent)
	}
	if a.As != "" {
		agg = agg.As(a.As)
	}
	return agg, nil
}

func (b *planBuilder) aggregate(a Aggregate) (compiler.Expr, error) {
	return b.association(a)
}
