package sqlgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pthm/relq/internal/sqlgen/sqldsl"
	"github.com/pthm/relq/schema"
)

// AttachOption configures an attachment.
type AttachOption func(*attachConfig)

type attachConfig struct {
	selected bool
	kind     sqldsl.JoinType
	kindSet  bool
	alias    string
}

// Including selects the joined table: "<t>".* is added to the select list.
func Including() AttachOption {
	return func(c *attachConfig) {
		c.selected = true
	}
}

// Joining joins the table without selecting it. This is the default.
func Joining() AttachOption {
	return func(c *attachConfig) {
		c.selected = false
	}
}

// Required joins with an inner join: parent rows without a match are dropped.
func Required() AttachOption {
	return func(c *attachConfig) {
		c.kind = sqldsl.InnerJoin
		c.kindSet = true
	}
}

// OptionalJoin joins with a left join: parent rows without a match are kept.
func OptionalJoin() AttachOption {
	return func(c *attachConfig) {
		c.kind = sqldsl.LeftJoin
		c.kindSet = true
	}
}

// As sets an explicit alias for the joined table. Explicit aliases are used
// verbatim and never renumbered.
func As(alias string) AttachOption {
	return func(c *attachConfig) {
		c.alias = alias
	}
}

// Attach joins assoc from the root table and returns the occurrence of its
// target. Filters and orders declared on the association are bound to the
// joined table.
func (p *Plan) Attach(assoc *schema.Association, opts ...AttachOption) (*sqldsl.TableRef, error) {
	return p.AttachFrom(p.root, assoc, opts...)
}

// AttachNamed joins the association declared on the root table under name.
func (p *Plan) AttachNamed(name string, opts ...AttachOption) (*sqldsl.TableRef, error) {
	if p.registry == nil {
		return nil, fmt.Errorf("%w: %s.%s", schema.ErrUnknownAssociation, p.table.Name, name)
	}
	assoc, err := p.registry.Association(p.table.Name, name)
	if err != nil {
		return nil, err
	}
	return p.Attach(assoc, opts...)
}

// AttachFrom joins assoc from parent, an occurrence returned by an earlier
// attachment or Root.
func (p *Plan) AttachFrom(parent *sqldsl.TableRef, assoc *schema.Association, opts ...AttachOption) (*sqldsl.TableRef, error) {
	var cfg attachConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.kindSet {
		cfg.kind = defaultKind(assoc)
	}
	return p.attach(parent, assoc, cfg)
}

func defaultKind(assoc *schema.Association) sqldsl.JoinType {
	if assoc != nil && assoc.IsOptional() {
		return sqldsl.LeftJoin
	}
	return sqldsl.InnerJoin
}

// attachAggregate returns the Left join used to aggregate assoc from
// parent, creating it on first use.
func (p *Plan) attachAggregate(parent *sqldsl.TableRef, assoc *schema.Association) (*sqldsl.TableRef, error) {
	if parent == nil {
		parent = p.root
	}
	key := reuseKey{parent: parent, assoc: assoc}
	if ref, ok := p.reused[key]; ok {
		return ref, nil
	}
	ref, err := p.attach(parent, assoc, attachConfig{kind: sqldsl.LeftJoin, kindSet: true})
	if err != nil {
		return nil, err
	}
	p.reused[key] = ref
	return ref, nil
}

func (p *Plan) attach(parent *sqldsl.TableRef, assoc *schema.Association, cfg attachConfig) (*sqldsl.TableRef, error) {
	if assoc == nil {
		return nil, fmt.Errorf("%w: nil association", schema.ErrUnknownAssociation)
	}
	parentTable, ok := p.tables[parent]
	if !ok {
		return nil, fmt.Errorf("%w: %s is attached from %s, which is not part of the plan",
			schema.ErrUnknownAssociation, assoc, parent)
	}
	if !assoc.Origin().Is(parentTable.Name) {
		return nil, fmt.Errorf("%w: %s is declared on %q, not %q",
			schema.ErrUnknownAssociation, assoc, assoc.Origin().Name, parentTable.Name)
	}
	if cfg.alias != "" {
		if err := p.checkExplicitAlias(cfg.alias); err != nil {
			return nil, err
		}
	}

	hops := assoc.Hops()
	last := len(hops) - 1
	prev := parent
	for i, hop := range hops {
		var ref *sqldsl.TableRef
		if i == last && cfg.alias != "" {
			ref = sqldsl.TableAs(hop.Target().Name, cfg.alias)
		} else {
			ref = sqldsl.Table(hop.Target().Name)
		}
		p.register(ref, hop.Target())

		on := []sqldsl.Expr{hopCondition(hop, prev, ref)}
		on = append(on, bindAll(hop.Filters(), ref)...)
		order := bindOrder(hop.Ordering(), ref)
		if i == last && assoc.IsThrough() {
			on = append(on, bindAll(assoc.Filters(), ref)...)
			order = append(order, bindOrder(assoc.Ordering(), ref)...)
		}

		p.joins = append(p.joins, &JoinNode{
			Kind:     cfg.kind,
			Ref:      ref,
			Table:    hop.Target(),
			On:       sqldsl.And(on...),
			Scope:    Scope{Ref: ref, Order: order},
			Selected: cfg.selected && i == last,
			Pivot:    i != last,
			Parent:   prev,
		})
		prev = ref
	}
	return prev, nil
}

// hopCondition renders the join condition of a direct association from
// origin to target: one equality per key pair with the joined column on the
// left, then the custom condition.
func hopCondition(hop *schema.Association, origin, target *sqldsl.TableRef) sqldsl.Expr {
	parts := make([]sqldsl.Expr, 0, len(hop.Mapping())+1)
	for _, kp := range hop.Mapping() {
		parts = append(parts, sqldsl.Eq(target.Col(kp.Target), origin.Col(kp.Origin)))
	}
	if cond := hop.Condition(); cond != nil {
		parts = append(parts, cond(origin, target))
	}
	return sqldsl.And(parts...)
}

func bindAll(exprs []sqldsl.Expr, ref *sqldsl.TableRef) []sqldsl.Expr {
	out := make([]sqldsl.Expr, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, sqldsl.BindColumns(e, ref))
	}
	return out
}

func bindOrder(terms []sqldsl.OrderTerm, ref *sqldsl.TableRef) []sqldsl.OrderTerm {
	out := make([]sqldsl.OrderTerm, 0, len(terms))
	for _, t := range terms {
		out = append(out, sqldsl.OrderTerm{Expr: sqldsl.BindColumns(t.Expr, ref), Dir: t.Dir})
	}
	return out
}

// checkExplicitAlias fails if alias is already used as a qualifier.
func (p *Plan) checkExplicitAlias(alias string) error {
	for _, r := range p.refs() {
		if strings.EqualFold(r.Qualifier(), alias) {
			return fmt.Errorf("%w: %q is already used in the plan", schema.ErrAliasCollision, alias)
		}
	}
	return nil
}

// register adds a new occurrence to the plan and assigns aliases.
//
// The first unaliased occurrence of a table keeps the bare table name until
// a second one arrives; it is then renamed "<t>1" and later occurrences get
// "<t>2", "<t>3"... in attachment order. Columns recorded against the first
// occurrence follow the rename because they hold its pointer. Names already
// taken as qualifiers are skipped.
func (p *Plan) register(ref *sqldsl.TableRef, t *schema.Table) {
	if !ref.Explicit() {
		var bare *sqldsl.TableRef
		clash := false
		for _, r := range p.refs() {
			if !r.Explicit() && r.SameTable(ref.Name) && r.Alias == "" {
				bare = r
			}
			if strings.EqualFold(r.Qualifier(), ref.Name) {
				clash = true
			}
		}
		if bare != nil {
			bare.Alias = p.nextAlias(bare.Name)
		}
		if clash || bare != nil || p.aliasSeq[strings.ToLower(ref.Name)] > 0 {
			ref.Alias = p.nextAlias(ref.Name)
		}
	}
	p.tables[ref] = t
}

func (p *Plan) nextAlias(table string) string {
	key := strings.ToLower(table)
	for n := p.aliasSeq[key] + 1; ; n++ {
		candidate := table + strconv.Itoa(n)
		if !p.qualifierTaken(candidate) {
			p.aliasSeq[key] = n
			return candidate
		}
	}
}

func (p *Plan) qualifierTaken(name string) bool {
	for _, r := range p.refs() {
		if strings.EqualFold(r.Qualifier(), name) {
			return true
		}
	}
	return false
}
