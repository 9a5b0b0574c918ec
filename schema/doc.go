// Package schema models tables and the associations between them.
//
// A Registry is declared once at startup. Tables carry their primary key and
// foreign keys; associations are declared through the registry's builder
// methods, which infer the key mapping from foreign key metadata:
//
//	reg, _ := schema.NewRegistry(
//		schema.Table{Name: "authors", PrimaryKey: []string{"id"}},
//		schema.Table{Name: "books", PrimaryKey: []string{"id"},
//			ForeignKeys: []schema.ForeignKey{{Columns: []string{"authorId"}, Table: "authors"}}},
//	)
//	books, _ := reg.HasMany("authors", "books")   // authors.id -> books.authorId
//	author, _ := reg.BelongsTo("books", "authors") // books.authorId -> authors.id
//
// # Association Kinds
//
// BelongsTo maps the origin's foreign key columns to the target's primary
// key. HasOne and HasMany are the inverse: the origin's primary key maps to
// the target's foreign key. AssociationTo declares a to-one association
// joined by an arbitrary condition.
//
// Through composes two associations whose tables meet at a pivot. Through
// associations of through associations flatten into one ordered hop list,
// so a chain of any length is planned as one join per hop.
//
// # Immutability
//
// Associations never change after declaration. Filter, Order and Named
// derive new associations, which plans treat as distinct from their source:
// two differently filtered versions of one association get two joins.
//
// # Errors
//
// Declaration and planning failures wrap the sentinel errors of this package
// (ErrInvalidThroughChain, ErrAmbiguousColumn, ErrAliasCollision,
// ErrUnknownAssociation and friends). Use errors.Is or the Is*Err helpers.
package schema
