package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// The constructors pin every builder to the PostgreSQL flavor so generated
// placeholders come out as $1, $2, ... rather than the library default ?.

// NewSelectBuilder creates a postgres-flavored select builder.
func NewSelectBuilder() *sqlbuilder.SelectBuilder {
	return sqlbuilder.PostgreSQL.NewSelectBuilder()
}

// NewUpdateBuilder creates a postgres-flavored update builder.
func NewUpdateBuilder() *sqlbuilder.UpdateBuilder {
	return sqlbuilder.PostgreSQL.NewUpdateBuilder()
}

// NewDeleteBuilder creates a postgres-flavored delete builder.
func NewDeleteBuilder() *sqlbuilder.DeleteBuilder {
	return sqlbuilder.PostgreSQL.NewDeleteBuilder()
}

// InsertBuilder extends the library insert builder with postgres upserts.
type InsertBuilder struct {
	*sqlbuilder.InsertBuilder
}

// NewInsertBuilder creates a postgres-flavored insert builder.
func NewInsertBuilder() *InsertBuilder {
	return &InsertBuilder{sqlbuilder.PostgreSQL.NewInsertBuilder()}
}

// OnConflict appends ON CONFLICT (columns...) DO UPDATE to the insert and
// returns the nested update builder the caller sets assignments on.
func (b *InsertBuilder) OnConflict(columns ...string) *sqlbuilder.UpdateBuilder {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	b.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE %s", strings.Join(columns, ", "), b.Var(ub)))

	return ub
}

// Excluded references the incoming row's value for column inside an
// ON CONFLICT DO UPDATE assignment.
func Excluded(column string) any {
	return sqlbuilder.Raw(fmt.Sprintf("EXCLUDED.%s", column))
}
