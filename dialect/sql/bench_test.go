package sql

import (
	"testing"

	"github.com/syssam/lazysql/dialect"
)

func BenchmarkQuery_Simple(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Select("id", "name", "email").From("users").Compose()
	}
}

func BenchmarkQuery_WithJoins(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Select("u.id", "u.name", "p.title").
			From("users AS u").
			InnerJoin("posts AS p", "p.user_id = u.id").
			Where(Cond("u.active = 1")).
			OrderBy("u.created_at", OrderDesc).
			Limit(10).
			Compose()
	}
}

func BenchmarkQuery_Complex(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Select("*").
			From("users").
			Where(
				And(
					Cond("status = 'active'"),
					Or(
						Cond("age > 18"),
						Cond("role = 'admin'"),
					),
					Cond("department IN ('engineering', 'product', 'design')"),
					Cond("email IS NOT NULL"),
				),
			).
			OrderBys(Order{Column: "created_at", Direction: OrderAsc}, Order{Column: "name", Direction: OrderAsc}).
			Limit(100).
			Offset(50).
			Compose()
	}
}

func BenchmarkQuery_ChainedWhere(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		q := Select("*").From("users")
		for _, c := range []Cond{"a = 1", "b = 2", "c = 3", "d = 4", "e = 5"} {
			q = q.AndWhere(c)
		}
		_, _ = q.Compose()
	}
}

func BenchmarkRestriction_Compound(b *testing.B) {
	r := And(
		Cond("status = 'active'"),
		Or(
			Cond("age > 18"),
			And(Cond("role = 'admin'"), Cond("verified = 1")),
		),
		Group(Cond("email IS NOT NULL")),
	)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = composeRestriction(r, false)
	}
}

func BenchmarkQuoteValue(b *testing.B) {
	for _, d := range []string{dialect.SQLite, dialect.MySQL, dialect.Postgres} {
		b.Run(d, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = QuoteValue(d, "it's a \\test")
				_ = QuoteValue(d, 42)
				_ = QuoteIdentifier(d, "name")
			}
		})
	}
}
