package sql

// Drivers of the supported dialects register themselves with database/sql
// under the names returned by dialect.DriverName.
import (
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)
