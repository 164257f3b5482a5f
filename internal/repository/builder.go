package repository

import "github.com/Masterminds/squirrel"

// psql builds Postgres-flavoured statements with $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
