package store

// dialect содержит SQL-выражения, отличающиеся между драйверами.
// Выражения константные: пользовательские значения передаются только параметрами.
type dialect struct {
	name   string
	day    func(col string) string
	hour   func(col string) string
	schema []string
}

var sqliteDialect = dialect{
	name: "sqlite3",
	day: func(col string) string {
		return "DATE(" + col + ")"
	},
	hour: func(col string) string {
		return "strftime('%H', " + col + ")"
	},
	schema: sqliteSchema,
}

var mysqlDialect = dialect{
	name: "mysql",
	day: func(col string) string {
		return "DATE_FORMAT(" + col + ", '%Y-%m-%d')"
	},
	hour: func(col string) string {
		return "DATE_FORMAT(" + col + ", '%H')"
	},
	schema: mysqlSchema,
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "sqlite3":
		return sqliteDialect, nil
	case "mysql":
		return mysqlDialect, nil
	}
	return dialect{}, ErrUnsupportedDriver
}
