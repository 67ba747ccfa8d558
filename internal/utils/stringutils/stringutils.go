package stringutils

import "fmt"

// INClause builds positional placeholders and the matching argument slice for
// a SQL IN (...) clause, starting at $offset+1.
func INClause[T any](list []T, offset int) (placeholders []string, args []any) {
	placeholders = make([]string, len(list))
	args = make([]any, len(list))
	for i, item := range list {
		placeholders[i] = fmt.Sprintf("$%d", offset+i+1)
		args[i] = item
	}

	return placeholders, args
}
