package converter

import (
	"fmt"
	"hash/crc32"
	"strings"

	"github.com/go-openapi/inflect"
)

// Column written by the soft-delete layer; unique keys include it.
const DeletedColumn = "deleted"

const (
	indexPrefix  = "IDX"
	uniquePrefix = "UNIQ"
)

// ToUnderscore converts an entity, relation or field name to its snake_case
// table or column name.
func ToUnderscore(name string) string {
	return inflect.Underscore(name)
}

func toUnderscoreAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ToUnderscore(n)
	}
	return out
}

// GenerateIdentifierName derives an index name from the table and column
// names: the prefix followed by the hex crc32 of each part in order,
// upper-cased and cut to maxLen. Equal input always gives the same name.
func GenerateIdentifierName(prefix, table string, columns []string, maxLen int) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('_')
	for _, part := range append([]string{table}, columns...) {
		fmt.Fprintf(&b, "%x", crc32.ChecksumIEEE([]byte(part)))
	}
	return truncate(strings.ToUpper(b.String()), maxLen)
}

// GenerateIndexName builds the name of a declared (named) index
func GenerateIndexName(name string, unique bool, maxLen int) string {
	prefix := indexPrefix
	if unique {
		prefix = uniquePrefix
	}
	return truncate(prefix+"_"+strings.ToUpper(ToUnderscore(name)), maxLen)
}

func truncate(s string, maxLen int) string {
	if maxLen > 0 && len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}
