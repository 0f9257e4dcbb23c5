package store

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/relpath/internal/schema"
)

// modelName derives a model name from a table name:
// "books" → "Book", "book_reviews" → "BookReview".
func modelName(table string) string {
	parts := strings.FieldsFunc(table, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	if len(parts) == 0 {
		return table
	}
	parts[len(parts)-1] = singular(parts[len(parts)-1])

	// A Caser is stateful; never share one between goroutines.
	caser := cases.Title(language.English)
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(caser.String(part))
	}
	return b.String()
}

// singular strips the common English plural endings. Irregular plurals
// are left alone; the storage name keeps the original table name either
// way.
func singular(word string) string {
	lower := strings.ToLower(word)
	switch {
	case strings.HasSuffix(lower, "ies") && len(word) > 3:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(lower, "sses"), strings.HasSuffix(lower, "xes"), strings.HasSuffix(lower, "ches"), strings.HasSuffix(lower, "shes"):
		return word[:len(word)-2]
	case strings.HasSuffix(lower, "ss"), strings.HasSuffix(lower, "us"):
		return word
	case strings.HasSuffix(lower, "s") && len(word) > 1:
		return word[:len(word)-1]
	default:
		return word
	}
}

// relationshipName names the relationship a foreign key column implies:
// "author_id" → "author". Columns without an _id suffix are named after
// the referenced table instead.
func relationshipName(column, targetTable string) string {
	lower := strings.ToLower(column)
	if strings.HasSuffix(lower, "_id") && len(column) > 3 {
		return column[:len(column)-3]
	}
	return strings.ToLower(singular(targetTable))
}

func hasMember(def *schema.ModelDef, name string) bool {
	name = schema.NormalizeName(name)
	for _, fd := range def.Fields {
		if schema.NormalizeName(fd.Name) == name {
			return true
		}
	}
	for _, rd := range def.Relationships {
		if schema.NormalizeName(rd.Name) == name {
			return true
		}
	}
	return false
}

// uniqueMemberName returns name, or name with a numeric suffix when a
// field or relationship of def already uses it.
func uniqueMemberName(def *schema.ModelDef, name string) string {
	if !hasMember(def, name) {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if !hasMember(def, candidate) {
			return candidate
		}
	}
}
