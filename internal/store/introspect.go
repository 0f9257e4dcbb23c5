package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/relpath/internal/ir"
	"github.com/roach88/relpath/internal/schema"
)

// Introspection is the result of reading a database schema.
type Introspection struct {
	Models  []schema.ModelDef `json:"models"`
	Skipped []SkippedColumn   `json:"skipped,omitempty"`
}

// SkippedColumn is a column that has no field kind.
type SkippedColumn struct {
	Table  string `json:"table"`
	Column string `json:"column"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type column struct {
	name       string
	declType   string
	notNull    bool
	defaultSQL sql.NullString
	pk         int
}

type foreignKey struct {
	id     int
	table  string
	from   string
	to     string
	column int
}

// Introspect reads every user table and returns one model per table.
func (s *Store) Introspect(ctx context.Context) (*Introspection, error) {
	tables, err := s.tables(ctx)
	if err != nil {
		return nil, err
	}

	result := &Introspection{}
	modelIndex := make(map[string]int, len(tables))
	for _, table := range tables {
		cols, err := s.columns(ctx, table)
		if err != nil {
			return nil, err
		}
		def, skipped := modelFromTable(table, cols)
		modelIndex[table] = len(result.Models)
		result.Models = append(result.Models, def)
		result.Skipped = append(result.Skipped, skipped...)
	}

	// Relationships need every model name first.
	for _, table := range tables {
		fks, err := s.foreignKeys(ctx, table)
		if err != nil {
			return nil, err
		}
		for _, fk := range fks {
			targetIdx, ok := modelIndex[fk.table]
			if !ok {
				continue
			}
			source := &result.Models[modelIndex[table]]
			target := &result.Models[targetIdx]

			forward := uniqueMemberName(source, relationshipName(fk.from, fk.table))
			source.Relationships = append(source.Relationships, schema.RelationshipDef{
				Name:        forward,
				Target:      target.Name,
				Cardinality: string(schema.ManyToOne),
			})

			backward := table
			if hasMember(target, backward) {
				backward = uniqueMemberName(target, table+"_"+forward)
			}
			target.Relationships = append(target.Relationships, schema.RelationshipDef{
				Name:        backward,
				Target:      source.Name,
				Cardinality: string(schema.OneToMany),
			})
		}
	}

	return result, nil
}

func (s *Store) tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (s *Store) columns(ctx context.Context, table string) ([]column, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []column
	for rows.Next() {
		var (
			cid int
			col column
		)
		if err := rows.Scan(&cid, &col.name, &col.declType, &col.notNull, &col.defaultSQL, &col.pk); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

func (s *Store) foreignKeys(ctx context.Context, table string) ([]foreignKey, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("foreign_key_list %s: %w", table, err)
	}
	defer rows.Close()

	var (
		fks   []foreignKey
		count = make(map[int]int)
	)
	for rows.Next() {
		var (
			fk                          foreignKey
			to                          sql.NullString
			onUpdate, onDelete, matchOn string
		)
		if err := rows.Scan(&fk.id, &fk.column, &fk.table, &fk.from, &to, &onUpdate, &onDelete, &matchOn); err != nil {
			return nil, fmt.Errorf("scan foreign key of %s: %w", table, err)
		}
		fk.to = to.String
		count[fk.id]++
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Composite foreign keys have no single field to follow.
	fks = slices.DeleteFunc(fks, func(fk foreignKey) bool { return count[fk.id] > 1 })
	slices.SortFunc(fks, func(a, b foreignKey) int { return strings.Compare(a.from, b.from) })
	return fks, nil
}

func modelFromTable(table string, cols []column) (schema.ModelDef, []SkippedColumn) {
	def := schema.ModelDef{
		Name:    modelName(table),
		Storage: table,
	}

	pkCount := 0
	for _, col := range cols {
		if col.pk > 0 {
			pkCount++
		}
	}

	var skipped []SkippedColumn
	for _, col := range cols {
		kind, length, reason := kindForColumn(col.declType)
		if reason != "" {
			skipped = append(skipped, SkippedColumn{
				Table:  table,
				Column: col.name,
				Type:   col.declType,
				Reason: reason,
			})
			continue
		}
		if kind == schema.KindInt && col.pk > 0 && pkCount == 1 {
			kind = schema.KindSerial
		}

		fd := schema.FieldDef{
			Name:     col.name,
			Kind:     string(kind),
			Key:      col.pk > 0,
			Required: col.notNull && col.pk == 0,
			Length:   length,
		}
		if col.defaultSQL.Valid {
			fd.Default = defaultValue(kind, col.defaultSQL.String)
		}
		def.Fields = append(def.Fields, fd)
	}

	return def, skipped
}

var lengthPattern = regexp.MustCompile(`\(\s*(\d+)\s*\)`)

// kindForColumn maps a declared SQLite column type to a field kind,
// following SQLite's type affinity rules where they apply. A non-empty
// reason means the column has no kind.
func kindForColumn(declType string) (kind schema.Kind, length int, reason string) {
	t := strings.ToUpper(strings.TrimSpace(declType))

	switch {
	case t == "":
		return "", 0, "column has no declared type"
	case strings.Contains(t, "BOOL"):
		return schema.KindBool, 0, ""
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return schema.KindTime, 0, ""
	case strings.Contains(t, "INT"):
		return schema.KindInt, 0, ""
	case strings.Contains(t, "CHAR"):
		if m := lengthPattern.FindStringSubmatch(t); m != nil {
			length, _ = strconv.Atoi(m[1])
		}
		return schema.KindString, length, ""
	case strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return schema.KindText, 0, ""
	case strings.Contains(t, "BLOB"):
		return "", 0, "binary columns have no field kind"
	default:
		// REAL, FLOAT, DOUBLE, NUMERIC, DECIMAL
		return "", 0, "floating point columns are not supported"
	}
}

// defaultValue converts a column default expression into a literal value.
// Expressions that are not plain literals (CURRENT_TIMESTAMP, ...) are
// dropped.
func defaultValue(kind schema.Kind, expr string) ir.Value {
	expr = strings.TrimSpace(expr)
	upper := strings.ToUpper(expr)

	switch {
	case upper == "NULL":
		return ir.Null{}
	case len(expr) >= 2 && expr[0] == '\'' && expr[len(expr)-1] == '\'':
		if !kind.IsTextual() {
			return nil
		}
		return ir.String(strings.ReplaceAll(expr[1:len(expr)-1], "''", "'"))
	}

	switch kind {
	case schema.KindBool:
		switch upper {
		case "1", "TRUE":
			return ir.Bool(true)
		case "0", "FALSE":
			return ir.Bool(false)
		}
	case schema.KindInt, schema.KindSerial:
		if n, err := strconv.ParseInt(expr, 10, 64); err == nil {
			return ir.Int(n)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
