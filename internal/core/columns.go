package core

import "sort"

// ColumnMap maps fields to their position in a data row.
// Fields whose header is absent from the file are absent from the map.
type ColumnMap map[Field]int

// MapColumns builds a ColumnMap from the header row. Header text must match
// a schema key exactly (case-sensitive); anything else is ignored. If a header
// repeats, the first occurrence wins.
func MapColumns(header RawRow, schema Schema) ColumnMap {
	cols := make(ColumnMap, len(schema))
	for i, h := range header {
		field, ok := schema[h]
		if !ok {
			continue
		}
		if _, seen := cols[field]; seen {
			continue
		}
		cols[field] = i
	}
	return cols
}

// Width returns the minimum row length able to index every mapped column.
func (c ColumnMap) Width() int {
	width := 0
	for _, idx := range c {
		if idx+1 > width {
			width = idx + 1
		}
	}
	return width
}

// Has reports whether field was found in the header.
func (c ColumnMap) Has(field Field) bool {
	_, ok := c[field]
	return ok
}

// Value returns the raw value of field in row, or "" if the field is unmapped.
// Callers must check the row against Width first.
func (c ColumnMap) Value(row RawRow, field Field) string {
	idx, ok := c[field]
	if !ok {
		return ""
	}
	return row[idx]
}

// Missing returns the sorted schema headers absent from the map.
func (c ColumnMap) Missing(schema Schema) []string {
	var missing []string
	for header, field := range schema {
		if !c.Has(field) {
			missing = append(missing, header)
		}
	}
	sort.Strings(missing)
	return missing
}
