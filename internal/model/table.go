package model

// Field is one named cell of a row snapshot.
type Field struct {
	Name  string `json:"name" yaml:"name"`
	Value Value  `json:"value" yaml:"value"`
}

// Snapshot is an ordered column-name to value mapping of a complete row.
type Snapshot []Field

// Get returns the value stored under name, or null.
func (s Snapshot) Get(name string) Value {
	for _, f := range s {
		if f.Name == name {
			return f.Value
		}
	}
	return Null
}

// Table is a header plus rows of typed cells. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]Value
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Col returns the index of the column named exactly name, or -1.
func (t *Table) Col(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at row i, column j. Out-of-range columns read as null.
func (t *Table) Cell(i, j int) Value {
	if j < 0 || j >= len(t.Rows[i]) {
		return Null
	}
	return t.Rows[i][j]
}

// Snapshot copies row i into an ordered field list.
func (t *Table) Snapshot(i int) Snapshot {
	s := make(Snapshot, len(t.Header))
	for j, h := range t.Header {
		s[j] = Field{Name: h, Value: t.Cell(i, j)}
	}
	return s
}

// Clone deep-copies the table so derived generations never alias the input.
func (t *Table) Clone() *Table {
	out := &Table{
		Header: append([]string(nil), t.Header...),
		Rows:   make([][]Value, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]Value(nil), r...)
	}
	return out
}
