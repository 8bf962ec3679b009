package mapping

// Row is one datasource/symbol mapping.
// ID is assigned by the store on first insert; zero means not yet persisted.
type Row struct {
	ID                uint   `json:"id"`
	DataSourceName    string `json:"datasource_name"`
	SymbolName        string `json:"symbol_name"`
	RetrievePriceData bool   `json:"retrieve_price_data"`
}

// IsNew reports whether the row has not been persisted yet.
func (r Row) IsNew() bool {
	return r.ID == 0
}

type key struct {
	datasource string
	symbol     string
}

// Table is an ordered, in-memory copy of the datasource_symbol relation.
// A pair (datasource, symbol) appears at most once. Not safe for concurrent use.
type Table struct {
	rows  []Row
	index map[key]int
}

// NewTable builds a table from rows, dropping any repeated pair after the first.
func NewTable(rows ...Row) *Table {
	t := &Table{
		rows:  make([]Row, 0, len(rows)),
		index: make(map[key]int, len(rows)),
	}
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Contains reports whether a row exists for the datasource/symbol pair.
func (t *Table) Contains(datasource, symbol string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[key{datasource, symbol}]
	return ok
}

// Get returns the row for the pair.
func (t *Table) Get(datasource, symbol string) (Row, bool) {
	if t == nil {
		return Row{}, false
	}
	i, ok := t.index[key{datasource, symbol}]
	if !ok {
		return Row{}, false
	}
	return t.rows[i], true
}

// Append adds r unless its pair is already present. It reports whether r was added.
func (t *Table) Append(r Row) bool {
	k := key{r.DataSourceName, r.SymbolName}
	if _, exists := t.index[k]; exists {
		return false
	}
	t.index[k] = len(t.rows)
	t.rows = append(t.rows, r)
	return true
}

// Rows returns a copy of all rows in table order.
func (t *Table) Rows() []Row {
	if t == nil {
		return nil
	}
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Partition splits the rows into those lacking an ID and those carrying one.
func (t *Table) Partition() (created, existing []Row) {
	if t == nil {
		return nil, nil
	}
	for _, r := range t.rows {
		if r.IsNew() {
			created = append(created, r)
		} else {
			existing = append(existing, r)
		}
	}
	return created, existing
}

// Symbols returns the distinct symbol names of rows, in first-seen order.
func Symbols(rows []Row) []string {
	seen := make(map[string]bool, len(rows))
	var out []string
	for _, r := range rows {
		if !seen[r.SymbolName] {
			seen[r.SymbolName] = true
			out = append(out, r.SymbolName)
		}
	}
	return out
}
