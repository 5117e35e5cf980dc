package export

import "fmt"

// Column describes one table column. Weight sizes the column relative to
// the others in paged formats; zero means 1.
type Column struct {
	Header string
	Weight float64
}

// Dataset is a titled table of string cells.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    [][]string
}

func (d Dataset) validate() error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset requires at least one column")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Columns))
		}
	}
	return nil
}

func (d Dataset) headers() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Header
	}
	return out
}
