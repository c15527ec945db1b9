// Copyright 2019 Tad Lebeck
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package table provides the in-memory tabular form of a collection.
//
// A Table is a list of named columns and rows of cell values aligned to those columns.
// A nil cell represents a missing value. Tables are built either row by row, or from
// records (ordered name/value lists such as documents) in which case the columns are
// the union of the record field names in first-seen order.
package table

import (
	"fmt"
)

// Field is a named value within a Record
type Field struct {
	Name  string
	Value interface{}
}

// Record is an ordered list of fields
type Record []Field

// Get returns the value of the named field
func (r Record) Get(name string) (interface{}, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Table is an in-memory table
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]interface{}
}

// New returns a table with the specified columns
func New(columns ...string) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// FromRecords builds a table from a list of records
func FromRecords(recs []Record) (*Table, error) {
	t, _ := New()
	for i, rec := range recs {
		if err := t.AppendRecord(rec); err != nil {
			return nil, fmt.Errorf("record %d: %s", i, err.Error())
		}
	}
	return t, nil
}

// AddColumn appends a column. Existing rows get a nil value in the new column.
func (t *Table) AddColumn(name string) error {
	if name == "" {
		return fmt.Errorf("empty column name")
	}
	if _, has := t.index[name]; has {
		return fmt.Errorf("duplicate column name '%s'", name)
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], nil)
	}
	return nil
}

// AppendRow appends a row of values in column order
func (t *Table) AppendRow(values ...interface{}) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("row has %d values but table has %d columns", len(values), len(t.columns))
	}
	row := make([]interface{}, len(values))
	copy(row, values)
	t.rows = append(t.rows, row)
	return nil
}

// AppendRecord appends a row from a record, adding columns for field names not yet seen.
// If a name repeats within the record the last value wins.
func (t *Table) AppendRecord(rec Record) error {
	for _, f := range rec {
		if f.Name == "" {
			return fmt.Errorf("empty field name")
		}
	}
	for _, f := range rec {
		if _, has := t.index[f.Name]; !has {
			t.AddColumn(f.Name)
		}
	}
	row := make([]interface{}, len(t.columns))
	for _, f := range rec {
		row[t.index[f.Name]] = f.Value
	}
	t.rows = append(t.rows, row)
	return nil
}

// Records returns a record per row with fields in column order. Nil cells are omitted.
func (t *Table) Records() []Record {
	recs := make([]Record, 0, len(t.rows))
	for i := range t.rows {
		recs = append(recs, t.Record(i))
	}
	return recs
}

// Record returns row i as a record. Nil cells are omitted.
func (t *Table) Record(i int) Record {
	rec := make(Record, 0, len(t.columns))
	for j, v := range t.rows[i] {
		if v != nil {
			rec = append(rec, Field{Name: t.columns[j], Value: v})
		}
	}
	return rec
}

// Columns returns the column names
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// NumColumns returns the number of columns
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// NumRows returns the number of rows
func (t *Table) NumRows() int {
	return len(t.rows)
}

// ColumnIndex returns the position of a column or -1
func (t *Table) ColumnIndex(name string) int {
	if i, has := t.index[name]; has {
		return i
	}
	return -1
}

// HasColumn returns true if the column exists
func (t *Table) HasColumn(name string) bool {
	_, has := t.index[name]
	return has
}

// Row returns a copy of row i
func (t *Table) Row(i int) []interface{} {
	row := make([]interface{}, len(t.rows[i]))
	copy(row, t.rows[i])
	return row
}

// Value returns the cell of row i in the named column
func (t *Table) Value(i int, name string) (interface{}, bool) {
	j, has := t.index[name]
	if !has || i < 0 || i >= len(t.rows) {
		return nil, false
	}
	return t.rows[i][j], true
}

// Column returns the values of the named column
func (t *Table) Column(name string) ([]interface{}, error) {
	j, has := t.index[name]
	if !has {
		return nil, fmt.Errorf("column '%s' not found", name)
	}
	vals := make([]interface{}, 0, len(t.rows))
	for _, row := range t.rows {
		vals = append(vals, row[j])
	}
	return vals, nil
}

// Strings renders each row as strings, with nil shown as an empty string
func (t *Table) Strings() [][]string {
	recs := make([][]string, 0, len(t.rows))
	for _, row := range t.rows {
		rec := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				rec[j] = fmt.Sprintf("%v", v)
			}
		}
		recs = append(recs, rec)
	}
	return recs
}
