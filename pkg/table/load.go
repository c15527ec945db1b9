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


package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v2"
)

// maxLineSize bounds a single JSON line
const maxLineSize = 16 * 1024 * 1024

// ReadCSV loads a table from CSV data. The first line names the columns.
// Cell types are inferred: empty and NaN cells are nil, then integer, float and boolean forms are tried before string.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("missing CSV header")
	} else if err != nil {
		return nil, errors.Wrap(err, "CSV header")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	t, err := New(header...)
	if err != nil {
		return nil, errors.Wrap(err, "CSV header")
	}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "CSV")
		}
		row := make([]interface{}, len(rec))
		for i, s := range rec {
			row[i] = inferValue(s)
		}
		t.AppendRow(row...)
	}
	return t, nil
}

func inferValue(s string) interface{} {
	if s == "" || strings.EqualFold(s, "nan") {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if strings.EqualFold(s, "true") {
		return true
	} else if strings.EqualFold(s, "false") {
		return false
	}
	return s
}

// ReadJSONLines loads a table from MongoDB Extended JSON documents, one per line.
// Blank lines are skipped.
func ReadJSONLines(r io.Reader) (*Table, error) {
	t, _ := New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var doc bson.D
		if err := bson.UnmarshalExtJSON(line, false, &doc); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNum)
		}
		if err := t.AppendRecord(RecordFromD(doc)); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNum)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "JSON")
	}
	return t, nil
}

// ReadYAML loads a table from a YAML sequence of mappings
func ReadYAML(r io.Reader) (*Table, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "YAML")
	}
	var items []yaml.MapSlice
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrap(err, "YAML")
	}
	t, _ := New()
	for i, ms := range items {
		rec := make(Record, 0, len(ms))
		for _, mi := range ms {
			rec = append(rec, Field{Name: fmt.Sprint(mi.Key), Value: yamlValue(mi.Value)})
		}
		if err := t.AppendRecord(rec); err != nil {
			return nil, errors.Wrapf(err, "YAML item %d", i)
		}
	}
	return t, nil
}

// yamlValue converts nested mappings to ordered documents so they can be stored
func yamlValue(v interface{}) interface{} {
	switch x := v.(type) {
	case yaml.MapSlice:
		d := make(bson.D, 0, len(x))
		for _, mi := range x {
			d = append(d, bson.E{Key: fmt.Sprint(mi.Key), Value: yamlValue(mi.Value)})
		}
		return d
	case []interface{}:
		a := make(bson.A, 0, len(x))
		for _, e := range x {
			a = append(a, yamlValue(e))
		}
		return a
	}
	return v
}

// RecordFromD converts a document to a record
func RecordFromD(d bson.D) Record {
	rec := make(Record, 0, len(d))
	for _, e := range d {
		rec = append(rec, Field{Name: e.Key, Value: e.Value})
	}
	return rec
}

// D converts a record to a document
func (r Record) D() bson.D {
	d := make(bson.D, 0, len(r))
	for _, f := range r {
		d = append(d, bson.E{Key: f.Name, Value: f.Value})
	}
	return d
}
