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


package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/olekukonko/tablewriter"
	"github.com/stretchr/testify/assert"
)

type TestEmitter struct {
	jsonData     interface{}
	yamlData     interface{}
	tableData    [][]string
	tableHeaders []string
}

func (e *TestEmitter) EmitJSON(data interface{}) error {
	e.jsonData = data
	return nil
}

func (e *TestEmitter) EmitYAML(data interface{}) error {
	e.yamlData = data
	return nil
}

func (e *TestEmitter) EmitTable(headers []string, data [][]string, customizeTable func(t *tablewriter.Table)) error {
	e.tableData = data
	e.tableHeaders = headers
	return nil
}

func TestStdoutEmitter(t *testing.T) {
	assert := assert.New(t)

	defer func() {
		outputWriter = os.Stdout
	}()
	var b bytes.Buffer
	outputWriter = &b

	type tE struct {
		Field1   int `json:"fieldOne"`
		Field2   string
		IsACamel bool
	}
	o := tE{2, "2humps", true}
	e := &StdoutEmitter{}

	t.Log("case: json")
	j := "{\n" +
		`    "fieldOne": 2,` + "\n" +
		`    "Field2": "2humps",` + "\n" +
		`    "IsACamel": true` + "\n" +
		"}\n"
	err := e.EmitJSON(o)
	assert.NoError(err)
	assert.Equal(j, b.String())

	t.Log("case: raw json documents are re-indented")
	b.Reset()
	err = e.EmitJSON([]json.RawMessage{json.RawMessage(`{"a":1}`)})
	assert.NoError(err)
	assert.Equal("[\n    {\n        \"a\": 1\n    }\n]\n", b.String())

	t.Log("case: json failure")
	b.Reset()
	err = e.EmitJSON(&struct {
		N json.Number
	}{json.Number(`invalid`)})
	assert.Error(err)
	assert.Zero(b.Len())

	t.Log("case: yaml")
	b.Reset()
	y := "field1: 2\n" +
		"field2: 2humps\n" +
		"isacamel: true\n"
	err = e.EmitYAML(o)
	assert.NoError(err)
	assert.Equal(y, b.String())

	t.Log("case: multi-doc yaml")
	b.Reset()
	err = e.EmitYAML(o)
	assert.NoError(err)
	assert.Equal("---\n"+y, b.String())
	e.Reset()
	b.Reset()
	err = e.EmitYAML(o)
	assert.NoError(err)
	assert.Equal(y, b.String())

	t.Log("case: yaml error")
	e.Reset()
	b.Reset()
	err = e.EmitYAML(&failingMarshaler{})
	assert.Error(err)
	assert.Equal("YAML MARSHAL FAILED", err.Error())
	assert.Zero(b.Len())

	t.Log("case: yaml panic caught")
	err = e.EmitYAML(&struct {
		A int
		B map[string]int `yaml:",inline"`
	}{1, map[string]int{"a": 2}})
	assert.Error(err)
	assert.Regexp("conflicts with struct field", err.Error())

	t.Log("case: table")
	exp := "+--------+--------+----------+\n" +
		"| Field1 | Field2 | IsACamel |\n" +
		"+--------+--------+----------+\n" +
		"|      2 | 2humps | true     |\n" +
		"+--------+--------+----------+\n"
	b.Reset()
	err = e.EmitTable([]string{"Field1", "Field2", "IsACamel"},
		[][]string{{fmt.Sprintf("%d", o.Field1), o.Field2, fmt.Sprintf("%v", o.IsACamel)}}, nil)
	assert.NoError(err)
	assert.Equal(exp, b.String())

	t.Log("case: table, customized")
	exp = "+--------+--------+----------+\n" +
		"| Field1 | Field2 | IsACamel |\n" +
		"|      2 | 2humps | true     |\n" +
		"+--------+--------+----------+\n"
	b.Reset()
	err = e.EmitTable([]string{"Field1", "Field2", "IsACamel"},
		[][]string{{fmt.Sprintf("%d", o.Field1), o.Field2, fmt.Sprintf("%v", o.IsACamel)}},
		func(tb *tablewriter.Table) { tb.SetHeaderLine(false) })
	assert.NoError(err)
	assert.Equal(exp, b.String())
}

type failingMarshaler struct{}

func (ft *failingMarshaler) MarshalYAML() (interface{}, error) {
	return nil, fmt.Errorf("YAML MARSHAL FAILED")
}
