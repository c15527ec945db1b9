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
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/Nuvoloso/mongotable/pkg/mongotable"
	"github.com/Nuvoloso/mongotable/pkg/table"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v2"
)

func TestReadCmd(t *testing.T) {
	assert := assert.New(t)
	f, restore := newCmdFixture(t)
	defer restore()

	people, _ := table.FromRecords([]table.Record{
		{{Name: "name", Value: "ann"}, {Name: "age", Value: int64(30)}},
		{{Name: "name", Value: "bob"}, {Name: "city", Value: "Oslo"}},
	})

	t.Log("case: table output")
	f.fh.retTable = people
	err := parseAndRun([]string{"read", "-d", "db", "-c", "people"})
	assert.NoError(err)
	assert.Equal([]string{"ReadTable"}, f.fh.called)
	assert.Equal("db", f.fh.inDB)
	assert.Equal("people", f.fh.inColl)
	assert.Nil(f.fh.inFilter)
	assert.Equal([]string{"name", "age", "city"}, f.te.tableHeaders)
	assert.Equal([][]string{{"ann", "30", ""}, {"bob", "", "Oslo"}}, f.te.tableData)
	assert.True(f.fh.closed)

	t.Log("case: filter")
	f.reset()
	f.fh.retTable = people
	err = parseAndRun([]string{"read", "-c", "people", "-f", `{"age": {"$gt": 21}}`})
	assert.NoError(err)
	assert.Empty(f.fh.inDB)
	assert.Equal(bson.D{{Key: "age", Value: bson.D{{Key: "$gt", Value: int32(21)}}}}, f.fh.inFilter)

	t.Log("case: invalid filter")
	f.reset()
	err = parseAndRun([]string{"read", "-c", "people", "-f", `{"age": `})
	assert.Regexp("invalid filter", err)
	assert.Empty(f.fh.called)

	t.Log("case: collection required")
	f.reset()
	err = parseAndRun([]string{"read"})
	assert.Regexp("collection", err)
	assert.Nil(f.inArgs)

	t.Log("case: columns")
	f.reset()
	f.fh.retTable = people
	err = parseAndRun([]string{"read", "-c", "people", "--column", "city", "--column", "name"})
	assert.NoError(err)
	assert.Equal([]string{"city", "name"}, f.te.tableHeaders)
	assert.Equal([][]string{{"", "ann"}, {"Oslo", "bob"}}, f.te.tableData)
	f.reset()
	f.fh.retTable = people
	err = parseAndRun([]string{"read", "-c", "people", "--column", "zip"})
	assert.Regexp("column 'zip' not found", err)

	t.Log("case: json output")
	f.reset()
	f.fh.retTable = people
	err = parseAndRun([]string{"read", "-c", "people", "-o", "json"})
	assert.NoError(err)
	docs, ok := f.te.jsonData.([]json.RawMessage)
	if assert.True(ok) && assert.Len(docs, 2) {
		var m map[string]interface{}
		assert.NoError(json.Unmarshal(docs[0], &m))
		assert.Equal(map[string]interface{}{"name": "ann", "age": float64(30)}, m)
		m = nil
		assert.NoError(json.Unmarshal(docs[1], &m))
		assert.Equal(map[string]interface{}{"name": "bob", "city": "Oslo"}, m)
	}

	t.Log("case: yaml output")
	f.reset()
	f.fh.retTable = people
	err = parseAndRun([]string{"read", "-c", "people", "-o", "yaml"})
	assert.NoError(err)
	assert.Equal([]yaml.MapSlice{
		{{Key: "name", Value: "ann"}, {Key: "age", Value: int64(30)}},
		{{Key: "name", Value: "bob"}, {Key: "city", Value: "Oslo"}},
	}, f.te.yamlData)

	t.Log("case: read fails")
	f.reset()
	f.fh.retErr = fmt.Errorf("find in db.people: boom")
	err = parseAndRun([]string{"read", "-c", "people"})
	assert.Regexp("find in db.people: boom", err)
	assert.True(f.fh.closed)
}

func TestUpsertCmd(t *testing.T) {
	assert := assert.New(t)
	f, restore := newCmdFixture(t)
	defer restore()

	dir := t.TempDir()
	csvFile := filepath.Join(dir, "people.csv")
	assert.NoError(ioutil.WriteFile(csvFile, []byte("id,name,age\n1,ann,30\n2,bob,\n"), 0600))
	txtFile := filepath.Join(dir, "people.txt")
	assert.NoError(ioutil.WriteFile(txtFile, []byte("id,name\n1,ann\n"), 0600))
	jsonFile := filepath.Join(dir, "people.jsonl")
	assert.NoError(ioutil.WriteFile(jsonFile, []byte(`{"id": 1, "name": "ann"}`+"\n"), 0600))
	yamlFile := filepath.Join(dir, "people.YML")
	assert.NoError(ioutil.WriteFile(yamlFile, []byte("- id: 1\n  name: ann\n"), 0600))

	t.Log("case: csv, table output")
	f.fh.retUpsert = &mongotable.UpsertResult{Rows: 2, Batches: 1, Upserted: 2}
	err := parseAndRun([]string{"upsert", "-F", csvFile, "-k", "id", "-d", "db", "-c", "people"})
	assert.NoError(err)
	assert.Equal([]string{"UpsertTable"}, f.fh.called)
	assert.Equal("db", f.fh.inDB)
	assert.Equal("people", f.fh.inColl)
	assert.Equal("id", f.fh.inKey)
	if assert.NotNil(f.fh.inTable) {
		assert.Equal([]string{"id", "name", "age"}, f.fh.inTable.Columns())
		assert.Equal([]interface{}{int64(2), "bob", nil}, f.fh.inTable.Row(1))
	}
	assert.Equal([]string{"Rows", "Batches", "Matched", "Modified", "Upserted"}, f.te.tableHeaders)
	assert.Equal([][]string{{"2", "1", "0", "0", "2"}}, f.te.tableData)

	t.Log("case: json lines, json output")
	f.reset()
	f.fh.retUpsert = &mongotable.UpsertResult{Rows: 1, Batches: 1, Matched: 1}
	err = parseAndRun([]string{"load", "-F", jsonFile, "-k", "id", "-c", "people", "-o", "json"})
	assert.NoError(err)
	if assert.NotNil(f.fh.inTable) {
		assert.Equal([]interface{}{int32(1), "ann"}, f.fh.inTable.Row(0))
	}
	assert.Equal(f.fh.retUpsert, f.te.jsonData)

	t.Log("case: yaml, yaml output")
	f.reset()
	f.fh.retUpsert = &mongotable.UpsertResult{Rows: 1, Batches: 1, Modified: 1}
	err = parseAndRun([]string{"upsert", "-F", yamlFile, "-k", "id", "-c", "people", "-o", "yaml"})
	assert.NoError(err)
	if assert.NotNil(f.fh.inTable) {
		assert.Equal([]string{"id", "name"}, f.fh.inTable.Columns())
	}
	assert.Equal(f.fh.retUpsert, f.te.yamlData)

	t.Log("case: unknown extension")
	f.reset()
	err = parseAndRun([]string{"upsert", "-F", txtFile, "-k", "id", "-c", "people"})
	assert.Regexp("cannot determine the format of .*people.txt", err)
	assert.Empty(f.fh.called)

	t.Log("case: explicit format")
	f.reset()
	f.fh.retUpsert = &mongotable.UpsertResult{Rows: 1, Batches: 1}
	err = parseAndRun([]string{"upsert", "-F", txtFile, "--format", "csv", "-k", "id", "-c", "people"})
	assert.NoError(err)
	assert.Equal([]string{"UpsertTable"}, f.fh.called)

	t.Log("case: wrong explicit format")
	f.reset()
	err = parseAndRun([]string{"upsert", "-F", csvFile, "--format", "yaml", "-k", "id", "-c", "people"})
	assert.Regexp("people.csv: YAML", err)
	assert.Empty(f.fh.called)

	t.Log("case: missing file")
	f.reset()
	err = parseAndRun([]string{"upsert", "-F", filepath.Join(dir, "none.csv"), "-k", "id", "-c", "people"})
	assert.Regexp("no such file", err)

	t.Log("case: key required")
	f.reset()
	err = parseAndRun([]string{"upsert", "-F", csvFile, "-c", "people"})
	assert.Regexp("key", err)
	assert.Nil(f.inArgs)

	t.Log("case: upsert fails")
	f.reset()
	f.fh.retErr = fmt.Errorf("row 1 has no value in key column 'age'")
	err = parseAndRun([]string{"upsert", "-F", csvFile, "-k", "age", "-c", "people"})
	assert.Regexp("row 1 has no value in key column 'age'", err)
	assert.True(f.fh.closed)
}
