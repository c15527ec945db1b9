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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Nuvoloso/mongotable/pkg/table"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

func initTableCommands() {
	parser.AddCommand("read", "Read a collection", "Read the documents of a collection, optionally selected by a filter, into a table. Each distinct field becomes a column.", &readCmd{})
	c, _ := parser.AddCommand("upsert", "Upsert a file into a collection", "Upsert the rows of a CSV, JSON lines or YAML file into a collection. Each row is matched on the value of its key column and is inserted if no document matches.", &upsertCmd{})
	c.Aliases = []string{"load"}
}

type readCmd struct {
	Filter  string   `short:"f" long:"filter" description:"Select documents with a filter expressed in MongoDB Extended JSON, e.g. '{\"age\": {\"$gt\": 21}}'"`
	Columns []string `long:"column" description:"Restrict the output to a column. Repeat for multiple columns"`

	collectionFlags
}

func (c *readCmd) Execute(args []string) error {
	filter, err := parseDocument("filter", c.Filter)
	if err != nil {
		return err
	}
	var f interface{}
	if filter != nil {
		f = filter
	}
	t, err := appCtx.helper.ReadTable(appCtx.ctx, c.Database, c.Collection, f)
	if err != nil {
		return err
	}
	if len(c.Columns) > 0 {
		if t, err = project(t, c.Columns); err != nil {
			return err
		}
	}
	return emitTable(t)
}

// project returns a table with the named columns only
func project(t *table.Table, columns []string) (*table.Table, error) {
	nt, err := table.New(columns...)
	if err != nil {
		return nil, err
	}
	for _, name := range columns {
		if !t.HasColumn(name) {
			return nil, fmt.Errorf("column '%s' not found", name)
		}
	}
	for i := 0; i < t.NumRows(); i++ {
		row := make([]interface{}, 0, len(columns))
		for _, name := range columns {
			v, _ := t.Value(i, name)
			row = append(row, v)
		}
		nt.AppendRow(row...)
	}
	return nt, nil
}

type upsertCmd struct {
	File   flags.Filename `short:"F" long:"file" description:"The file containing the rows" required:"yes"`
	Format string         `long:"format" description:"The file format. Determined from the file name extension if not specified" choice:"csv" choice:"json" choice:"yaml"`
	Key    string         `short:"k" long:"key" description:"The column whose value identifies the document of each row" required:"yes"`

	collectionFlags
}

func (c *upsertCmd) Execute(args []string) error {
	t, err := loadTable(string(c.File), c.Format)
	if err != nil {
		return err
	}
	res, err := appCtx.helper.UpsertTable(appCtx.ctx, t, c.Database, c.Collection, c.Key)
	if err != nil {
		return err
	}
	switch appCtx.OutputFormat {
	case "json":
		return appCtx.EmitJSON(res)
	case "yaml":
		return appCtx.EmitYAML(res)
	}
	return appCtx.EmitTable([]string{"Rows", "Batches", "Matched", "Modified", "Upserted"},
		[][]string{{
			fmt.Sprintf("%d", res.Rows),
			fmt.Sprintf("%d", res.Batches),
			fmt.Sprintf("%d", res.Matched),
			fmt.Sprintf("%d", res.Modified),
			fmt.Sprintf("%d", res.Upserted),
		}}, nil)
}

var fileFormats = map[string]string{
	".csv":   "csv",
	".json":  "json",
	".jsonl": "json",
	".yaml":  "yaml",
	".yml":   "yaml",
}

var tableLoaders = map[string]func(io.Reader) (*table.Table, error){
	"csv":  table.ReadCSV,
	"json": table.ReadJSONLines,
	"yaml": table.ReadYAML,
}

// loadTable reads a file in the given format, or the format implied by its extension
func loadTable(fileName, format string) (*table.Table, error) {
	if format == "" {
		format = fileFormats[strings.ToLower(filepath.Ext(fileName))]
		if format == "" {
			return nil, fmt.Errorf("cannot determine the format of %s, use --format", fileName)
		}
	}
	loader, ok := tableLoaders[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", format)
	}
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := loader(f)
	if err != nil {
		return nil, errors.Wrap(err, fileName)
	}
	return t, nil
}
