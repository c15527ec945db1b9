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
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/Nuvoloso/mongotable/pkg/mongotable"
	"github.com/Nuvoloso/mongotable/pkg/table"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gopkg.in/yaml.v2"
)

// tableHelper is the part of the mongotable.Helper used by the commands
type tableHelper interface {
	ReadTable(ctx context.Context, dbName, collName string, filter interface{}) (*table.Table, error)
	UpsertTable(ctx context.Context, t *table.Table, dbName, collName, keyColumn string) (*mongotable.UpsertResult, error)
	DatabaseNames(ctx context.Context) ([]string, error)
	DropDatabase(ctx context.Context, dbName string) error
	CollectionNames(ctx context.Context, dbName string) ([]string, error)
	DropCollection(ctx context.Context, dbName, collName string) error
	CleanCollection(ctx context.Context, dbName, collName string) (int64, error)
	InsertOneDocument(ctx context.Context, dbName, collName string, doc interface{}) (interface{}, error)
	GetOneDocument(ctx context.Context, dbName, collName string, filter interface{}) (bson.D, error)
	DeleteOneDocument(ctx context.Context, dbName, collName string, filter interface{}) (int64, error)
	DocumentCount(ctx context.Context, dbName, collName string, filter interface{}) (int64, error)
	Close()
}

var _ = tableHelper(&mongotable.Helper{})

// collectionFlags select the target of a command
type collectionFlags struct {
	Database   string `short:"d" long:"database" description:"Name of the database. Defaults to the --mongo.db value"`
	Collection string `short:"c" long:"collection" description:"Name of the collection" required:"yes"`
}

func (c *collectionFlags) dbName() string {
	if c.Database != "" {
		return c.Database
	}
	return appCtx.MongoArgs.DatabaseName
}

// parseDocument converts an Extended JSON string into a document; an empty string returns nil
func parseDocument(what, s string) (bson.D, error) {
	if s == "" {
		return nil, nil
	}
	var d bson.D
	if err := bson.UnmarshalExtJSON([]byte(s), false, &d); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", what)
	}
	return d, nil
}

// jsonDocs renders documents as relaxed Extended JSON so that field order and BSON types survive
func jsonDocs(docs []bson.D) ([]json.RawMessage, error) {
	ret := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		b, err := bson.MarshalExtJSON(d, false, false)
		if err != nil {
			return nil, err
		}
		ret = append(ret, json.RawMessage(b))
	}
	return ret, nil
}

// yamlValue converts BSON values into ordered YAML values
func yamlValue(v interface{}) interface{} {
	switch x := v.(type) {
	case bson.D:
		ms := make(yaml.MapSlice, 0, len(x))
		for _, e := range x {
			ms = append(ms, yaml.MapItem{Key: e.Key, Value: yamlValue(e.Value)})
		}
		return ms
	case bson.A:
		l := make([]interface{}, 0, len(x))
		for _, e := range x {
			l = append(l, yamlValue(e))
		}
		return l
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC()
	case primitive.Decimal128:
		return x.String()
	case primitive.Regex:
		return "/" + x.Pattern + "/" + x.Options
	case primitive.Timestamp:
		return yaml.MapSlice{{Key: "t", Value: x.T}, {Key: "i", Value: x.I}}
	case primitive.Binary:
		return yaml.MapSlice{{Key: "subType", Value: fmt.Sprintf("%02x", x.Subtype)}, {Key: "base64", Value: base64.StdEncoding.EncodeToString(x.Data)}}
	case primitive.JavaScript:
		return string(x)
	case primitive.Symbol:
		return string(x)
	case primitive.Null, primitive.Undefined:
		return nil
	case primitive.MinKey:
		return "$minKey"
	case primitive.MaxKey:
		return "$maxKey"
	}
	return v
}

func yamlDocs(docs []bson.D) []yaml.MapSlice {
	ret := make([]yaml.MapSlice, 0, len(docs))
	for _, d := range docs {
		ret = append(ret, yamlValue(d).(yaml.MapSlice))
	}
	return ret
}

func tableDocs(t *table.Table) []bson.D {
	recs := t.Records()
	docs := make([]bson.D, 0, len(recs))
	for _, r := range recs {
		docs = append(docs, r.D())
	}
	return docs
}

// emitDocuments emits documents in the chosen output format
func emitDocuments(docs []bson.D) error {
	switch appCtx.OutputFormat {
	case "json":
		jd, err := jsonDocs(docs)
		if err != nil {
			return err
		}
		return appCtx.EmitJSON(jd)
	case "yaml":
		return appCtx.EmitYAML(yamlDocs(docs))
	}
	t, _ := table.New()
	for _, d := range docs {
		if err := t.AppendRecord(table.RecordFromD(d)); err != nil {
			return err
		}
	}
	return emitTable(t)
}

// emitTable emits a table in the chosen output format
func emitTable(t *table.Table) error {
	if appCtx.OutputFormat != "table" {
		return emitDocuments(tableDocs(t))
	}
	return appCtx.EmitTable(t.Columns(), t.Strings(), nil)
}

// emitNames emits a list of names under a single heading
func emitNames(heading string, names []string) error {
	switch appCtx.OutputFormat {
	case "json":
		return appCtx.EmitJSON(names)
	case "yaml":
		return appCtx.EmitYAML(names)
	}
	data := make([][]string, 0, len(names))
	for _, n := range names {
		data = append(data, []string{n})
	}
	return appCtx.EmitTable([]string{heading}, data, nil)
}

// emitCount emits a count of documents in a namespace
func emitCount(heading, dbName, collName string, n int64) error {
	data := struct {
		Database   string `json:"database" yaml:"database"`
		Collection string `json:"collection" yaml:"collection"`
		Count      int64  `json:"count" yaml:"count"`
	}{dbName, collName, n}
	switch appCtx.OutputFormat {
	case "json":
		return appCtx.EmitJSON(data)
	case "yaml":
		return appCtx.EmitYAML(data)
	}
	return appCtx.EmitTable([]string{"Database", "Collection", heading},
		[][]string{{data.Database, data.Collection, fmt.Sprintf("%d", n)}}, nil)
}
