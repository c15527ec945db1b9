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


package mongotable

import (
	"context"
	"time"

	"github.com/Nuvoloso/mongotable/pkg/mongodb"
	"github.com/Nuvoloso/mongotable/pkg/table"
	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UpsertResult aggregates the bulk write results of an upsert
type UpsertResult struct {
	Rows     int
	Batches  int
	Matched  int64
	Modified int64
	Upserted int64
}

func (r *UpsertResult) add(bwr *mongo.BulkWriteResult) {
	r.Matched += bwr.MatchedCount
	r.Modified += bwr.ModifiedCount
	r.Upserted += bwr.UpsertedCount
}

// ReadTable returns the documents of a collection that match the filter as a table.
// A nil filter selects all documents. Columns appear in the order field names are first seen.
func (h *Helper) ReadTable(ctx context.Context, dbName, collName string, filter interface{}) (*table.Table, error) {
	c, ns, err := h.collection(dbName, collName)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = bson.D{}
	}
	cur, err := c.Find(ctx, filter)
	if err != nil {
		return nil, h.dbError(err, "find in %s", ns)
	}
	defer cur.Close(ctx)
	t, _ := table.New()
	for cur.Next(ctx) {
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return nil, h.dbError(err, "decode document %d of %s", t.NumRows(), ns)
		}
		if err := t.AppendRecord(table.RecordFromD(doc)); err != nil {
			return nil, errors.Wrapf(err, "document %d of %s", t.NumRows(), ns)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, h.dbError(err, "cursor on %s", ns)
	}
	h.api.ErrorCode(nil)
	h.log.Debugf("Read %d documents with %d fields from %s", t.NumRows(), t.NumColumns(), ns)
	return t, nil
}

// UpsertTable writes every row of the table to a collection, matching existing documents on the key column.
// Each row becomes an update that sets the row's non-nil cells, inserting the document if no match exists.
// The updates are sent in ordered bulk writes of at most BatchSize rows.
// Every row must have a key value; this is checked before anything is written.
// On a write failure the result reflects the batches that completed.
func (h *Helper) UpsertTable(ctx context.Context, t *table.Table, dbName, collName, keyColumn string) (*UpsertResult, error) {
	if t == nil {
		return nil, errors.New("no table specified")
	}
	if keyColumn == "" {
		return nil, errors.New("key column not specified")
	}
	if !t.HasColumn(keyColumn) {
		return nil, errors.Errorf("key column '%s' not found in table", keyColumn)
	}
	n := t.NumRows()
	for i := 0; i < n; i++ {
		if v, _ := t.Value(i, keyColumn); v == nil {
			return nil, errors.Errorf("row %d has no value in key column '%s'", i, keyColumn)
		}
	}
	res := &UpsertResult{}
	if n == 0 {
		h.log.Debug("UpsertTable: empty table")
		return res, nil
	}
	c, ns, err := h.collection(dbName, collName)
	if err != nil {
		return nil, err
	}
	begin := time.Now()
	batchSize := h.api.BatchSize()
	if batchSize <= 0 {
		batchSize = mongodb.DefaultBatchSize
	}
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		models := make([]mongo.WriteModel, 0, end-start)
		for i := start; i < end; i++ {
			models = append(models, upsertModel(t.Record(i), keyColumn))
		}
		bwr, err := c.BulkWrite(ctx, models)
		if bwr != nil {
			res.add(bwr)
		}
		if err != nil {
			return res, h.dbError(err, "bulk write of rows %d-%d to %s", start, end-1, ns)
		}
		res.Batches++
		res.Rows = end
	}
	h.api.ErrorCode(nil)
	h.log.Infof("For %s - %d matched, %d modified, %d upserted in %d batches (%s)", ns, res.Matched, res.Modified, res.Upserted, res.Batches, units.HumanDuration(time.Since(begin)))
	return res, nil
}

func upsertModel(rec table.Record, keyColumn string) mongo.WriteModel {
	key, _ := rec.Get(keyColumn)
	return mongo.NewUpdateOneModel().
		SetFilter(bson.D{{Key: keyColumn, Value: key}}).
		SetUpdate(bson.D{{Key: "$set", Value: rec.D()}}).
		SetUpsert(true)
}
