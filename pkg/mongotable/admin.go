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

	"github.com/Nuvoloso/mongotable/pkg/mongodb"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

// DatabaseNames returns the names of the databases on the server
func (h *Helper) DatabaseNames(ctx context.Context) ([]string, error) {
	if err := h.api.MustBeReady(); err != nil {
		return nil, ErrNotReady
	}
	names, err := h.api.Client().ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, h.dbError(err, "list databases")
	}
	h.api.ErrorCode(nil)
	return names, nil
}

// DropDatabase drops a database if it exists and verifies that it is gone.
// A database that does not exist is not an error.
func (h *Helper) DropDatabase(ctx context.Context, dbName string) error {
	if dbName == "" {
		return ErrNoDatabaseName
	}
	names, err := h.DatabaseNames(ctx)
	if err != nil {
		return err
	}
	if !contains(names, dbName) {
		h.log.Infof("This database doesn't exist: %s", dbName)
		return nil
	}
	if err = h.api.Client().Database(dbName).Drop(ctx); err != nil {
		return h.dbError(err, "drop database %s", dbName)
	}
	h.forgetDatabase(dbName)
	if names, err = h.DatabaseNames(ctx); err != nil {
		return err
	}
	if contains(names, dbName) {
		h.log.Errorf("Failed to delete database: %s", dbName)
		return errors.Errorf("database %s still exists after drop", dbName)
	}
	h.log.Infof("Deleted database: %s", dbName)
	return nil
}

// CollectionNames returns the names of the collections in a database
func (h *Helper) CollectionNames(ctx context.Context, dbName string) ([]string, error) {
	db, dbName, err := h.database(dbName)
	if err != nil {
		return nil, err
	}
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, h.dbError(err, "list collections of %s", dbName)
	}
	h.api.ErrorCode(nil)
	return names, nil
}

// DropCollection drops a collection. Dropping a collection that does not exist is not an error.
func (h *Helper) DropCollection(ctx context.Context, dbName, collName string) error {
	c, ns, err := h.collection(dbName, collName)
	if err != nil {
		return err
	}
	if err = c.Drop(ctx); err != nil {
		return h.dbError(err, "drop collection %s", ns)
	}
	h.api.ErrorCode(nil)
	h.forgetCollection()
	h.log.Infof("Deleted collection: %s", ns)
	return nil
}

// CleanCollection deletes all the documents of a collection and returns the number deleted
func (h *Helper) CleanCollection(ctx context.Context, dbName, collName string) (int64, error) {
	c, ns, err := h.collection(dbName, collName)
	if err != nil {
		return 0, err
	}
	res, err := c.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, h.dbError(err, "clean collection %s", ns)
	}
	h.api.ErrorCode(nil)
	h.log.Infof("Cleaned collection: %s (%d documents)", ns, res.DeletedCount)
	return res.DeletedCount, nil
}

// InsertOneDocument inserts a document into a collection and returns its _id
func (h *Helper) InsertOneDocument(ctx context.Context, dbName, collName string, doc interface{}) (interface{}, error) {
	if doc == nil {
		return nil, errors.New("no document specified")
	}
	c, ns, err := h.collection(dbName, collName)
	if err != nil {
		return nil, err
	}
	res, err := c.InsertOne(ctx, doc)
	if err != nil {
		return nil, h.dbError(err, "insert into %s", ns)
	}
	h.api.ErrorCode(nil)
	h.log.Infof("Inserted 1 document into: %s", ns)
	return res.InsertedID, nil
}

// GetOneDocument returns the first document matching the filter, or nil if there is none.
// A nil filter matches any document.
func (h *Helper) GetOneDocument(ctx context.Context, dbName, collName string, filter interface{}) (bson.D, error) {
	c, ns, err := h.collection(dbName, collName)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = bson.D{}
	}
	var doc bson.D
	if err = c.FindOne(ctx, filter).Decode(&doc); err != nil {
		code := h.api.ErrorCode(err)
		if code == mongodb.ECKeyNotFound {
			return nil, nil
		}
		werr := errors.Wrapf(err, "find one in %s", ns)
		h.log.Errorf("%s (code %d)", werr.Error(), code)
		return nil, werr
	}
	h.api.ErrorCode(nil)
	return doc, nil
}

// DeleteOneDocument deletes the first document matching the filter and returns the number deleted
func (h *Helper) DeleteOneDocument(ctx context.Context, dbName, collName string, filter interface{}) (int64, error) {
	if filter == nil {
		return 0, errors.New("no filter specified")
	}
	c, ns, err := h.collection(dbName, collName)
	if err != nil {
		return 0, err
	}
	res, err := c.DeleteOne(ctx, filter)
	if err != nil {
		return 0, h.dbError(err, "delete one in %s", ns)
	}
	h.api.ErrorCode(nil)
	h.log.Infof("Deleted %d document in %s", res.DeletedCount, ns)
	return res.DeletedCount, nil
}

// DocumentCount returns the number of documents matching the filter. A nil filter counts all documents.
func (h *Helper) DocumentCount(ctx context.Context, dbName, collName string, filter interface{}) (int64, error) {
	c, ns, err := h.collection(dbName, collName)
	if err != nil {
		return 0, err
	}
	if filter == nil {
		filter = bson.D{}
	}
	n, err := c.CountDocuments(ctx, filter)
	if err != nil {
		return 0, h.dbError(err, "count documents in %s", ns)
	}
	h.api.ErrorCode(nil)
	return n, nil
}
