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


// Package mongotable moves tables in and out of MongoDB collections.
//
// The Helper wraps a mongodb.DBAPI. Its two principal operations are ReadTable, which
// materializes the documents of a collection as a table.Table, and UpsertTable, which
// writes each row of a table to a collection as an update-with-upsert keyed on a column,
// sending the updates in bulk writes of a fixed batch size.
// The remaining operations are conveniences for inspecting and maintaining the
// databases and collections concerned.
//
// A Helper is intended for sequential use.
package mongotable

import (
	"context"
	"sync"

	"github.com/Nuvoloso/mongotable/pkg/mongodb"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

// Errors returned by the helper. Driver errors are returned wrapped.
var (
	ErrMissingURL     = errors.New("please specify the MongoDB instance URL")
	ErrNotReady       = errors.New("database is not ready")
	ErrNoDatabaseName = errors.New("database name not specified")
	ErrNoCollection   = errors.New("collection name not specified")
)

// Helper provides table level access to MongoDB collections
type Helper struct {
	api      mongodb.DBAPI
	log      *logging.Logger
	mux      sync.Mutex
	dbName   string
	db       mongodb.Database
	collName string
	coll     mongodb.Collection
}

type dbAPIFn func(args *mongodb.Args) mongodb.DBAPI

var dbAPIHook dbAPIFn = mongodb.NewDBAPI

// New connects to the MongoDB instance described by args and returns a Helper
func New(ctx context.Context, args *mongodb.Args) (*Helper, error) {
	if args == nil || args.URL == "" {
		return nil, ErrMissingURL
	}
	api := dbAPIHook(args)
	if err := api.Connect(ctx); err != nil {
		return nil, errors.Wrap(err, "error connecting to MongoDB")
	}
	return NewWithAPI(api), nil
}

// NewWithAPI returns a Helper that uses an existing DBAPI
func NewWithAPI(api mongodb.DBAPI) *Helper {
	return &Helper{api: api, log: api.Logger()}
}

// API returns the underlying DBAPI
func (h *Helper) API() mongodb.DBAPI {
	return h.api
}

// Close terminates the database connection
func (h *Helper) Close() {
	h.mux.Lock()
	h.db, h.dbName, h.coll, h.collName = nil, "", nil, ""
	h.mux.Unlock()
	h.api.Terminate()
}

// database returns the handle of the named database, defaulting to the DBAPI database.
// The handle is cached until a different name is requested.
func (h *Helper) database(dbName string) (mongodb.Database, string, error) {
	if dbName == "" {
		dbName = h.api.DBName()
	}
	if dbName == "" {
		return nil, "", ErrNoDatabaseName
	}
	if err := h.api.MustBeReady(); err != nil {
		return nil, "", ErrNotReady
	}
	h.mux.Lock()
	defer h.mux.Unlock()
	if h.db == nil || h.dbName != dbName {
		h.db = h.api.Client().Database(dbName)
		h.dbName = dbName
		h.coll, h.collName = nil, ""
	}
	return h.db, dbName, nil
}

// collection returns the handle of the named collection, cached like the database
func (h *Helper) collection(dbName, collName string) (mongodb.Collection, string, error) {
	if collName == "" {
		return nil, "", ErrNoCollection
	}
	db, dbName, err := h.database(dbName)
	if err != nil {
		return nil, "", err
	}
	h.mux.Lock()
	defer h.mux.Unlock()
	if h.coll == nil || h.collName != collName {
		h.coll = db.Collection(collName)
		h.collName = collName
	}
	return h.coll, dbName + "." + collName, nil
}

// forgetDatabase drops the cached handles if they refer to the named database
func (h *Helper) forgetDatabase(dbName string) {
	h.mux.Lock()
	defer h.mux.Unlock()
	if h.dbName == dbName {
		h.db, h.dbName, h.coll, h.collName = nil, "", nil, ""
	}
}

// forgetCollection drops the cached collection handle
func (h *Helper) forgetCollection() {
	h.mux.Lock()
	defer h.mux.Unlock()
	h.coll, h.collName = nil, ""
}

// dbError records the error with the DBAPI and returns it wrapped
func (h *Helper) dbError(err error, format string, args ...interface{}) error {
	code := h.api.ErrorCode(err)
	werr := errors.Wrapf(err, format, args...)
	h.log.Errorf("%s (code %d)", werr.Error(), code)
	return werr
}
