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


package mongodb

import (
	"context"
	"time"

	"github.com/op/go-logging"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// The interface to mongo is abstracted to support testing. The following main abstractions are defined:
//   - DBAPI interface
//     This is an abstraction of the API that serves as:
//       - the means to hide implementation details on error codes
//       - the owner of the client connection and its state
//   - Mongo API wrapper interfaces
//     This is an identical facsimile of the required parts of the mongo API interfaces.
//     Note that data types referenced are mongo client data types.

//go:generate mockgen -destination=mock/mongodb.go -package=mock github.com/Nuvoloso/mongotable/pkg/mongodb DBAPI,Client,Database,Collection,Cursor,SingleResult

// DBAPI abstracts the database API
type DBAPI interface {
	// Connect opens the client and verifies that the server responds.
	// There is a single attempt; the error is returned to the caller.
	Connect(ctx context.Context) error
	// Terminate terminates the mongodb client
	Terminate()
	// DBName returns the name of the default database
	DBName() string
	// DBTimeout returns the timeout for database operations
	DBTimeout() time.Duration
	// BatchSize returns the number of write models sent in a single bulk write
	BatchSize() int
	// Client returns the client interface
	Client() Client
	// Logger returns a logger
	Logger() *logging.Logger
	// MustBeReady returns an error if the database is not connected
	MustBeReady() error
	// This method can extract the error code from an error
	ErrorCode(error) int
}

// Mongo error codes of interest
const (
	ECHostUnreachable   = 6
	ECUnknownError      = 8
	ECNamespaceNotFound = 26
	ECNamespaceExists   = 48
	ECKeyNotFound       = 211
	ECSocketException   = 9001
	ECDuplicateKey      = 11000
	ECInterrupted       = 11601
)

// The interfaces below are based on mongo API semantics

// Client is an interface to access to the datastore client
type Client interface {
	Database(string, ...*options.DatabaseOptions) Database
	Disconnect(context.Context) error
	ListDatabaseNames(context.Context, interface{}, ...*options.ListDatabasesOptions) ([]string, error)
	Ping(context.Context, *readpref.ReadPref) error
}

// Database is an interface to access to the datastore
type Database interface {
	Collection(string, ...*options.CollectionOptions) Collection
	Drop(context.Context) error
	ListCollectionNames(context.Context, interface{}, ...*options.ListCollectionsOptions) ([]string, error)
	Name() string
}

// Collection is an interface to access to a collection.
// Interface is sparse - only required functions are provided.
type Collection interface {
	BulkWrite(context.Context, []mongo.WriteModel, ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
	CountDocuments(context.Context, interface{}, ...*options.CountOptions) (int64, error)
	DeleteMany(context.Context, interface{}, ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	Drop(context.Context) error
	Find(context.Context, interface{}, ...*options.FindOptions) (Cursor, error)
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) SingleResult
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Name() string
}

// Cursor abstracts the mongo Cursor struct
// Note that the argument to the Decode() function must be a pointer, for example &bson.D{}, not bson.D{}
type Cursor interface {
	Close(context.Context) error
	Decode(interface{}) error
	Err() error
	Next(context.Context) bool
}

// SingleResult abstracts the SingleResult struct
// Note that the argument to the Decode() function must be a pointer, for example &bson.M{}, not bson.M{}
type SingleResult interface {
	Decode(interface{}) error
	Err() error
}
