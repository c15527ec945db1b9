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


// Package mongodb abstracts the mongodb client interface
package mongodb

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-openapi/runtime/client"
	"github.com/op/go-logging"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultBatchSize is the number of write models sent per bulk write when Args.BatchSize is not set
const DefaultBatchSize = 1000

// Args contains the arguments to create a DBAPI
type Args struct {
	URL           string        `long:"url" description:"Mongo server URL" default:"mongodb://localhost:27017"`
	DatabaseName  string        `long:"db" description:"Name of the default database"`
	MaxPoolSize   uint64        `long:"max-pool-size" description:"Maximum size of a server's connection pool. If zero, the driver default is used" default:"0"`
	Timeout       time.Duration `long:"timeout" description:"Timeout for a database operation" default:"25s"`
	BatchSize     int           `long:"batch-size" description:"Number of rows sent to the server in a single bulk write" default:"1000"`
	UseSSL        bool          `long:"ssl" description:"Use SSL to communicate with the datastore"`
	SSLServerName string        `long:"ssl-server-name" description:"The actual server name of the datastore SSL certificate"`
	DirectConnect bool          `long:"direct" description:"Connect directly to the server named in the URL rather than discovering the replica set"`

	TLSCertificate    string `long:"tls-certificate" description:"The client certificate to use for SSL connections"`
	TLSCertificateKey string `long:"tls-key" description:"The private key of the client certificate"`
	TLSCACertificate  string `long:"tls-ca" description:"The certificate authority used to validate the server certificate"`

	// expected to be set by the caller
	Log     *logging.Logger `json:"-"`
	AppName string          `no-flag:"1"`
}

// NewDBAPI returns a DBAPI
func NewDBAPI(args *Args) DBAPI {
	ds := &mongoDB{
		Args: *args,
	}
	if ds.Args.BatchSize <= 0 {
		ds.Args.BatchSize = DefaultBatchSize
	}
	if ds.Log == nil {
		ds.Log = logging.MustGetLogger("mongodb")
	}
	return ds
}

// DBState is the state of the mongoDB
type DBState int

// mongoDB states
// The state is initially DBNotConnected and remains there until Connect() succeeds, transitioning to DBReady.
// It remains in this state unless some sort of connection error occurs.
// In that case, it transitions to DBError until the client is used again successfully, at
// which time it transitions back to DBReady.
// When Terminate() is called, the state transitions back to DBNotConnected.
const (
	DBNotConnected DBState = iota
	DBReady
	DBError
)

func (s DBState) String() string {
	switch s {
	case DBNotConnected:
		return "NotConnected"
	case DBReady:
		return "Ready"
	case DBError:
		return "Error"
	}
	return fmt.Sprintf("DBState(%d)", int(s))
}

// mongoDB contains the datastore connection information
// It satisfies the following interfaces:
// - DBAPI
type mongoDB struct {
	Args
	cfg    *tls.Config
	client Client
	state  DBState
	mux    sync.Mutex
}

var _ = DBAPI(&mongoDB{})

type connectFn func(ctx context.Context, opts ...*options.ClientOptions) (Client, error)

// mongoConnectHook exists to aid UT
var mongoConnectHook connectFn = connect

func connect(ctx context.Context, opts ...*options.ClientOptions) (Client, error) {
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &MongoClient{client}, nil
}

// clientOptions builds the driver options from the Args
func (db *mongoDB) clientOptions() (*options.ClientOptions, error) {
	clientOptions := options.Client().ApplyURI(db.URL).SetConnectTimeout(db.Timeout).SetServerSelectionTimeout(db.Timeout).SetSocketTimeout(db.Timeout)
	if db.AppName != "" {
		clientOptions.SetAppName(db.AppName)
	}
	if db.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(db.MaxPoolSize)
	}
	if db.UseSSL {
		tlsClientOpts := client.TLSClientOptions{
			Certificate: db.TLSCertificate,
			Key:         db.TLSCertificateKey,
			CA:          db.TLSCACertificate,
			ServerName:  db.SSLServerName,
		}
		cfg, err := client.TLSClientAuth(tlsClientOpts)
		if err != nil {
			return nil, err
		}
		db.cfg = cfg
		clientOptions.SetDialer(db)
	}
	if db.DirectConnect {
		clientOptions.SetDirect(true)
	}
	if err := clientOptions.Validate(); err != nil {
		return nil, err
	}
	return clientOptions, nil
}

type tlsDialFn func(dialer *net.Dialer, network, addr string, config *tls.Config) (*tls.Conn, error)

var tlsDialHook tlsDialFn = tls.DialWithDialer

// DialContext implements the mongo.options.ContextDialer interface. It is set when SSL is enabled.
// Use this rather than the built-in mongo client TLS logic because it overwrites our specified ServerName, requiring the use of InsecureSkipVerify
func (db *mongoDB) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	tlsDialer := &net.Dialer{Timeout: db.Timeout}
	if dl, ok := ctx.Deadline(); ok {
		tlsDialer.Deadline = dl
	}
	return tlsDialHook(tlsDialer, network, address, db.cfg)
}

// Connect opens a connection to the Mongo database and pings it.
// Not context.WithTimeout(): timeouts are specified in the client options and a context Timeout masks actual error returned by mongo.
func (db *mongoDB) Connect(ctx context.Context) error {
	if db.URL == "" {
		return fmt.Errorf("MongoDB URL not specified")
	}
	if db.state != DBNotConnected {
		return nil
	}
	clientOptions, err := db.clientOptions()
	if err != nil {
		return err
	}
	var pref *readpref.ReadPref
	if db.DirectConnect {
		// in DirectConnect mode, want Ping to work even if no PRIMARY
		pref = readpref.Nearest()
	}
	db.Log.Infof("Connecting to mongo at [%s]", db.URL)
	c, err := mongoConnectHook(ctx, clientOptions)
	if err != nil {
		db.Log.Errorf("Cannot connect to mongo at [%s]: %s", db.URL, err)
		return err
	}
	if err = c.Ping(ctx, pref); err != nil {
		db.Log.Errorf("Cannot ping mongo at [%s]: %s", db.URL, err)
		db.disconnect(c)
		return err
	}
	db.mux.Lock()
	db.client = c
	db.state = DBReady
	db.mux.Unlock()
	db.Log.Infof("Connected to mongo at [%s]", db.URL)
	db.Log.Info("MongoDB state ⇒ Ready")
	return nil
}

// becomeReady will transition the db state from DBError to DBReady
// It should be called when a response or error indicates communication with mongo actually occurred
func (db *mongoDB) becomeReady() {
	if db.state == DBError {
		db.mux.Lock()
		defer db.mux.Unlock()
		if db.state == DBError {
			db.state = DBReady
			db.Log.Info("MongoDB state ⇒ Ready")
		}
	}
}

func (db *mongoDB) disconnect(c Client) {
	ctx, cancel := context.WithTimeout(context.Background(), db.Timeout)
	defer cancel()
	if err := c.Disconnect(ctx); err != nil {
		db.Log.Errorf("Failed to disconnect mongo: %s", err.Error())
	}
}

// Terminate will close the connection to Mongo
func (db *mongoDB) Terminate() {
	if db.state != DBNotConnected {
		db.mux.Lock()
		defer db.mux.Unlock()
		if db.state != DBNotConnected {
			db.state = DBNotConnected
			db.Log.Info("MongoDB state ⇒ NotConnected")
			db.Log.Info("Closing connection to mongo")
			db.disconnect(db.client)
			db.client = nil
		}
	}
}

// DBClient methods

// DBName returns the name of the default database
func (db *mongoDB) DBName() string {
	return db.DatabaseName
}

// DBTimeout returns the timeout for database operations
func (db *mongoDB) DBTimeout() time.Duration {
	return db.Timeout
}

// BatchSize returns the bulk write batch size
func (db *mongoDB) BatchSize() int {
	return db.Args.BatchSize
}

// Client returns the client interface
func (db *mongoDB) Client() Client {
	return db.client
}

// Logger returns the logger
func (db *mongoDB) Logger() *logging.Logger {
	return db.Log
}

// ErrorCode extracts the numeric mongo error codes
func (db *mongoDB) ErrorCode(err error) int {
	if err == nil {
		// used to reset the state of the MongoDB to DBReady
		db.becomeReady()
		return ECKeyNotFound
	}
	code := ECUnknownError
	switch e := err.(type) {
	case mongo.CommandError: // returned from the database service
		db.becomeReady()
		return int(e.Code)
	case mongo.WriteException: // returned by the database service
		db.becomeReady()
		if e.WriteConcernError != nil {
			// WriteConcernError is reported over write errors, but log if both are present
			if len(e.WriteErrors) > 0 {
				db.Log.Infof("ErrorCode: WriteException %s", err.Error())
			}
			return e.WriteConcernError.Code
		} else if len(e.WriteErrors) > 0 {
			// return the first error code, log if there is more than one
			if len(e.WriteErrors) > 1 {
				db.Log.Infof("ErrorCode: WriteException %s", err.Error())
			}
			return e.WriteErrors[0].Code
		}
		// code is still ECUnknownError, log below
	case mongo.BulkWriteException: // returned by BulkWrite
		db.becomeReady()
		if e.WriteConcernError != nil {
			if len(e.WriteErrors) > 0 {
				db.Log.Infof("ErrorCode: BulkWriteException %s", err.Error())
			}
			return e.WriteConcernError.Code
		} else if len(e.WriteErrors) > 0 {
			if len(e.WriteErrors) > 1 {
				db.Log.Infof("ErrorCode: BulkWriteException %s", err.Error())
			}
			return e.WriteErrors[0].Code
		}
	case *net.OpError:
		db.Log.Infof("ErrorCode: OpError %s", e.Error())
		code = ECSocketException
	default:
		if err == mongo.ErrNoDocuments { // returned by SingleResult.Decode() when no result
			db.becomeReady()
			return ECKeyNotFound
		} else if err == io.EOF { // returned by any op when socket disconnects during a read
			code = ECInterrupted
		} else if err == context.DeadlineExceeded {
			code = ECInterrupted
		} else if err == mongo.ErrUnacknowledgedWrite || err == mongo.ErrClientDisconnected {
			code = ECInterrupted
		} else if strings.HasPrefix(err.Error(), "server selection error") { // returned by any op when mongo is not reachable
			code = ECHostUnreachable
		}
	}
	if code == ECUnknownError {
		db.Log.Infof("ErrorCode: %T %s", err, err.Error())
	} else {
		// other codes indicate some sort of network connection problem, change state
		if db.state == DBReady {
			db.mux.Lock()
			defer db.mux.Unlock()
			if db.state == DBReady {
				db.state = DBError
				db.Log.Error("MongoDB state ⇒ Error")
			}
		}
	}
	return code
}

// MustBeReady fails if the database is not connected
func (db *mongoDB) MustBeReady() error {
	if db.state < DBReady {
		db.Log.Error("MongoDB: not ready")
		return fmt.Errorf("database not available")
	}
	return nil
}

// MongoClient wraps the mongo.Client struct
type MongoClient struct {
	*mongo.Client
}

var _ = Client(&MongoClient{})

// Database wraps the mongo.Client.Database function
func (mc *MongoClient) Database(name string, opts ...*options.DatabaseOptions) Database {
	return &MongoDatabase{mc.Client.Database(name, opts...)}
}

// MongoDatabase wraps a mongo.Database to embed functions in an interface
type MongoDatabase struct {
	*mongo.Database
}

var _ = Database(&MongoDatabase{})

// Collection wraps the mongo.Database.Collection function
func (md *MongoDatabase) Collection(name string, opts ...*options.CollectionOptions) Collection {
	return &MongoCollection{md.Database.Collection(name, opts...)}
}

// MongoCollection wraps a mongo.Collection to embed functions in an interface
type MongoCollection struct {
	*mongo.Collection
}

var _ = Collection(&MongoCollection{})

// Find wraps the mongo.Collection.Find function
func (mc *MongoCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (Cursor, error) {
	cur, err := mc.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

// MongoSingleResult wraps a mongo.SingleResult to embed functions in an interface
type MongoSingleResult struct {
	*mongo.SingleResult
}

// FindOne wraps the mongo.Collection.FindOne function
func (mc *MongoCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) SingleResult {
	return &MongoSingleResult{mc.Collection.FindOne(ctx, filter, opts...)}
}
