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
)

func initAdminCommands() {
	c, _ := parser.AddCommand("databases", "List databases", "List the names of the databases on the server.", &databasesCmd{})
	c.Aliases = []string{"dbs"}
	parser.AddCommand("collections", "List collections", "List the names of the collections of a database.", &collectionsCmd{})
	parser.AddCommand("count", "Count documents", "Count the documents of a collection, optionally selected by a filter.", &countCmd{})
	parser.AddCommand("clean", "Delete all documents", "Delete all the documents of a collection. The collection itself remains.", &cleanCmd{})
	parser.AddCommand("drop-collection", "Drop a collection", "Drop a collection and its indexes.", &dropCollectionCmd{})
	parser.AddCommand("drop-database", "Drop a database", "Drop a database. It is not an error if the database does not exist.", &dropDatabaseCmd{})
}

type databasesCmd struct{}

func (c *databasesCmd) Execute(args []string) error {
	names, err := appCtx.helper.DatabaseNames(appCtx.ctx)
	if err != nil {
		return err
	}
	return emitNames("Database", names)
}

type collectionsCmd struct {
	Database string `short:"d" long:"database" description:"Name of the database. Defaults to the --mongo.db value"`
}

func (c *collectionsCmd) Execute(args []string) error {
	names, err := appCtx.helper.CollectionNames(appCtx.ctx, c.Database)
	if err != nil {
		return err
	}
	return emitNames("Collection", names)
}

type countCmd struct {
	Filter string `short:"f" long:"filter" description:"Select documents with a filter expressed in MongoDB Extended JSON"`

	collectionFlags
}

func (c *countCmd) Execute(args []string) error {
	filter, err := parseDocument("filter", c.Filter)
	if err != nil {
		return err
	}
	var f interface{}
	if filter != nil {
		f = filter
	}
	n, err := appCtx.helper.DocumentCount(appCtx.ctx, c.Database, c.Collection, f)
	if err != nil {
		return err
	}
	return emitCount("Count", c.dbName(), c.Collection, n)
}

type cleanCmd struct {
	collectionFlags
}

func (c *cleanCmd) Execute(args []string) error {
	n, err := appCtx.helper.CleanCollection(appCtx.ctx, c.Database, c.Collection)
	if err != nil {
		return err
	}
	return emitCount("Deleted", c.dbName(), c.Collection, n)
}

type dropCollectionCmd struct {
	collectionFlags
}

func (c *dropCollectionCmd) Execute(args []string) error {
	if err := appCtx.helper.DropCollection(appCtx.ctx, c.Database, c.Collection); err != nil {
		return err
	}
	fmt.Fprintf(outputWriter, "Dropped collection %s.%s\n", c.dbName(), c.Collection)
	return nil
}

type dropDatabaseCmd struct {
	Database string `short:"d" long:"database" description:"Name of the database" required:"yes"`
}

func (c *dropDatabaseCmd) Execute(args []string) error {
	if err := appCtx.helper.DropDatabase(appCtx.ctx, c.Database); err != nil {
		return err
	}
	fmt.Fprintf(outputWriter, "Database %s is gone\n", c.Database)
	return nil
}
