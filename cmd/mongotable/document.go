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

	"go.mongodb.org/mongo-driver/bson"
)

func initDocumentCommands() {
	parser.AddCommand("find-one", "Show one document", "Show the first document of a collection selected by a filter.", &findOneCmd{})
	parser.AddCommand("insert-one", "Insert one document", "Insert a document expressed in MongoDB Extended JSON into a collection.", &insertOneCmd{})
	parser.AddCommand("delete-one", "Delete one document", "Delete the first document of a collection selected by a filter.", &deleteOneCmd{})
}

type findOneCmd struct {
	Filter string `short:"f" long:"filter" description:"Select the document with a filter expressed in MongoDB Extended JSON"`

	collectionFlags
}

func (c *findOneCmd) Execute(args []string) error {
	filter, err := parseDocument("filter", c.Filter)
	if err != nil {
		return err
	}
	var f interface{}
	if filter != nil {
		f = filter
	}
	doc, err := appCtx.helper.GetOneDocument(appCtx.ctx, c.Database, c.Collection, f)
	if err != nil {
		return err
	}
	if doc == nil {
		fmt.Fprintln(outputWriter, "No matching document")
		return nil
	}
	return emitDocuments([]bson.D{doc})
}

type insertOneCmd struct {
	Document string `short:"D" long:"document" description:"The document expressed in MongoDB Extended JSON" required:"yes"`

	collectionFlags
}

func (c *insertOneCmd) Execute(args []string) error {
	doc, err := parseDocument("document", c.Document)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("empty document")
	}
	id, err := appCtx.helper.InsertOneDocument(appCtx.ctx, c.Database, c.Collection, doc)
	if err != nil {
		return err
	}
	fmt.Fprintf(outputWriter, "Inserted %v\n", id)
	return nil
}

type deleteOneCmd struct {
	Filter string `short:"f" long:"filter" description:"Select the document with a filter expressed in MongoDB Extended JSON" required:"yes"`

	collectionFlags
}

func (c *deleteOneCmd) Execute(args []string) error {
	filter, err := parseDocument("filter", c.Filter)
	if err != nil {
		return err
	}
	if filter == nil {
		return fmt.Errorf("empty filter")
	}
	n, err := appCtx.helper.DeleteOneDocument(appCtx.ctx, c.Database, c.Collection, filter)
	if err != nil {
		return err
	}
	return emitCount("Deleted", c.dbName(), c.Collection, n)
}
