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
	"testing"

	"github.com/Nuvoloso/mongotable/pkg/mongodb"
	"github.com/Nuvoloso/mongotable/pkg/mongodb/mock"
	"github.com/Nuvoloso/mongotable/pkg/testutils"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestDatabaseNames(t *testing.T) {
	assert := assert.New(t)
	tl := testutils.NewTestLogger(t)
	defer tl.Flush()
	l := tl.Logger()
	ctx := context.Background()

	t.Log("case: not ready")
	mockCtrl := gomock.NewController(t)
	defer func() { mockCtrl.Finish() }()
	api := mock.NewMockDBAPI(mockCtrl)
	api.EXPECT().Logger().Return(l)
	api.EXPECT().MustBeReady().Return(errUnknownError)
	h := NewWithAPI(api)
	names, err := h.DatabaseNames(ctx)
	assert.Equal(ErrNotReady, err)
	assert.Nil(names)
	mockCtrl.Finish()

	t.Log("case: list fails")
	mockCtrl = gomock.NewController(t)
	h, m := newHelperMocks(mockCtrl, l)
	m.client.EXPECT().ListDatabaseNames(ctx, bson.D{}).Return(nil, errUnknownError)
	m.api.EXPECT().ErrorCode(errUnknownError).Return(mongodb.ECHostUnreachable)
	names, err = h.DatabaseNames(ctx)
	assert.Regexp("list databases: unknown error", err)
	assert.Nil(names)
	mockCtrl.Finish()

	t.Log("case: success")
	mockCtrl = gomock.NewController(t)
	h, m = newHelperMocks(mockCtrl, l)
	m.client.EXPECT().ListDatabaseNames(ctx, bson.D{}).Return([]string{"admin", "db"}, nil)
	names, err = h.DatabaseNames(ctx)
	assert.NoError(err)
	assert.Equal([]string{"admin", "db"}, names)
}

func TestDropDatabase(t *testing.T) {
	assert := assert.New(t)
	tl := testutils.NewTestLogger(t)
	defer tl.Flush()
	l := tl.Logger()
	ctx := context.Background()

	t.Log("case: no name")
	mockCtrl := gomock.NewController(t)
	defer func() { mockCtrl.Finish() }()
	h, m := newHelperMocks(mockCtrl, l)
	assert.Equal(ErrNoDatabaseName, h.DropDatabase(ctx, ""))

	t.Log("case: list fails")
	m.client.EXPECT().ListDatabaseNames(ctx, bson.D{}).Return(nil, errUnknownError)
	m.api.EXPECT().ErrorCode(errUnknownError).Return(mongodb.ECUnknownError)
	assert.Regexp("list databases: unknown error", h.DropDatabase(ctx, "db"))
	mockCtrl.Finish()

	t.Log("case: absent database")
	mockCtrl = gomock.NewController(t)
	h, m = newHelperMocks(mockCtrl, l)
	m.client.EXPECT().ListDatabaseNames(ctx, bson.D{}).Return([]string{"admin"}, nil)
	assert.NoError(h.DropDatabase(ctx, "db"))
	assert.Equal(1, tl.CountPattern("This database doesn't exist: db"))
	mockCtrl.Finish()

	t.Log("case: drop fails")
	mockCtrl = gomock.NewController(t)
	h, m = newHelperMocks(mockCtrl, l)
	m.client.EXPECT().ListDatabaseNames(ctx, bson.D{}).Return([]string{"admin", "db"}, nil)
	m.db.EXPECT().Drop(ctx).Return(errUnknownError)
	m.api.EXPECT().ErrorCode(errUnknownError).Return(mongodb.ECUnknownError)
	assert.Regexp("drop database db: unknown error", h.DropDatabase(ctx, "db"))
	mockCtrl.Finish()

	t.Log("case: still present after drop")
	mockCtrl = gomock.NewController(t)
	h, m = newHelperMocks(mockCtrl, l)
	gomock.InOrder(
		m.client.EXPECT().ListDatabaseNames(ctx, bson.D{}).Return([]string{"admin", "db"}, nil),
		m.db.EXPECT().Drop(ctx).Return(nil),
		m.client.EXPECT().ListDatabaseNames(ctx, bson.D{}).Return([]string{"admin", "db"}, nil),
	)
	assert.Regexp("database db still exists after drop", h.DropDatabase(ctx, "db"))
	assert.Equal(1, tl.CountPattern("Failed to delete database: db"))
	mockCtrl.Finish()

	t.Log("case: success, cached handle dropped")
	mockCtrl = gomock.NewController(t)
	h, m = newHelperMocks(mockCtrl, l)
	h.db, h.dbName = m.db, "db"
	gomock.InOrder(
		m.client.EXPECT().ListDatabaseNames(ctx, bson.D{}).Return([]string{"admin", "db"}, nil),
		m.db.EXPECT().Drop(ctx).Return(nil),
		m.client.EXPECT().ListDatabaseNames(ctx, bson.D{}).Return([]string{"admin"}, nil),
	)
	assert.NoError(h.DropDatabase(ctx, "db"))
	assert.Nil(h.db)
	assert.Empty(h.dbName)
	assert.Equal(1, tl.CountPattern("Deleted database: db"))
}

func TestCollectionOperations(t *testing.T) {
	assert := assert.New(t)
	tl := testutils.NewTestLogger(t)
	defer tl.Flush()
	l := tl.Logger()
	ctx := context.Background()

	mockCtrl := gomock.NewController(t)
	defer func() { mockCtrl.Finish() }()
	h, m := newHelperMocks(mockCtrl, l)

	t.Log("case: CollectionNames")
	m.db.EXPECT().ListCollectionNames(ctx, bson.D{}).Return([]string{"coll"}, nil)
	names, err := h.CollectionNames(ctx, "")
	assert.NoError(err)
	assert.Equal([]string{"coll"}, names)
	m.db.EXPECT().ListCollectionNames(ctx, bson.D{}).Return(nil, errUnknownError)
	m.api.EXPECT().ErrorCode(errUnknownError).Return(mongodb.ECUnknownError)
	names, err = h.CollectionNames(ctx, "db")
	assert.Regexp("list collections of db: unknown error", err)
	assert.Nil(names)

	t.Log("case: DropCollection")
	assert.Equal(ErrNoCollection, h.DropCollection(ctx, "db", ""))
	m.coll.EXPECT().Drop(ctx).Return(errUnknownError)
	m.api.EXPECT().ErrorCode(errUnknownError).Return(mongodb.ECUnknownError)
	assert.Regexp("drop collection db.coll: unknown error", h.DropCollection(ctx, "db", "coll"))
	m.coll.EXPECT().Drop(ctx).Return(nil)
	assert.NoError(h.DropCollection(ctx, "db", "coll"))
	assert.Nil(h.coll)
	assert.Equal(1, tl.CountPattern("Deleted collection: db.coll"))

	t.Log("case: CleanCollection")
	m.coll.EXPECT().DeleteMany(ctx, bson.D{}).Return(&mongo.DeleteResult{DeletedCount: 4}, nil)
	n, err := h.CleanCollection(ctx, "db", "coll")
	assert.NoError(err)
	assert.EqualValues(4, n)
	assert.Equal(1, tl.CountPattern(`Cleaned collection: db.coll \(4 documents\)`))
	m.coll.EXPECT().DeleteMany(ctx, bson.D{}).Return(nil, errUnknownError)
	m.api.EXPECT().ErrorCode(errUnknownError).Return(mongodb.ECUnknownError)
	n, err = h.CleanCollection(ctx, "db", "coll")
	assert.Regexp("clean collection db.coll: unknown error", err)
	assert.Zero(n)

	t.Log("case: InsertOneDocument")
	doc := bson.D{{Key: "_id", Value: "k1"}, {Key: "v", Value: int32(1)}}
	id, err := h.InsertOneDocument(ctx, "db", "coll", nil)
	assert.Regexp("no document specified", err)
	assert.Nil(id)
	m.coll.EXPECT().InsertOne(ctx, doc).Return(&mongo.InsertOneResult{InsertedID: "k1"}, nil)
	id, err = h.InsertOneDocument(ctx, "db", "coll", doc)
	assert.NoError(err)
	assert.Equal("k1", id)
	m.coll.EXPECT().InsertOne(ctx, doc).Return(nil, errUnknownError)
	m.api.EXPECT().ErrorCode(errUnknownError).Return(mongodb.ECDuplicateKey)
	id, err = h.InsertOneDocument(ctx, "db", "coll", doc)
	assert.Regexp("insert into db.coll: unknown error", err)
	assert.Nil(id)

	t.Log("case: GetOneDocument")
	filter := bson.D{{Key: "_id", Value: "k1"}}
	sr := mock.NewMockSingleResult(mockCtrl)
	m.coll.EXPECT().FindOne(ctx, filter).Return(sr)
	sr.EXPECT().Decode(testutils.NewDecodeMatcher(t, doc)).Return(nil)
	got, err := h.GetOneDocument(ctx, "db", "coll", filter)
	assert.NoError(err)
	assert.Equal(doc, got)
	sr = mock.NewMockSingleResult(mockCtrl)
	m.coll.EXPECT().FindOne(ctx, bson.D{}).Return(sr)
	sr.EXPECT().Decode(gomock.Any()).Return(mongo.ErrNoDocuments)
	m.api.EXPECT().ErrorCode(mongo.ErrNoDocuments).Return(mongodb.ECKeyNotFound)
	got, err = h.GetOneDocument(ctx, "db", "coll", nil)
	assert.NoError(err)
	assert.Nil(got)
	sr = mock.NewMockSingleResult(mockCtrl)
	m.coll.EXPECT().FindOne(ctx, filter).Return(sr)
	sr.EXPECT().Decode(gomock.Any()).Return(errUnknownError)
	m.api.EXPECT().ErrorCode(errUnknownError).Return(mongodb.ECSocketException)
	got, err = h.GetOneDocument(ctx, "db", "coll", filter)
	assert.Regexp("find one in db.coll: unknown error", err)
	assert.Nil(got)
	assert.Equal(1, tl.CountPattern(`find one in db.coll: unknown error \(code 9001\)`))

	t.Log("case: DeleteOneDocument")
	n, err = h.DeleteOneDocument(ctx, "db", "coll", nil)
	assert.Regexp("no filter specified", err)
	assert.Zero(n)
	m.coll.EXPECT().DeleteOne(ctx, filter).Return(&mongo.DeleteResult{DeletedCount: 1}, nil)
	n, err = h.DeleteOneDocument(ctx, "db", "coll", filter)
	assert.NoError(err)
	assert.EqualValues(1, n)
	m.coll.EXPECT().DeleteOne(ctx, filter).Return(nil, errUnknownError)
	m.api.EXPECT().ErrorCode(errUnknownError).Return(mongodb.ECUnknownError)
	n, err = h.DeleteOneDocument(ctx, "db", "coll", filter)
	assert.Regexp("delete one in db.coll: unknown error", err)
	assert.Zero(n)

	t.Log("case: DocumentCount")
	m.coll.EXPECT().CountDocuments(ctx, bson.D{}).Return(int64(7), nil)
	n, err = h.DocumentCount(ctx, "db", "coll", nil)
	assert.NoError(err)
	assert.EqualValues(7, n)
	m.coll.EXPECT().CountDocuments(ctx, filter).Return(int64(0), errUnknownError)
	m.api.EXPECT().ErrorCode(errUnknownError).Return(mongodb.ECUnknownError)
	n, err = h.DocumentCount(ctx, "db", "coll", filter)
	assert.Regexp("count documents in db.coll: unknown error", err)
	assert.Zero(n)
	n, err = h.DocumentCount(ctx, "db", "", filter)
	assert.Equal(ErrNoCollection, err)
	assert.Zero(n)
}
