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


package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type ctxDeadlineMatcher struct {
	expected  time.Time
	isTimeout bool
}

// NewCtxDeadlineMatcher returns a context with deadline matcher
func NewCtxDeadlineMatcher(deadline time.Time) gomock.Matcher {
	return &ctxDeadlineMatcher{expected: deadline}
}

// NewCtxTimeoutMatcher returns a context with timeout matcher. Should be called before the real context is created
func NewCtxTimeoutMatcher(timeout time.Duration) gomock.Matcher {
	deadline := time.Now().Add(timeout)
	return &ctxDeadlineMatcher{expected: deadline, isTimeout: true}
}

func (m *ctxDeadlineMatcher) Matches(x interface{}) bool {
	if x != nil {
		ctx, ok := x.(context.Context)
		if !ok {
			return false
		}
		if dl, ok := ctx.Deadline(); ok {
			if m.isTimeout {
				return dl.After(m.expected)
			}
			return m.expected.Equal(dl)
		}
	}
	return false
}

func (m *ctxDeadlineMatcher) String() string {
	return "ctx deadline matches"
}

type decodeMatcher struct {
	buf []byte
}

// NewDecodeMatcher constructs a matcher for the mongo Decode() argument.
// On a match the document is unmarshaled into the argument, simulating the driver.
// The doc parameter is any type that can be passed to bson.Marshal(), eg bson.D, bson.M or a struct pointer.
// doc may also be nil to skip attempting to use the value in Matches, for use in error conditions.
func NewDecodeMatcher(t *testing.T, doc interface{}) gomock.Matcher {
	if doc == nil {
		return &decodeMatcher{}
	}
	buf, err := bson.Marshal(doc)
	if !assert.NoError(t, err) {
		assert.FailNow(t, "bson.Marshal should not fail")
	}
	return &decodeMatcher{buf: buf}
}

func (m *decodeMatcher) Matches(x interface{}) bool {
	if len(m.buf) == 0 { // nothing to copy, destination object must not be nil
		return x != nil
	}
	if x != nil {
		return bson.Unmarshal(m.buf, x) == nil
	}
	return false
}

func (m *decodeMatcher) String() string {
	if m.buf != nil {
		return "decoder matches object"
	}
	return "decoder matches nil"
}

// WriteModelsMatcher is a gomock.Matcher for the models passed to a BulkWrite
type WriteModelsMatcher struct {
	t      *testing.T
	models []mongo.WriteModel
}

// NewWriteModelsMatcher returns a gomock.Matcher
func NewWriteModelsMatcher(t *testing.T, models []mongo.WriteModel) *WriteModelsMatcher {
	return &WriteModelsMatcher{t: t, models: models}
}

// Matches is from gomock.Matcher
func (o *WriteModelsMatcher) Matches(x interface{}) bool {
	models, ok := x.([]mongo.WriteModel)
	return assert.True(o.t, ok) && assert.Equal(o.t, o.models, models)
}

// String is from gomock.Matcher
func (o *WriteModelsMatcher) String() string {
	return fmt.Sprintf("WriteModelsMatcher matches %d models", len(o.models))
}
