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
	"io"
	"os"
	"testing"

	logging "github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
)

func TestLoggerPosition(t *testing.T) {
	assert := assert.New(t)

	tl := NewTestLogger(t)
	l := tl.Logger()
	l.Info("loaded a")
	l.Info("loaded b")

	t.Log("case: dump shows only records after the last flush")
	shown := []string{}
	collect := func(args ...interface{}) { shown = append(shown, args[0].(string)) }
	tl.dump(collect)
	assert.Len(shown, 2)
	assert.Regexp("INFO loaded a$", shown[0])
	l.Error("upsert failed")
	shown = shown[:0]
	tl.dump(collect)
	if assert.Len(shown, 1) {
		assert.Regexp("ERROR upsert failed$", shown[0])
	}

	t.Log("case: Iterate sees flushed records too")
	ids := []uint64{}
	tl.Iterate(func(id uint64, s string) { ids = append(ids, id) })
	assert.Len(ids, 3)
	assert.Equal(ids[2], tl.lastID)
}

func TestLoggerMessages(t *testing.T) {
	assert := assert.New(t)

	tl := NewTestLogger(t)
	l := tl.Logger()
	assert.Equal(TestLoggerModule, l.Module)
	assert.Empty(tl.Messages())

	l.Infof("Read %d documents", 3)
	l.Debug("debug detail")
	assert.Equal([]string{"Read 3 documents", "debug detail"}, tl.Messages())
	assert.Equal(1, tl.CountPattern("DEBUG debug detail"))

	t.Log("case: messages are not consumed until flushed")
	assert.Len(tl.Messages(), 2)
	tl.Flush()
	assert.Empty(tl.Messages())
	assert.Equal(0, tl.CountPattern("documents"))

	t.Log("case: level filtering")
	tl.SetLevel(logging.INFO)
	l.Debug("hidden")
	l.Warning("shown")
	assert.Equal([]string{"shown"}, tl.Messages())
	tl.SetLevel(logging.DEBUG)
	tl.Flush()
}

func TestLogToConsole(t *testing.T) {
	assert := assert.New(t)
	tl := NewTestLogger(t)
	tl.LogToConsole = true
	tl.Logger().Info("to console")

	origStdout := os.Stdout
	defer func() { os.Stdout = origStdout }()
	r, w, err := os.Pipe()
	assert.NoError(err)
	os.Stdout = w
	tl.Flush()
	w.Close()
	out, err := io.ReadAll(r)
	assert.NoError(err)
	assert.Regexp("INFO to console", string(out))
	assert.Empty(tl.Messages())
}
