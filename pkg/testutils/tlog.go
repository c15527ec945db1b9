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
	"fmt"
	"regexp"
	"testing"

	logging "github.com/op/go-logging"
)

// TestLoggerModule is the module name of the logger handed out by a TestLogger
const TestLoggerModule = "test"

// TestLogger captures log records in memory for use in UTs.
// Records are shown through the tester log on Flush; those not yet flushed
// can be searched with CountPattern or fetched with Messages.
type TestLogger struct {
	t            *testing.T
	logger       *logging.Logger
	lbe          *logging.MemoryBackend
	lastID       uint64
	LogToConsole bool
}

// NewTestLogger returns a test logger that records messages at all levels
func NewTestLogger(t *testing.T) *TestLogger {
	lbe := logging.InitForTesting(logging.DEBUG)
	logging.SetFormatter(logging.MustStringFormatter("%{id} %{shortfile} %{level} %{message}"))
	return &TestLogger{
		t:      t,
		lbe:    lbe,
		logger: logging.MustGetLogger(TestLoggerModule),
	}
}

// Logger returns the logger
func (tl *TestLogger) Logger() *logging.Logger {
	return tl.logger
}

// SetLevel changes the level at which records are captured
func (tl *TestLogger) SetLevel(level logging.Level) {
	logging.SetLevel(level, TestLoggerModule)
}

// Flush sends accumulated records to the tester log or to the console if LogToConsole is set
func (tl *TestLogger) Flush() {
	if tl.LogToConsole {
		tl.dump(func(args ...interface{}) { fmt.Println(args...) })
	} else {
		tl.dump(tl.t.Log)
	}
}

// Iterate iterates over all the records, flushed or not
func (tl *TestLogger) Iterate(cb func(uint64, string)) {
	for n := tl.lbe.Head(); n != nil; n = n.Next() {
		cb(n.Record.ID, n.Record.Formatted(2))
	}
}

// Messages returns the message text of the un-flushed records without flushing them
func (tl *TestLogger) Messages() []string {
	msgs := []string{}
	tl.peek(func(r *logging.Record) { msgs = append(msgs, r.Message()) })
	return msgs
}

// CountPattern counts the number of un-flushed records matching a pattern.
// It does not change the position but this relies on no concurrent logging.
func (tl *TestLogger) CountPattern(rePattern string) int {
	re := regexp.MustCompile(rePattern)
	count := 0
	tl.peek(func(r *logging.Record) {
		if re.MatchString(r.Formatted(2)) {
			count++
		}
	})
	return count
}

func (tl *TestLogger) peek(cb func(*logging.Record)) {
	lastID := tl.lastID
	tl.walk(cb)
	tl.lastID = lastID
}

// walk visits the records after the last flushed one and advances the position
func (tl *TestLogger) walk(cb func(*logging.Record)) {
	show := tl.lastID == 0
	for n := tl.lbe.Head(); n != nil; n = n.Next() {
		if show {
			cb(n.Record)
			tl.lastID = n.Record.ID
		} else if n.Record.ID == tl.lastID {
			show = true
		}
	}
}

func (tl *TestLogger) dump(showStringFn func(args ...interface{})) {
	tl.walk(func(r *logging.Record) { showStringFn(r.Formatted(2)) })
}
