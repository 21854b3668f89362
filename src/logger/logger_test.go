// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package logger_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/x509-cert-manager/src/logger"
)

type logLine struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func decodeLines(t *testing.T, data string) []logLine {
	t.Helper()
	var lines []logLine
	scanner := bufio.NewScanner(strings.NewReader(data))
	for scanner.Scan() {
		var line logLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line), "failed to parse JSON line %q", scanner.Text())
		lines = append(lines, line)
	}
	return lines
}

func TestCLILogger(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T, log *logger.CLILogger, buf *bytes.Buffer)
	}{
		{
			name: "Printf",
			testFunc: func(t *testing.T, log *logger.CLILogger, buf *bytes.Buffer) {
				log.Printf("imported %d entries", 3)
				assert.Equal(t, "imported 3 entries\n", buf.String())
			},
		},
		{
			name: "Println",
			testFunc: func(t *testing.T, log *logger.CLILogger, buf *bytes.Buffer) {
				log.Println("store", "opened")
				assert.Equal(t, "store opened\n", buf.String())
			},
		},
		{
			name: "Warnf",
			testFunc: func(t *testing.T, log *logger.CLILogger, buf *bytes.Buffer) {
				log.Warnf("skipping %s", "key1")
				assert.Equal(t, "warning: skipping key1\n", buf.String())
			},
		},
		{
			name: "SetOutput",
			testFunc: func(t *testing.T, log *logger.CLILogger, buf *bytes.Buffer) {
				var other bytes.Buffer
				log.Println("first")
				log.SetOutput(&other)
				log.Println("second")

				assert.Contains(t, buf.String(), "first")
				assert.NotContains(t, buf.String(), "second")
				assert.Contains(t, other.String(), "second")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := logger.NewCLILogger()
			log.SetOutput(&buf)
			tt.testFunc(t, log, &buf)
		})
	}
}

func TestJSONLogger(t *testing.T) {
	tests := []struct {
		name     string
		silent   bool
		log      func(l *logger.JSONLogger)
		expected []logLine
	}{
		{
			name:     "Printf",
			log:      func(l *logger.JSONLogger) { l.Printf("read %d objects", 2) },
			expected: []logLine{{Level: "info", Message: "read 2 objects"}},
		},
		{
			name:     "Println",
			log:      func(l *logger.JSONLogger) { l.Println("store", "ready") },
			expected: []logLine{{Level: "info", Message: "storeready"}},
		},
		{
			name:     "Warnf",
			log:      func(l *logger.JSONLogger) { l.Warnf("duplicate provider %q", "PEM") },
			expected: []logLine{{Level: "warn", Message: `duplicate provider "PEM"`}},
		},
		{
			name:   "Silent",
			silent: true,
			log: func(l *logger.JSONLogger) {
				l.Printf("hidden")
				l.Warnf("hidden")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := logger.NewJSONLogger(&buf, tt.silent)
			tt.log(l)
			assert.Equal(t, tt.expected, decodeLines(t, buf.String()))
		})
	}
}

func TestJSONLoggerSetOutputNil(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewJSONLogger(&buf, false)

	l.Println("before")
	l.SetOutput(nil)
	l.Println("after")

	assert.Contains(t, buf.String(), "before")
	assert.NotContains(t, buf.String(), "after")
}

func TestJSONLoggerConcurrent(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewJSONLogger(&buf, false)

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				l.Printf("worker %d message %d", w, i)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, decodeLines(t, buf.String()), workers*perWorker, "every line must stay intact")
}

func TestNop(t *testing.T) {
	l := logger.Nop()
	require.NotNil(t, l)
	assert.NotPanics(t, func() {
		l.Printf("x")
		l.Println("x")
		l.Warnf("x")
		l.SetOutput(nil)
	})
}
