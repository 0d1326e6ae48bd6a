package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "warn")

	log.Debugf("debug message")
	log.Infof("info message")
	log.Warnf("warn message")
	log.Errorf("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below warn should be filtered: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("warn and error messages should be logged: %s", out)
	}
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "bogus")

	log.Debugf("hidden")
	log.Infof("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug should be filtered at default info level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("info should be logged at default info level")
	}
}

func TestNilWriterDiscards(t *testing.T) {
	log := NewConsoleLogger(nil, "info")
	// Must not panic.
	log.Infof("dropped")
	log.Errorf("dropped too")
}

func TestTimestampPrefix(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "info")

	log.Infof("hello")

	out := buf.String()
	if !strings.HasPrefix(out, "[") || !strings.Contains(out, "] hello") {
		t.Errorf("expected [HH:MM:SS] prefix, got %q", out)
	}
}

func TestNoColorForNonTerminalWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "info")

	log.Warnf("plain")

	if strings.Contains(buf.String(), "\x1b[") {
		t.Errorf("expected no ANSI codes for buffer writer: %q", buf.String())
	}
}

func TestConcurrentLogging(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			log.Infof("message %d", i)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Errorf("expected 20 whole lines, got %d", len(lines))
	}
}
