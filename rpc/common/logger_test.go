package common

import (
	"bytes"
	"github.com/lni/dragonboat/v4/logger"
	"log"
	"strings"
	"sync"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newCrundLogger("test", log.New(&buf, "", 0))

	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown 2") {
		t.Errorf("Expected only the info message at level info, got %q", out)
	}

	buf.Reset()
	l.SetLevel(logger.ERROR)
	l.Warningf("warn")
	l.Errorf("boom")
	if out := buf.String(); strings.Contains(out, "warn") || !strings.Contains(out, "ERROR | test") {
		t.Errorf("Expected only the error message at level error, got %q", out)
	}
}

func TestLoggerSetLevelWhileLogging(t *testing.T) {
	var buf bytes.Buffer
	l := newCrundLogger("test", log.New(&buf, "", 0))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				l.Debugf("request %d", j)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if j%2 == 0 {
					l.SetLevel(logger.WARNING)
				} else {
					l.SetLevel(logger.ERROR)
				}
			}
		}()
	}
	wg.Wait()

	if buf.Len() != 0 {
		t.Errorf("Expected no debug output above level debug, got %q", buf.String())
	}
}

func TestInitLoggers(t *testing.T) {
	if err := InitLoggers("bogus"); err == nil {
		t.Errorf("Expected an error for an invalid level")
	}
	for _, level := range []string{"debug", "info", "", "warn", "warning", "error"} {
		if err := InitLoggers(level); err != nil {
			t.Errorf("InitLoggers(%q) failed: %v", level, err)
		}
	}
	if err := InitLoggers("warning"); err != nil {
		t.Fatalf("InitLoggers failed: %v", err)
	}
}
