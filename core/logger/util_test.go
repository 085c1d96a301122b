package logger

import (
	"errors"
	"testing"
	"time"
)

func TestStatus(t *testing.T) {
	if Status(nil) != "ok" || Status(errors.New("x")) != "fail" {
		t.Fatalf("unexpected status mapping")
	}
}

func TestRoundMS(t *testing.T) {
	if got := RoundMS(1499 * time.Microsecond); got != time.Millisecond {
		t.Fatalf("RoundMS = %v", got)
	}
	if got := RoundMS(-time.Second); got != 0 {
		t.Fatalf("negative RoundMS = %v", got)
	}
}

func TestSummarizeStrings(t *testing.T) {
	got, more := SummarizeStrings([]string{"001_roster.up.sql", "002_index.up.sql", "003_x.up.sql"}, 2)
	if got != "001_roster.up.sql, 002_index.up.sql" || !more {
		t.Fatalf("SummarizeStrings = %q, %v", got, more)
	}
	if _, more := SummarizeStrings(nil, 0); more {
		t.Fatalf("empty input reported truncation")
	}
}
