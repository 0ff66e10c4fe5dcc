package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/lib/pq"
)

func TestDescribe(t *testing.T) {
	err := describe(&pq.Error{Code: "42P01", Message: `relation "builds" does not exist`})
	if !strings.Contains(err.Error(), "42P01 (undefined_table)") {
		t.Errorf("describe() = %q, want the SQLSTATE and its name", err)
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		t.Error("describe() lost the driver error")
	}

	plain := errors.New("connection refused")
	if got := describe(plain); got != plain {
		t.Errorf("describe(plain) = %v, want it unchanged", got)
	}
}
