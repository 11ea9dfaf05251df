package metric

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fixedCount int

func (c fixedCount) Count() int { return int(c) }

func TestCollector(t *testing.T) {
	c := NewCollector("memory", fixedCount(7))

	expected := `
# HELP ssess_storage_records Records currently held by the storage backend.
# TYPE ssess_storage_records gauge
ssess_storage_records{backend="memory"} 7
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected collector output: %v", err)
	}
}

func TestCollector_Register(t *testing.T) {
	r := NewRegistry()
	if err := r.Registerer().Register(NewCollector("memory", fixedCount(0))); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}
