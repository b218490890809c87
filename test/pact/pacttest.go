//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "stock-ledger-api"
	ConsumerName = "pharmacy-portal"

	StateLedgerBaseline = "ledger baseline"
	StatePanadolInStock = "panadol in stock"
	StateOrderMissing   = "no order with the missing id"
)

const (
	StockedItem      = "panadol"
	StockedQuantity  = 30
	StockedExpiry    = "2026-01-01"
	MissingOrderID   = "5b1e0d6c-3f8a-4d7e-9a51-2c4b8e7f9a10"
	OverdrawQuantity = 100
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the pharmacy portal consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleBatchPayload is the batch the consumer receives into stock.
func ExampleBatchPayload() map[string]any {
	return map[string]any{
		"name":     StockedItem,
		"quantity": StockedQuantity,
		"expiry":   StockedExpiry,
	}
}

// ExampleOverdrawPayload withdraws more than the seeded stock.
func ExampleOverdrawPayload() map[string]any {
	return map[string]any{
		"name":     StockedItem,
		"quantity": OverdrawQuantity,
		"type":     "OUTGOING",
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
