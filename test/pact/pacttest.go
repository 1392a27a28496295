//go:build pact
// +build pact

// Package pacttest holds the names, provider states and fixtures shared by the tracking
// portal consumer test and the orders API provider verification.
package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "borga-orders-api"
	ConsumerName = "tracking-portal"
)

// Provider states; the provider test seeds its in-memory stack for each.
const (
	StateOrdersBaseline = "orders baseline"
	StateOrderExists    = "order with id 1 exists"
	StateOrderMissing   = "no order with id 404"
)

const (
	ExistingOrderID int64 = 1
	MissingOrderID  int64 = 404
)

// PactDir is where consumer tests write contracts. PACT_DIR overrides the default
// <repo>/pacts so CI can publish from a shared volume.
func PactDir(t testing.TB) string {
	t.Helper()
	if dir := os.Getenv("PACT_DIR"); dir != "" {
		return ensureDir(t, dir)
	}
	return ensureDir(t, filepath.Join(repoRoot(t), "pacts"))
}

// PactFile is the contract between the tracking portal and the orders API.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir collects pact-go mock server logs under bin/.
func LogDir(t testing.TB) string {
	t.Helper()
	return ensureDir(t, filepath.Join(repoRoot(t), "bin", "pact-logs"))
}

// ExampleOrderPayload is a 20 kg custom milling order priced at the default base rate.
func ExampleOrderPayload() map[string]any {
	return map[string]any{
		"itemName":     "Gari",
		"millingStyle": "Fine",
		"weightKg":     20,
		"totalPrice":   60,
	}
}

func ensureDir(t testing.TB, dir string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create %s: %v", dir, err)
	}
	return dir
}

func repoRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("pact helpers cannot locate the repository root")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
