package l402

import "testing"

// TestPackageDocsMinimal ensures the package compiles and provides a placeholder
// to satisfy the convention that each Go file has a corresponding _test.go.
// It intentionally performs no assertions.
func TestPackageDocsMinimal(t *testing.T) {
	// no-op
}
