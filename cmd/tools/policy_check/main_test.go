package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckReportsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte("profiles:\n  b:\n    target_markup: 30\n  a:\n    fee_rate: 15\n"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("profiles:\n  a:\n    fee_rate: 100\n"), 0o600))

	reported := map[string][]string{}
	var errs []error
	failed := check([]string{good, bad, filepath.Join(dir, "missing.yaml")}, func(path string, profiles []string, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		reported[path] = profiles
	})

	require.Equal(t, 2, failed)
	require.Len(t, errs, 2)
	require.Equal(t, []string{"a", "b"}, reported[good])
}

func TestCheckExamplePolicy(t *testing.T) {
	failed := check([]string{filepath.Join("..", "..", "..", "configs", "pricing.example.yaml")}, func(string, []string, error) {})
	require.Zero(t, failed)
}
