package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spacefoot/pricer/internal/policy"
)

// policyCheck validates pricing policy files before they are deployed.
// Exit code 0 = ok, 1 = invalid policy, 2 = other error.
func main() {
	paths := os.Args[1:]
	if len(paths) == 0 {
		matches, err := filepath.Glob("configs/*.yaml")
		if err != nil {
			fmt.Fprintf(os.Stderr, "policy_check error: %v\n", err)
			os.Exit(2)
		}
		paths = matches
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "policy_check error: no policy files")
		os.Exit(2)
	}

	failed := check(paths, func(path string, profiles []string, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "INVALID: %s: %v\n", path, err)
			return
		}
		fmt.Printf("%s: %d profiles %v\n", path, len(profiles), profiles)
	})
	if failed > 0 {
		os.Exit(1)
	}
	fmt.Println("policy_check: OK")
}

func check(paths []string, report func(path string, profiles []string, err error)) int {
	failed := 0
	for _, path := range paths {
		f, err := policy.LoadAndValidate(path)
		if err != nil {
			failed++
			report(path, nil, err)
			continue
		}
		names := make([]string, 0, len(f.Profiles))
		for name := range f.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)
		report(path, names, nil)
	}
	return failed
}
