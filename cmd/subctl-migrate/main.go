// Command subctl-migrate runs the sqlite integrity checks over an existing
// data directory before an upgrade, mirroring the teacher's migration CLI's
// per-module dry-run/verify-only flag shape.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sublarr/subctl/internal/persistence/sqlite"
)

var databases = []string{"sublarr.sqlite"}

func main() {
	var (
		dataDir = flag.String("dir", ".", "Base data directory")
		full    = flag.Bool("full", false, "Run PRAGMA integrity_check instead of quick_check")
	)
	flag.Parse()

	if *dataDir == "" {
		fmt.Println("Error: --dir is required")
		os.Exit(1)
	}

	mode := "quick"
	if *full {
		mode = "full"
	}

	fmt.Printf("Verifying databases under %s (mode=%s)\n", *dataDir, mode)

	failed := false
	for _, name := range databases {
		path := filepath.Join(*dataDir, name)
		if err := verifyOne(path, mode); err != nil {
			fmt.Printf("FAIL %s: %v\n", name, err)
			failed = true
			continue
		}
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("All databases OK.")
}

func verifyOne(path, mode string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("skip %s: not found\n", path)
		return nil
	}

	problems, err := sqlite.VerifyIntegrity(path, mode)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d integrity problem(s): %v", len(problems), problems)
	}
	return nil
}
