// fixturegen writes synthetic beatmap sets for tests and demos.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/stepmix/varadero/internal/fixtures"
)

func main() {
	output := flag.String("output", "./testdata/beatmaps", "directory to write fixtures into")
	flag.Parse()

	manifest, err := fixtures.Generate(fixtures.Config{
		OutputDir:    *output,
		IncludeDense: true,
		IncludeHolds: true,
		IncludeRamp:  true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "fixturegen:", err)
		os.Exit(1)
	}
	for _, fx := range manifest.Fixtures {
		fmt.Printf("%-8s %dK %5.1f BPM  %s\n", fx.Type, fx.KeyCount, fx.BPM, fx.File)
	}
}
