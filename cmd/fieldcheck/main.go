// cmd/fieldcheck validates a field definitions file or package before it is
// deployed.
//
// Checks:
// - the definitions unify with the #Config schema (types, defaults, enums)
// - every field uses a selection handler the server registers
// - every path rule expression compiles
// - lint warnings from config.Lint (missing trigger elements and the like)
//
// Usage:
//
//	fieldcheck [-strict] [path]
//
// path defaults to $FIELDS_FILE, then fields.cue. With -strict lint warnings
// fail the check.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/matthewbaird/parentref/internal/config"
	"github.com/matthewbaird/parentref/internal/lookup"
	"github.com/matthewbaird/parentref/internal/parentpath"
	"github.com/matthewbaird/parentref/internal/types"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("fieldcheck: ")

	strict := flag.Bool("strict", false, "treat lint warnings as errors")
	flag.Parse()

	path := flag.Arg(0)
	if path == "" {
		path = os.Getenv("FIELDS_FILE")
	}
	if path == "" {
		path = "fields.cue"
	}

	// Phase 1: schema
	fmt.Printf("Phase 1: Loading %s...\n", path)
	cfg, err := config.LoadFile(path)
	if err != nil {
		log.Fatalf("definitions do not validate:\n%v", err)
	}
	fields := 0
	for _, f := range cfg.Forms {
		fields += len(f.Fields)
	}
	fmt.Printf("  %d forms, %d fields, %d seed records.\n", len(cfg.Forms), fields, len(cfg.Records))

	// Phase 2: handlers and path rules
	fmt.Println("Phase 2: Checking handlers and path rules...")
	reg := lookup.NewRegistry()
	reg.Register(lookup.HandlerParentFieldReference, func(types.SelectionSettings) (lookup.Provider, error) {
		return nil, fmt.Errorf("not available offline")
	})
	if err := cfg.CheckHandlers(reg); err != nil {
		log.Fatal(err)
	}
	rules := cfg.PathRules()
	if _, err := parentpath.NewExprAlterer(rules); err != nil {
		log.Fatalf("path rules: %v", err)
	}
	fmt.Printf("  %d handlers, %d path rules OK.\n", len(cfg.Handlers()), len(rules))

	// Phase 3: lint
	fmt.Println("Phase 3: Lint...")
	problems := cfg.Lint()
	for _, p := range problems {
		fmt.Printf("  WARNING: %s\n", p)
	}
	if len(problems) > 0 && *strict {
		log.Fatalf("%d lint warnings", len(problems))
	}

	fmt.Println("\nfieldcheck: OK")
}
