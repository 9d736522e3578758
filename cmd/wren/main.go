// Command wren runs a Wren script.
//
//	wren [flags] [script.wren]
//
// Without a script argument the entry of the nearest wren.toml is run.
// Imports are searched next to the script, then in the manifest's module
// directories, then in the module database.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/aspect-build/aspect-cli/wren/diag"
	"github.com/aspect-build/aspect-cli/wren/loader"
	"github.com/aspect-build/aspect-cli/wren/manifest"
	"github.com/aspect-build/aspect-cli/wren/wren"
)

var log = commonlog.GetLogger("wren.cli")

// Exit codes follow sysexits.h, as the Wren command line does.
const (
	exitOK      = 0
	exitUsage   = 64
	exitCompile = 65
	exitNoInput = 66
	exitRuntime = 70
	exitConfig  = 78
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("wren", flag.ContinueOnError)
	fs.SetOutput(stderr)
	verbosity := fs.Int("v", 0, "Log verbosity (1 info, 2 debug)")
	dir := fs.String("C", ".", "Directory to search upwards for "+manifest.FileName)
	modulesDB := fs.String("modules-db", "", "SQLite module database (overrides the manifest)")
	importDir := fs.String("import", "", "Store the modules below this directory in the module database before running")
	diagOut := fs.String("diag-out", "", "Write diagnostics as CBOR to this file (overrides the manifest)")
	gcStats := fs.Bool("gc-stats", false, "Print heap statistics after the run")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: wren [flags] [script.wren]\n\nWren %s\n\nFlags:\n", wren.VersionString)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	commonlog.Configure(*verbosity, nil)

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitConfig
	}

	script := fs.Arg(0)
	if script == "" && m != nil {
		script = m.EntryPath()
	}
	if script == "" {
		fs.Usage()
		return exitUsage
	}
	src, err := os.ReadFile(script)
	if err != nil {
		fmt.Fprintf(stderr, "Could not find file \"%s\".\n", script)
		return exitNoInput
	}

	cfg := wren.DefaultConfig()
	if m != nil {
		m.Apply(&cfg)
		log.Debugf("using manifest %s", filepath.Join(m.Dir, manifest.FileName))
	}
	cfg.WriteFn = func(_ *wren.VM, text string) { io.WriteString(stdout, text) }
	rec := diag.NewRecorder(stderr)
	cfg.ErrorFn = rec.ErrorFn()

	sources := loader.Chain{loader.Dir{Root: filepath.Dir(script)}}
	if m != nil {
		sources = append(sources, loader.Dirs(m.ModuleDirPaths()...)...)
	}
	dbPath := *modulesDB
	if dbPath == "" && m != nil {
		dbPath = m.DatabasePath()
	}
	if dbPath != "" {
		store, err := loader.OpenSQLite(dbPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitConfig
		}
		defer store.Close()
		if *importDir != "" {
			if _, err := store.ImportDir(*importDir); err != nil {
				fmt.Fprintln(stderr, err)
				return exitNoInput
			}
		}
		sources = append(sources, store)
	} else if *importDir != "" {
		fmt.Fprintln(stderr, "-import needs a module database")
		return exitUsage
	}
	l := loader.New(sources)
	l.Install(&cfg)

	module := strings.TrimSuffix(filepath.Base(script), loader.Ext)
	var res wren.InterpretResult
	var stats wren.HeapStats
	err = wren.Run(context.Background(), &cfg, func(vm *wren.VM) error {
		var err error
		res, err = vm.Interpret(module, string(src))
		stats = vm.HeapStats()
		return err
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitRuntime
	}
	if err := l.Err(); err != nil {
		fmt.Fprintln(stderr, err)
	}

	if *gcStats {
		fmt.Fprintf(stderr, "gc: %d collections, %d bytes allocated, next at %d, %d foreign objects, %d arena bytes\n",
			stats.Collections, stats.BytesAllocated, stats.NextGC, stats.ForeignObjects, stats.ArenaInUse)
	}

	out := *diagOut
	if out == "" && m != nil {
		out = m.CBOROutputPath()
	}
	if out != "" {
		if err := diag.WriteFile(out, rec.Log(script, res)); err != nil {
			fmt.Fprintln(stderr, err)
		}
	}

	switch res {
	case wren.ResultCompileError:
		return exitCompile
	case wren.ResultRuntimeError:
		return exitRuntime
	}
	return exitOK
}
