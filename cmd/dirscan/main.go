// Command dirscan runs a single scan pass over a directory, printing added,
// changed and removed paths. It is intentionally thin: flag parsing and
// wiring only, with every actual decision made by the porcelain.Scanner it
// constructs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/flanksource/commons/logger"

	"github.com/jwiegley/dirscan/config"
	"github.com/jwiegley/dirscan/constants"
	"github.com/jwiegley/dirscan/plumbing"
	"github.com/jwiegley/dirscan/porcelain"
	"github.com/jwiegley/dirscan/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scan":
		runScan(os.Args[2:])
	case "config":
		runConfig(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "dirscan: %q is not a dirscan command.\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: dirscan <scan|config> [<args>]")
}

func runScan(args []string) {
	fls := flag.NewFlagSet("scan", flag.ExitOnError)
	dir := fls.String("dir", ".", "directory to scan")
	days := fls.Float64("days", 0, "age limit in days; 0 disables")
	maxSize := fls.String("max-size", "", "aggregate size limit in bytes, or a percentage like \"20%\" of volume capacity; empty disables")
	depth := fls.Int("depth", plumbing.UnboundedDepth, "recursion depth: 0 enumerates only dir's direct children, N descends N levels, -1 recurses without limit (default)")
	useChecksum := fls.Bool("checksum", false, "recompute a SHA-1 checksum when mtime changes")
	minimalScan := fls.Bool("minimal", false, "skip directories whose mtime hasn't moved")
	dryRun := fls.Bool("dry-run", false, "report what would happen without deleting anything")
	fls.Parse(args)

	opts := porcelain.Options{
		Directory:   *dir,
		Days:        *days,
		MaxSize:     *maxSize,
		Depth:       *depth,
		UseChecksum: *useChecksum,
		MinimalScan: *minimalScan,
		Removal:     types.RemovalOptions{DryRun: *dryRun},
		Hooks: types.HookSet{
			OnAdded:     types.NewFuncHook(logHook("added", constants.GreenColor)),
			OnChanged:   types.NewFuncHook(logHook("changed", constants.BoldColor)),
			OnRemoved:   types.NewFuncHook(logHook("removed", constants.RedColor)),
			OnPastLimit: types.NewPastLimitFuncHook(pastLimitHook("evicted", constants.RedColor)),
		},
	}

	cfgPath := *dir + "/" + config.FileName
	if defaults, err := config.Load(cfgPath); err == nil {
		config.Apply(&opts, defaults)
	}

	scanner := porcelain.NewScanner(opts)
	if err := scanner.Run(context.Background()); err != nil {
		logger.Errorf("scan failed: %v", err)
		os.Exit(1)
	}
}

func logHook(verb, color string) func(context.Context, string) (bool, error) {
	return func(_ context.Context, path string) (bool, error) {
		fmt.Printf("%s%s%s: %s\n", color, verb, constants.ResetColor, path)
		return true, nil
	}
}

func pastLimitHook(verb, color string) func(context.Context, string, float64) (bool, error) {
	return func(_ context.Context, path string, ageDays float64) (bool, error) {
		fmt.Printf("%s%s%s: %s (%.1f days old)\n", color, verb, constants.ResetColor, path, ageDays)
		return true, nil
	}
}

func runConfig(args []string) {
	fls := flag.NewFlagSet("config", flag.ExitOnError)
	dir := fls.String("dir", ".", "directory whose profile to edit")
	fls.Parse(args)

	pos := fls.Args()
	cfgPath := *dir + "/" + config.FileName

	if len(pos) == 0 {
		defaults, err := config.Load(cfgPath)
		if err != nil {
			logger.Errorf("loading config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("%+v\n", defaults)
		return
	}

	fmt.Fprintln(os.Stderr, "usage: dirscan config [-dir <path>]")
	os.Exit(1)
}
