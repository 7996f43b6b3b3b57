// jsavrs translates textual IR modules to x86-64 assembly and optionally
// drives the platform assembler and linker over the result.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xyproto/env/v2"

	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/abi"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/diag"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/ir"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/toolchain"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/translate"
)

const version = "0.3.0"

func main() {
	start := time.Now()
	code := run()
	if code == 0 && verbose {
		fmt.Printf("Total time: %s\n", time.Since(start))
	}
	os.Exit(code)
}

var verbose bool

func run() int {
	var (
		targetName  = flag.String("target", env.Str("JSAVRS_TARGET", abi.Host().Name), "calling convention (sysv or win64)")
		emitMap     = flag.Bool("map", false, "write the IR position mapping next to the assembly")
		asmOnly     = flag.Bool("S", false, "stop after writing assembly")
		objOnly     = flag.Bool("c", false, "stop after assembling the object file")
		outName     = flag.String("o", "", "base name for build artifacts (default: source file name)")
		buildDir    = flag.String("d", "build", "build directory")
		noTrap      = flag.Bool("no-trap", false, "emit nothing for unreachable terminators instead of ud2")
		verboseFlag = flag.Bool("v", false, "verbose output")
	)
	flag.Parse()
	verbose = *verboseFlag

	p := diag.NewPrinter()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: jsavrs [flags] <file.ir>\n")
		flag.PrintDefaults()
		return 2
	}
	srcPath := flag.Arg(0)

	spec, err := abi.Lookup(*targetName)
	if err != nil {
		p.Errorf("%s", err)
		return 2
	}

	src, err := os.ReadFile(srcPath)
	if err != nil {
		p.Errorf("cannot read %s: %s", srcPath, err)
		return 1
	}

	if verbose {
		p.Debugf("jsavrs %s, target %s (%s syntax)", version, spec.Name, syntaxName(spec))
	}

	mod, err := ir.ParseModule(string(src))
	if err != nil {
		p.Errorf("%s: %s", srcPath, err)
		return 1
	}
	if mod.Name == "" {
		mod.Name = baseName(srcPath)
	}
	if verbose {
		p.Debugf("parsed module:\n%s", mod.DebugDump())
	}

	cfg := translate.DefaultConfig()
	cfg.ABI = spec
	cfg.EmitMapping = *emitMap
	cfg.UnreachableTrap = !*noTrap && env.Str("JSAVRS_UNREACHABLE", "trap") != "nop"

	out, err := translate.Module(mod, cfg)
	if err != nil {
		p.Errorf("%s", err)
		return 1
	}

	base := *outName
	if base == "" {
		base = baseName(srcPath)
	}
	if err := os.MkdirAll(*buildDir, 0o755); err != nil {
		p.Errorf("cannot create build directory: %s", err)
		return 1
	}

	tc := toolchain.New(spec, *buildDir, base)
	tc.Verbose = verbose
	if spec == abi.Win64 {
		nasm, golink, err := toolchain.EnsureWindowsTools(verbose)
		if err != nil {
			p.Warnf("%s", err)
		} else {
			tc.NASMPath, tc.GoLinkPath = nasm, golink
		}
	}

	if err := tc.WriteAssembly(out.Text); err != nil {
		p.Errorf("%s", err)
		return 1
	}
	if *emitMap {
		if err := tc.WriteMapping(out.Mapping); err != nil {
			p.Errorf("%s", err)
			return 1
		}
	}
	fmt.Printf("Assembly: %s\n", tc.AsmFile)
	if *asmOnly {
		return 0
	}

	if missing := toolchain.DetectWithPaths(spec, tc.NASMPath, tc.GoLinkPath); len(missing) > 0 {
		p.Errorf("missing tools: %s", strings.Join(missing, ", "))
		return 1
	}

	if err := tc.Assemble(); err != nil {
		p.Errorf("%s", err)
		return 1
	}
	fmt.Printf("Object:   %s\n", tc.ObjFile)
	if *objOnly {
		return 0
	}

	if err := tc.Link(); err != nil {
		p.Errorf("%s", err)
		return 1
	}
	fmt.Printf("Binary:   %s\n", tc.ExeFile)
	return 0
}

func syntaxName(spec *abi.Spec) string {
	if spec.Syntax == abi.Intel {
		return "intel"
	}
	return "att"
}

func baseName(path string) string {
	b := filepath.Base(path)
	return strings.TrimSuffix(b, filepath.Ext(b))
}
