// Package toolchain drives the external assembler and linker over the
// generated assembly: GNU as and ld for System V targets, NASM and
// GoLink/link.exe for Win64.
package toolchain

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/abi"
	"github.com/Giuseppe-Bianc/jsavrs-sub003/internal/translate"
)

// ---------------------------------------------------------------------------
// Toolchain — assembler + linker invocation per calling convention
// ---------------------------------------------------------------------------

// Toolchain holds the file plan and external program choices for one build.
type Toolchain struct {
	Spec       *abi.Spec
	BuildDir   string
	AsmFile    string // path to the assembly file
	ObjFile    string // path to the object file
	ExeFile    string // path to the final executable
	Verbose    bool
	NASMPath   string // custom NASM path (auto-downloaded on Windows)
	GoLinkPath string // custom GoLink path (auto-downloaded on Windows)
}

// New creates a Toolchain for the given convention and build directory.
func New(spec *abi.Spec, buildDir, baseName string) *Toolchain {
	return &Toolchain{
		Spec:     spec,
		BuildDir: buildDir,
		AsmFile:  filepath.Join(buildDir, baseName+asmExt(spec)),
		ObjFile:  filepath.Join(buildDir, baseName+objExt(spec)),
		ExeFile:  filepath.Join(buildDir, baseName+exeExt(spec)),
	}
}

func asmExt(spec *abi.Spec) string {
	if spec.Syntax == abi.Intel {
		return ".asm"
	}
	return ".s"
}

func objExt(spec *abi.Spec) string {
	if spec == abi.Win64 {
		return ".obj"
	}
	return ".o"
}

func exeExt(spec *abi.Spec) string {
	if spec == abi.Win64 {
		return ".exe"
	}
	return ""
}

// WriteAssembly writes the assembly text to the .s/.asm file.
func (tc *Toolchain) WriteAssembly(text string) error {
	if err := os.WriteFile(tc.AsmFile, []byte(text), 0644); err != nil {
		return &translate.Error{
			Kind:      translate.ErrAssemblerFailure,
			Construct: "write " + tc.AsmFile,
			Err:       err,
		}
	}
	return nil
}

// WriteMapping writes the position side file next to the assembly.
func (tc *Toolchain) WriteMapping(text string) error {
	path := tc.AsmFile + ".map"
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return &translate.Error{
			Kind:      translate.ErrAssemblerFailure,
			Construct: "write " + path,
			Err:       err,
		}
	}
	return nil
}

// Assemble invokes the assembler matching the convention's dialect.
func (tc *Toolchain) Assemble() error {
	if tc.Spec.Syntax == abi.Intel {
		return tc.assembleNASM()
	}
	return tc.assembleGAS()
}

// Link produces the final executable.
func (tc *Toolchain) Link() error {
	if tc.Spec == abi.Win64 {
		return tc.linkWindows()
	}
	if runtime.GOOS == "darwin" {
		return tc.linkDarwin()
	}
	return tc.linkELF()
}

// ---------------------------------------------------------------------------
// Assembler backends
// ---------------------------------------------------------------------------

func (tc *Toolchain) assembleGAS() error {
	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		cmd = exec.Command("as", "-arch", "x86_64", "-o", tc.ObjFile, tc.AsmFile)
	} else {
		cmd = exec.Command("as", "--64", "-o", tc.ObjFile, tc.AsmFile)
	}
	return tc.runCmd(cmd, "assemble")
}

func (tc *Toolchain) assembleNASM() error {
	nasmBin := "nasm"
	if tc.NASMPath != "" {
		nasmBin = tc.NASMPath
	}
	cmd := exec.Command(nasmBin, "-f", "win64", "-o", tc.ObjFile, tc.AsmFile)
	return tc.runCmd(cmd, "assemble (nasm)")
}

// ---------------------------------------------------------------------------
// Linker backends
// ---------------------------------------------------------------------------

func (tc *Toolchain) linkELF() error {
	cmd := exec.Command("ld", "-o", tc.ExeFile, tc.ObjFile)
	return tc.runCmd(cmd, "link")
}

func (tc *Toolchain) linkDarwin() error {
	// The macOS linker needs the SDK sysroot for libSystem.
	args := []string{"-o", tc.ExeFile, "-e", "_main", "-arch", "x86_64"}
	if sdk, err := findMacOSSDK(); err == nil && sdk != "" {
		args = append(args, "-L"+sdk+"/usr/lib")
	}
	args = append(args, "-lSystem", tc.ObjFile)
	cmd := exec.Command("ld", args...)
	return tc.runCmd(cmd, "link")
}

func (tc *Toolchain) linkWindows() error {
	// Try GoLink first, then MSVC link.exe.
	golinkBin := ""
	if tc.GoLinkPath != "" {
		golinkBin = tc.GoLinkPath
	} else if p, err := exec.LookPath("golink"); err == nil {
		golinkBin = p
	}

	if golinkBin != "" {
		cmd := exec.Command(golinkBin, "/entry", "main", "/console",
			tc.ObjFile, "kernel32.dll", "msvcrt.dll")
		return tc.runCmd(cmd, "link (golink)")
	}

	if link, err := exec.LookPath("link"); err == nil {
		cmd := exec.Command(link,
			"/ENTRY:main",
			"/SUBSYSTEM:CONSOLE",
			fmt.Sprintf("/OUT:%s", tc.ExeFile),
			tc.ObjFile,
			"kernel32.lib", "msvcrt.lib",
		)
		return tc.runCmd(cmd, "link (msvc)")
	}

	return &translate.Error{
		Kind:      translate.ErrAssemblerFailure,
		Construct: "link",
		Err:       fmt.Errorf("no suitable linker found for Windows (tried golink, link.exe)"),
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (tc *Toolchain) runCmd(cmd *exec.Cmd, stage string) error {
	if tc.Verbose {
		fmt.Printf("[toolchain] %s: %s\n", stage, strings.Join(cmd.Args, " "))
	}

	var stderr strings.Builder
	cmd.Stderr = &stderr
	cmd.Stdout = os.Stdout

	if err := cmd.Run(); err != nil {
		return &translate.Error{
			Kind:      translate.ErrAssemblerFailure,
			Construct: stage,
			Err:       fmt.Errorf("%v\n%s", err, stderr.String()),
		}
	}
	return nil
}

func findMacOSSDK() (string, error) {
	if runtime.GOOS != "darwin" {
		return "", fmt.Errorf("not on macOS")
	}
	out, err := exec.Command("xcrun", "--show-sdk-path").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Detect reports which external tools are missing for the convention.
func Detect(spec *abi.Spec) []string {
	return DetectWithPaths(spec, "", "")
}

// DetectWithPaths checks for tools using custom paths for NASM/GoLink.
func DetectWithPaths(spec *abi.Spec, nasmPath, golinkPath string) []string {
	var missing []string

	if spec.Syntax == abi.Intel {
		if nasmPath != "" {
			if _, err := os.Stat(nasmPath); err != nil {
				missing = append(missing, "nasm")
			}
		} else if _, err := exec.LookPath("nasm"); err != nil {
			missing = append(missing, "nasm")
		}
	} else {
		if _, err := exec.LookPath("as"); err != nil {
			missing = append(missing, "as (assembler)")
		}
	}

	if spec == abi.Win64 {
		hasLinker := false
		if golinkPath != "" {
			if _, err := os.Stat(golinkPath); err == nil {
				hasLinker = true
			}
		}
		if !hasLinker {
			for _, l := range []string{"golink", "link"} {
				if _, err := exec.LookPath(l); err == nil {
					hasLinker = true
					break
				}
			}
		}
		if !hasLinker {
			missing = append(missing, "golink or link.exe (linker)")
		}
	} else if _, err := exec.LookPath("ld"); err != nil {
		missing = append(missing, "ld (linker)")
	}

	return missing
}
