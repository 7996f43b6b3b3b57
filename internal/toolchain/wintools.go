package toolchain

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ---------------------------------------------------------------------------
// Windows toolchain auto-download
//
// A Windows host missing NASM or GoLink gets the tool fetched into
// ~/.jsavrs/tools/ on first use.  Everywhere else the tools must come from
// PATH; nothing is downloaded.
// ---------------------------------------------------------------------------

const (
	nasmURL   = "https://www.nasm.us/pub/nasm/releasebuilds/2.16.03/win64/nasm-2.16.03-win64.zip"
	golinkURL = "https://www.godevtool.com/Golink.zip"
)

func toolsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".jsavrs", "tools")
}

// EnsureWindowsTools returns usable NASM and GoLink paths, downloading
// either tool on a Windows host that lacks it.
func EnsureWindowsTools(verbose bool) (string, string, error) {
	if runtime.GOOS != "windows" {
		return "nasm", "golink", nil
	}
	dir := toolsDir()
	nasm, err := ensureTool("nasm", nasmURL, dir, verbose)
	if err != nil {
		return "", "", err
	}
	golink, err := ensureTool("golink", golinkURL, dir, verbose)
	if err != nil {
		return "", "", err
	}
	return nasm, golink, nil
}

// ensureTool resolves one tool: PATH first, then a previous download, then a
// fresh fetch.  The NASM zip nests its files in a versioned subdirectory, so
// the unpacked tree is searched rather than addressed directly.
func ensureTool(name, url, dir string, verbose bool) (string, error) {
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	sub := filepath.Join(dir, name)
	if p, ok := findExe(sub, name+".exe"); ok {
		return p, nil
	}
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", fmt.Errorf("cannot create tools directory %s: %w", sub, err)
	}
	if verbose {
		fmt.Printf("[toolchain] %s not found, downloading %s\n", name, url)
	}
	zipPath := filepath.Join(dir, name+".zip")
	if err := fetch(url, zipPath); err != nil {
		return "", fmt.Errorf("cannot download %s: %w", name, err)
	}
	defer os.Remove(zipPath)
	if err := unzip(zipPath, sub); err != nil {
		return "", fmt.Errorf("cannot extract %s: %w", name, err)
	}
	p, ok := findExe(sub, name+".exe")
	if !ok {
		return "", fmt.Errorf("%s.exe missing after extracting %s", name, url)
	}
	if verbose {
		fmt.Printf("[toolchain] %s installed to %s\n", name, p)
	}
	return p, nil
}

// findExe walks dir for a file named name, case-insensitively (the GoLink
// zip ships GoLink.exe).
func findExe(dir, name string) (string, bool) {
	var found string
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && strings.EqualFold(info.Name(), name) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found, found != ""
}

func fetch(url, dest string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, resp.Body)
	return err
}

func unzip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	root := filepath.Clean(dest)
	for _, f := range r.File {
		path := filepath.Join(root, f.Name)
		if path != root && !strings.HasPrefix(path, root+string(os.PathSeparator)) {
			continue // entry escapes the destination
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, path); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, rc); err != nil {
		return err
	}
	return nil
}
