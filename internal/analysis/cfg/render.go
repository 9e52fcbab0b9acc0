package cfg

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// RenderToGraphVizFile writes dot to filename. Files ending in .dot or .gv
// (or without extension) receive the DOT source; any other extension is
// passed to the GraphViz dot tool as output format.
func RenderToGraphVizFile(dot []byte, filename string) error {
	format := strings.TrimPrefix(filepath.Ext(filename), ".")
	switch format {
	case "", "dot", "gv":
		return os.WriteFile(filename, dot, 0o644)
	}

	cmd := exec.Command("dot", "-T"+format, "-o", filename)
	cmd.Stdin = bytes.NewReader(dot)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("rendering %s: %w: %s", filename, err, strings.TrimSpace(string(out)))
	}
	return nil
}
