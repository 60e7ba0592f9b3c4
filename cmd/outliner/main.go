package main

import (
	"os"
	"path/filepath"
	"strings"

	"outliner-cli/internal/cli"
)

func isOutlineFile(s string) bool {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(s))) {
	case ".opml", ".ooutline":
		return true
	}
	return false
}

// rewriteDirectFileArgs makes `outliner plans.opml` behave like
// `outliner show plans.opml`. Cobra treats the first positional token as a
// subcommand, so argv is rewritten before parsing. Persistent flags may come
// first, so the first positional token is searched for.
func rewriteDirectFileArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}
	valueFlags := map[string]bool{
		"--config-dir": true,
		"--format":     true,
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isOutlineFile(argv[i+1]) {
				return insertShow(argv, i+1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		if isOutlineFile(a) {
			return insertShow(argv, i)
		}
		return argv
	}
	return argv
}

func insertShow(argv []string, i int) []string {
	out := make([]string, 0, len(argv)+1)
	out = append(out, argv[:i]...)
	out = append(out, "show")
	return append(out, argv[i:]...)
}

func main() {
	os.Args = rewriteDirectFileArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
