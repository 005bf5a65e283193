package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var validName = regexp.MustCompile(`^[a-z0-9_]+$`)

func main() {
	name := flag.String("name", "", "migration name, lowercase with underscores")
	dir := flag.String("dir", filepath.Join("db", "migrations"), "migrations directory")
	flag.Parse()

	if *name == "" {
		fatal("migration name is required")
	}
	if !validName.MatchString(*name) {
		fatal("migration name must be lowercase letters, digits and underscores", "name", *name)
	}

	version := time.Now().UTC().Format("20060102150405")
	base := fmt.Sprintf("%s_%s", version, *name)
	upPath := filepath.Join(*dir, base+".up.sql")
	downPath := filepath.Join(*dir, base+".down.sql")

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		fatal("create migrations dir", "error", err)
	}
	if err := writeFile(upPath, fmt.Sprintf("-- %s: up\nBEGIN;\n\nCOMMIT;\n", *name)); err != nil {
		fatal("create up migration", "error", err)
	}
	if err := writeFile(downPath, fmt.Sprintf("-- %s: down\nBEGIN;\n\nCOMMIT;\n", *name)); err != nil {
		fatal("create down migration", "error", err)
	}

	slog.Info("created migration", "up", upPath, "down", downPath)
}

func writeFile(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}
