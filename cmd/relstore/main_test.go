package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testConfig = `
entities:
  - name: author
    fields:
      - name: name
        type: text
  - name: article
    fields:
      - name: title
        type: text
      - name: tags
        type: seq
        elem:
          type: text
      - name: author
        type: ref
        entity: author
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entities.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0o644); err != nil {
		t.Fatalf("Writing config failed: %v", err)
	}
	return path
}

func TestDDLCommand(t *testing.T) {
	configPath = writeTestConfig(t)
	dialect = "sqlite"
	defer func() { configPath = "" }()

	var out bytes.Buffer
	ddlCmd.SetOut(&out)
	if err := runDDL(ddlCmd, nil); err != nil {
		t.Fatalf("ddl command failed: %v", err)
	}

	sql := out.String()
	for _, want := range []string{`CREATE TABLE "author"`, `CREATE TABLE "article"`, `CREATE TABLE "article$tags"`} {
		if !strings.Contains(sql, want) {
			t.Errorf("Expected %s in output:\n%s", want, sql)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(sql), ";") {
		t.Error("Expected statements to be terminated")
	}
}

func TestDDLCommandRequiresConfig(t *testing.T) {
	configPath = ""
	if err := runDDL(ddlCmd, nil); err == nil {
		t.Error("Expected error without --config")
	}
}

func TestCreateCommandRequiresURL(t *testing.T) {
	configPath = writeTestConfig(t)
	dbURL = ""
	defer func() { configPath = "" }()

	if err := runCreate(createCmd, nil); err == nil {
		t.Error("Expected error without --db-url")
	}
}

func TestScript(t *testing.T) {
	got := script([]string{"CREATE TABLE a (x)", "CREATE INDEX i ON a (x)"})
	want := "CREATE TABLE a (x);\n\nCREATE INDEX i ON a (x);\n\n"
	if got != want {
		t.Errorf("Unexpected script:\n%q", got)
	}
}
