package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadSchemaFromFS_Success(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/schema/0002_more.sql": {
			Data: []byte("CREATE TABLE IF NOT EXISTS test_b (id INT);"),
		},
		"sql/schema/0001_init.sql": {
			Data: []byte("CREATE TABLE IF NOT EXISTS test_a (id INT);"),
		},
	}

	steps, err := loadSchemaFromFS(fsys)
	if err != nil {
		t.Fatalf("loadSchemaFromFS failed: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].Order != 1 || steps[0].Name != "init" {
		t.Fatalf("unexpected first step: %+v", steps[0])
	}
	if steps[1].Order != 2 || steps[1].Name != "more" {
		t.Fatalf("unexpected second step: %+v", steps[1])
	}
}

func TestLoadSchemaFromFS_Embedded(t *testing.T) {
	t.Parallel()

	steps, err := loadSchemaFromFS(schemaFS)
	if err != nil {
		t.Fatalf("embedded schema must load: %v", err)
	}

	var all strings.Builder
	for _, step := range steps {
		if !strings.Contains(step.SQL, "IF NOT EXISTS") {
			t.Fatalf("schema step %d_%s must be idempotent", step.Order, step.Name)
		}
		all.WriteString(step.SQL)
	}
	for _, table := range []string{"users", "orders", "activity_log", "country_stock"} {
		if !strings.Contains(all.String(), "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("embedded schema does not create table %s", table)
		}
	}
}

func TestLoadSchemaFromFS_DuplicateOrder(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/schema/0001_a.sql": {Data: []byte("SELECT 1;")},
		"sql/schema/0001_b.sql": {Data: []byte("SELECT 2;")},
	}

	_, err := loadSchemaFromFS(fsys)
	if err == nil || !strings.Contains(err.Error(), "duplicate schema order") {
		t.Fatalf("expected duplicate order error, got %v", err)
	}
}

func TestLoadSchemaFromFS_InvalidFilename(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/schema/not_a_schema.sql": {Data: []byte("SELECT 1;")},
	}

	if _, err := loadSchemaFromFS(fsys); err == nil {
		t.Fatal("expected error for invalid schema file name")
	}
}

func TestLoadSchemaFromFS_EmptyFile(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/schema/0001_init.sql": {Data: []byte("   \n")},
	}

	if _, err := loadSchemaFromFS(fsys); err == nil {
		t.Fatal("expected error for empty schema file body")
	}
}

func TestLoadSchemaFromFS_NoFiles(t *testing.T) {
	t.Parallel()

	if _, err := loadSchemaFromFS(fstest.MapFS{}); err == nil {
		t.Fatal("expected error when no schema files exist")
	}
}

func TestLoadSchemaFromFS_CatalogIndexMatchesListOrder(t *testing.T) {
	t.Parallel()

	steps, err := loadSchemaFromFS(schemaFS)
	if err != nil {
		t.Fatalf("embedded schema must load: %v", err)
	}

	for _, step := range steps {
		if step.Name != "country_stock" {
			continue
		}
		if !strings.Contains(step.SQL, "("+stockListOrder+")") {
			t.Fatalf("catalog index must use list order %q:\n%s", stockListOrder, step.SQL)
		}
		return
	}
	t.Fatal("country_stock schema step not found")
}
