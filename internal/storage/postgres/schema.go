package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	schemaGlob    = "sql/schema/*.sql"
	schemaLockKey = int64(20240611)
)

var (
	//go:embed sql/schema/*.sql
	schemaFS embed.FS

	schemaFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_]+)\.sql$`)
)

// schemaStep - один идемпотентный DDL-файл (CREATE ... IF NOT EXISTS).
type schemaStep struct {
	Order int64
	Name  string
	SQL   string
}

// EnsureSchema создаёт таблицы и индексы, если их ещё нет.
// Версионирования и отката нет: каждый файл можно безопасно выполнять повторно.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	steps, err := loadSchemaFromFS(schemaFS)
	if err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire db connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, "SELECT pg_advisory_lock($1)", schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", schemaLockKey)
	}()

	for _, step := range steps {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx (%d): %w", step.Order, err)
		}
		if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply schema %d_%s: %w", step.Order, step.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit schema %d_%s: %w", step.Order, step.Name, err)
		}
	}

	return nil
}

func loadSchemaFromFS(fsys fs.FS) ([]schemaStep, error) {
	files, err := fs.Glob(fsys, schemaGlob)
	if err != nil {
		return nil, fmt.Errorf("list schema files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no schema files found")
	}

	seen := make(map[int64]string, len(files))
	steps := make([]schemaStep, 0, len(files))
	for _, file := range files {
		base := filepath.Base(file)
		matches := schemaFilePattern.FindStringSubmatch(base)
		if len(matches) != 3 {
			return nil, fmt.Errorf("invalid schema file name: %s", base)
		}

		order, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse schema order from %s: %w", base, err)
		}
		if prev, ok := seen[order]; ok {
			return nil, fmt.Errorf("duplicate schema order %d: %s and %s", order, prev, base)
		}
		seen[order] = base

		bodyRaw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read schema file %s: %w", file, err)
		}
		body := strings.TrimSpace(string(bodyRaw))
		if body == "" {
			return nil, fmt.Errorf("schema file is empty: %s", base)
		}

		steps = append(steps, schemaStep{Order: order, Name: matches[2], SQL: body})
	}

	sort.Slice(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })
	return steps, nil
}
