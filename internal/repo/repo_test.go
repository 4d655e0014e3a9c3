package repo

import (
	"strings"
	"testing"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// newTestDB инициализирует in-memory SQLite (modernc.org/sqlite) для тестов репозитория.
// Имя базы берётся из имени теста, чтобы тесты не видели данные друг друга.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite (modernc): %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestDialectorFor(t *testing.T) {
	if got := dialectorFor("postgres://u:p@localhost/db").Name(); got != "postgres" {
		t.Fatalf("postgres URL must select postgres, got %s", got)
	}
	if got := dialectorFor("host=localhost user=u dbname=db").Name(); got != "postgres" {
		t.Fatalf("key=value DSN must select postgres, got %s", got)
	}
	if got := dialectorFor("whisper.db").Name(); got != "sqlite" {
		t.Fatalf("file path must select sqlite, got %s", got)
	}
}

func TestSQLiteDSN(t *testing.T) {
	cases := map[string]string{
		"whisper.db":                   "whisper.db?_pragma=foreign_keys(1)",
		"file:x?mode=memory":           "file:x?mode=memory&_pragma=foreign_keys(1)",
		"a.db?_pragma=foreign_keys(1)": "a.db?_pragma=foreign_keys(1)",
	}
	for in, want := range cases {
		if got := sqliteDSN(in); got != want {
			t.Fatalf("sqliteDSN(%q) = %q, want %q", in, got, want)
		}
	}
}
