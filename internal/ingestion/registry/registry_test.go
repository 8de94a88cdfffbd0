package registry

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/postgres"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	port, err := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	if err != nil {
		t.Fatalf("TEST_POSTGRES_PORT: %v", err)
	}
	db, err := postgres.New(config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "textsearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "textsearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestRecordAndList(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	reg := New(db)
	if err := reg.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	if err := reg.Truncate(ctx); err != nil {
		t.Fatal(err)
	}

	inserted, err := reg.Record(ctx, Document{Name: "d1", SizeBytes: 18, TermCount: 3})
	if err != nil || !inserted {
		t.Fatalf("first Record: inserted=%v err=%v", inserted, err)
	}
	inserted, err = reg.Record(ctx, Document{Name: "d1", SizeBytes: 99, TermCount: 9})
	if err != nil || inserted {
		t.Fatalf("duplicate Record: inserted=%v err=%v", inserted, err)
	}

	docs, err := reg.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Name != "d1" || docs[0].TermCount != 3 {
		t.Errorf("List = %+v", docs)
	}
}
