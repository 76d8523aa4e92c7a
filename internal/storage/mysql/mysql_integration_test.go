//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"dubaihaus/internal/domain"
	"dubaihaus/internal/normalizer"
	mysqlrepo "dubaihaus/internal/storage/mysql"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "..", "migrations")
	}
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	return dir
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(b)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// startMySQL runs an isolated MySQL and returns a migrated connection.
func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=dubaihaus"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/dubaihaus?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func rawListing(id float64, extra map[string]any) map[string]any {
	m := map[string]any{
		"id":        id,
		"name":      fmt.Sprintf("Project %v", id),
		"developer": "Emaar",
		"location":  map[string]any{"district": "Dubai Hills", "city": "Dubai", "latitude": 25.1, "longitude": 55.2},
		"units": []any{
			map[string]any{"bedrooms": 1.0, "area": 750.0, "price_from": 1.2e6},
			map[string]any{"bedrooms": 3.0, "area": 2000.0, "price_from": 3.1e6},
		},
		"payment_plans": []any{map[string]any{"name": "80/20"}},
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func TestRepo_MySQL(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("upsert is idempotent", func(t *testing.T) {
		batch := []map[string]any{
			rawListing(1, map[string]any{"handover_date": "2027-06-30"}),
			rawListing(2, map[string]any{"completion_date": "2025-03-01", "min_price": 900000.0}),
		}
		for run := 0; run < 2; run++ {
			for _, raw := range batch {
				p := normalizer.Project(raw)
				p.SyncedAt = now
				if err := repo.UpsertProject(ctx, p); err != nil {
					t.Fatalf("upsert: %v", err)
				}
			}
			if n := countRows(t, db, "projects"); n != 2 {
				t.Fatalf("run %d: projects = %d", run, n)
			}
			if n := countRows(t, db, "project_property_types"); n != 4 {
				t.Fatalf("run %d: property types = %d", run, n)
			}
			if n := countRows(t, db, "project_payment_plans"); n != 2 {
				t.Fatalf("run %d: payment plans = %d", run, n)
			}
		}
	})

	t.Run("three item scenario", func(t *testing.T) {
		noPrice := rawListing(10, nil)
		noPrice["units"] = []any{map[string]any{"bedrooms": 2.0}}
		fiveBeds := rawListing(11, map[string]any{"units": []any{map[string]any{"bedrooms": 5.0}}})
		existing := rawListing(1, map[string]any{"name": "Renamed", "units": []any{}})

		for _, raw := range []map[string]any{noPrice, fiveBeds, existing} {
			p := normalizer.Project(raw)
			p.SyncedAt = now.Add(time.Hour)
			if err := repo.UpsertProject(ctx, p); err != nil {
				t.Fatalf("upsert %v: %v", raw["id"], err)
			}
		}
		if n := countRows(t, db, "projects"); n != 4 {
			t.Fatalf("projects = %d, want 4", n)
		}

		a, err := repo.GetProject(ctx, 10)
		if err != nil || a.MinPrice != nil || a.MaxPrice != nil {
			t.Fatalf("item without price: %+v, %v", a, err)
		}
		b, err := repo.GetProject(ctx, 11)
		if err != nil || len(b.UnitTypes) != 1 || b.UnitTypes[0].Type != "Villa" {
			t.Fatalf("five-bedroom item: %+v, %v", b, err)
		}
		c, err := repo.GetProject(ctx, 1)
		if err != nil || c.Title != "Renamed" || len(c.UnitTypes) != 0 {
			t.Fatalf("updated item: %+v, %v", c, err)
		}
	})

	t.Run("query filters and views", func(t *testing.T) {
		views, total, err := repo.QueryProjects(ctx, domain.ListingFilters{
			HandoverYears: []string{"2025", domain.HandoverCompleted},
		}, now)
		if err != nil {
			t.Fatal(err)
		}
		if total != 1 || len(views) != 1 || views[0].ID != 2 {
			t.Fatalf("year filter: total=%d views=%+v", total, views)
		}
		v := views[0]
		if v.MinPrice == nil || *v.MinPrice != 900000 {
			t.Fatalf("price not mapped to float: %v", v.MinPrice)
		}
		if v.Bedrooms == nil || *v.Bedrooms != "1–3BR" || v.BedroomsRange == nil || *v.BedroomsRange != "1 - 3 Bedrooms" {
			t.Fatalf("bedroom labels: %v %v", v.Bedrooms, v.BedroomsRange)
		}
		if len(v.PropertyTypes) != 2 {
			t.Fatalf("property types: %v", v.PropertyTypes)
		}

		_, total, err = repo.QueryProjects(ctx, domain.ListingFilters{
			Search: "dubai hills", PropertyTypes: []string{"Villa"},
		}, now)
		if err != nil || total != 1 {
			t.Fatalf("search + type: total=%d err=%v", total, err)
		}

		views, total, err = repo.QueryProjects(ctx, domain.ListingFilters{PageSize: 3, Page: 2}, now)
		if err != nil || total != 4 || len(views) != 1 {
			t.Fatalf("paging: total=%d len=%d err=%v", total, len(views), err)
		}

		if _, err := repo.GetProject(ctx, 999); err != domain.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("one-sided price range", func(t *testing.T) {
		raw := rawListing(20, map[string]any{"min_price": 700000.0, "units": []any{}})
		p := normalizer.Project(raw)
		p.SyncedAt = now
		if p.MaxPrice != nil {
			t.Fatalf("fixture should have no max price, got %v", *p.MaxPrice)
		}
		if err := repo.UpsertProject(ctx, p); err != nil {
			t.Fatal(err)
		}
		views, _, err := repo.QueryProjects(ctx, domain.ListingFilters{MaxPrice: f64(800000)}, now)
		if err != nil {
			t.Fatal(err)
		}
		if len(views) != 1 || views[0].ID != 20 {
			t.Fatalf("max price filter: %+v", views)
		}
	})

	t.Run("rates", func(t *testing.T) {
		if r, err := repo.GetRate(ctx, "AED", "USD"); err != nil || r != nil {
			t.Fatalf("empty: %v %v", r, err)
		}
		if err := repo.UpsertRate(ctx, domain.ExchangeRate{Base: "AED", Target: "USD", Rate: 0.2723, Provider: "test", FetchedAt: now}); err != nil {
			t.Fatal(err)
		}
		if err := repo.UpsertRate(ctx, domain.ExchangeRate{Base: "aed", Target: "usd", Rate: 0.2724, Provider: "test", FetchedAt: now.Add(time.Hour)}); err != nil {
			t.Fatal(err)
		}
		r, err := repo.GetRate(ctx, "AED", "USD")
		if err != nil || r == nil || r.Rate != 0.2724 || !r.FetchedAt.Equal(now.Add(time.Hour)) {
			t.Fatalf("rate: %+v %v", r, err)
		}
		if err := repo.UpsertRate(ctx, domain.ExchangeRate{Base: "AED", Target: "AED", Rate: 1}); err == nil {
			t.Fatalf("same-currency pair must be rejected")
		}
	})

	t.Run("translations", func(t *testing.T) {
		entries := []domain.TranslationEntry{
			{Lang: "de", Source: "Swimming pool", Translated: "Schwimmbad", CharCount: 13, LastUsedAt: now},
			{Lang: "de", Source: "Gym", Translated: "Fitnessstudio", CharCount: 3, LastUsedAt: now},
		}
		for i := 0; i < 2; i++ {
			if err := repo.UpsertTranslations(ctx, entries); err != nil {
				t.Fatal(err)
			}
		}
		if n := countRows(t, db, "translations"); n != 2 {
			t.Fatalf("translations = %d", n)
		}
		got, err := repo.FindTranslations(ctx, "de", []string{"Gym", "Sauna", "Swimming pool"})
		if err != nil || len(got) != 2 || got["Gym"] != "Fitnessstudio" {
			t.Fatalf("find: %v %v", got, err)
		}
		if err := repo.TouchTranslations(ctx, "de", []string{"Gym"}, now.Add(time.Hour)); err != nil {
			t.Fatal(err)
		}
		var used time.Time
		if err := db.QueryRow("SELECT last_used_at FROM translations WHERE source = 'Gym'").Scan(&used); err != nil {
			t.Fatal(err)
		}
		if !used.Equal(now.Add(time.Hour)) {
			t.Fatalf("last_used_at = %s", used)
		}
	})
}

func f64(v float64) *float64 { return &v }
