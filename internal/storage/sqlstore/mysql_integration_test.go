//go:build integration

package sqlstore_test

import (
	"context"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"review_ingest/internal/domain"
	"review_ingest/internal/storage/sqlstore"
)

func TestRepo_MySQL_ReplaceAndSummarize(t *testing.T) {
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=reviews",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var repo *sqlstore.Repo
	if err := pool.Retry(func() error {
		db, e := sqlstore.Open(context.Background(), "mysql", dsn)
		if e != nil {
			return e
		}
		t.Cleanup(func() { _ = db.Close() })
		repo = sqlstore.New(db, "mysql")
		return nil
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}

	ctx := context.Background()
	tbl := domain.Table{
		row("R1", "A1", 5, pstr(" Hardcover")),
		row("R2", "A1", 5, pstr("hardcover")),
		row("R3", "B2", 4, nil),
	}
	if err := repo.ReplaceAll(ctx, tbl); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if err := repo.ReplaceAll(ctx, tbl); err != nil {
		t.Fatalf("second ReplaceAll: %v", err)
	}

	s, err := repo.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(s.HardcoverASINs) != 1 || s.HardcoverASINs[0] != "A1" {
		t.Fatalf("hardcover: %v", s.HardcoverASINs)
	}
	if s.TopASIN == nil || *s.TopASIN != "A1" || s.TopCount != 2 {
		t.Fatalf("top: %+v", s)
	}

	page, err := repo.ListByASIN(ctx, "B2", domain.PageQuery{Limit: 5})
	if err != nil || len(page.Items) != 1 {
		t.Fatalf("ListByASIN: %+v err=%v", page, err)
	}
}
