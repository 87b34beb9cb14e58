package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"mop.org/internal/apiclient"
	"mop.org/internal/cases"
	"mop.org/internal/demo"
	"mop.org/internal/domain"
	"mop.org/internal/probe"
)

func main() {
	baseURL := envOr("MOP_SMOKE_BASE_URL", "http://localhost:8080")
	grpcAddr := envOr("MOP_SMOKE_GRPC_ADDR", "localhost:9090")
	email := os.Getenv("MOP_ADMIN_EMAIL")
	password := os.Getenv("MOP_ADMIN_PASSWORD")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	hc, err := probe.Dial(grpcAddr)
	if err != nil {
		log.Fatalf("dial grpc %s: %v", grpcAddr, err)
	}
	defer hc.Close()
	checkCtx, checkCancel := probe.WithTimeout(ctx, 5*time.Second)
	res, err := hc.Check(checkCtx, "")
	checkCancel()
	if err != nil {
		log.Fatalf("grpc health %s: %v", grpcAddr, err)
	}

	client, err := apiclient.New(baseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := client.Healthz(ctx); err != nil {
		log.Fatalf("healthz: %v", err)
	}
	if _, err := client.Login(ctx, email, password); err != nil {
		log.Fatalf("login: %v", err)
	}

	before, err := client.CaseStatistics(ctx)
	if err != nil {
		log.Fatalf("statistics: %v", err)
	}

	in := demo.NewGenerator(time.Now().UnixNano()).NextCase()
	in.BusinessName = "Smoke " + in.BusinessName
	c, err := client.CreateCase(ctx, in)
	if err != nil {
		log.Fatalf("create case: %v", err)
	}
	if c.Status != cases.StatusPendingReview || len(c.History) != 1 {
		log.Fatalf("unexpected new case: status=%q history=%d", c.Status, len(c.History))
	}

	moved, err := client.UpdateCase(ctx, c.ID, demo.InputFor(c, cases.StatusInReview))
	if err != nil {
		log.Fatalf("move to review: %v", err)
	}
	if moved.Status != cases.StatusInReview || len(moved.History) != 2 {
		log.Fatalf("unexpected moved case: status=%q history=%d", moved.Status, len(moved.History))
	}

	after, err := client.CaseStatistics(ctx)
	if err != nil {
		log.Fatalf("statistics: %v", err)
	}
	if after[string(cases.StatusInReview)] != before[string(cases.StatusInReview)]+1 {
		log.Fatalf("statistics did not count the case: before=%v after=%v", before, after)
	}

	if err := client.DeleteCase(ctx, c.ID); err != nil {
		log.Fatalf("delete: %v", err)
	}
	if _, err := client.GetCase(ctx, c.ID); !errors.Is(err, domain.ErrNotFound) {
		log.Fatalf("deleted case still readable: %v", err)
	}

	fmt.Printf("smoke test passed: grpc=%s (%s) case=%s\n", res.Status, res.Latency, c.ID)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
