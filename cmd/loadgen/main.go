package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"mop.org/internal/apiclient"
	"mop.org/internal/demo"
	"mop.org/internal/domain"
)

func main() {
	var (
		baseURL  = flag.String("base-url", "http://localhost:8080", "API base URL")
		email    = flag.String("email", os.Getenv("MOP_ADMIN_EMAIL"), "login email")
		password = flag.String("password", os.Getenv("MOP_ADMIN_PASSWORD"), "login password")
		workers  = flag.Int("workers", 4, "concurrent worker count")
		duration = flag.Duration("duration", 2*time.Minute, "duration of the run")
		rps      = flag.Float64("rps", 20, "overall request rate, 0 for unlimited")
		steps    = flag.Int("steps", 2, "maximum workflow transitions per case")
		seed     = flag.Int64("seed", 0, "generator seed, 0 picks one from the clock")
	)
	flag.Parse()
	if *workers < 1 {
		log.Fatal("-workers must be >= 1")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	log.Printf("Launching load: base=%s workers=%d duration=%s rps=%.1f", *baseURL, *workers, *duration, *rps)

	client, err := apiclient.New(*baseURL)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := client.Login(ctx, *email, *password); err != nil {
		log.Fatalf("login: %v", err)
	}

	limit := rate.Inf
	if *rps > 0 {
		limit = rate.Limit(*rps)
	}
	limiter := rate.NewLimiter(limit, *workers)

	base := *seed
	if base == 0 {
		base = time.Now().UnixNano()
	}

	var (
		counter      demo.Counter
		failures     int64
		conflicts    int64
		rateLimited  int64
		serverErrors int64
	)
	fail := func(id int, err error) {
		atomic.AddInt64(&failures, 1)
		var apiErr *apiclient.Error
		switch {
		case errors.Is(err, domain.ErrConflict):
			atomic.AddInt64(&conflicts, 1)
		case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests:
			atomic.AddInt64(&rateLimited, 1)
			time.Sleep(250 * time.Millisecond)
		case ctx.Err() != nil:
		default:
			atomic.AddInt64(&serverErrors, 1)
			log.Printf("worker %d: %v", id, err)
			time.Sleep(200 * time.Millisecond)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			gen := demo.NewGenerator(base + int64(id*9973))
			for ctx.Err() == nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				c, err := client.CreateCase(ctx, gen.NextCase())
				if err != nil {
					fail(id, err)
					continue
				}
				counter.Created(c.Status)
				for s := 0; s < *steps; s++ {
					to, ok := gen.NextStatus(c.Status)
					if !ok {
						break
					}
					if err := limiter.Wait(ctx); err != nil {
						return
					}
					from := c.Status
					moved, err := client.UpdateCase(ctx, c.ID, demo.InputFor(c, to))
					if err != nil {
						fail(id, err)
						break
					}
					c = moved
					counter.Moved(from, to)
				}
			}
		}(i)
	}
	wg.Wait()

	sum := counter.Summary()
	log.Printf("Run complete: %d created, %d transitions, %d failed (conflicts=%d, rate_limited=%d, server_errors=%d)",
		sum.Created, sum.Transitions, failures, conflicts, rateLimited, serverErrors)
	out, _ := json.MarshalIndent(sum.ByStatus, "", "  ")
	log.Printf("Statuses reached:\n%s", out)
}
