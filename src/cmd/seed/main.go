package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"nodegraph/src/domain"
	"nodegraph/src/helper/storage"
	"nodegraph/src/repositories"
)

func main() {
	numOrgs := flag.Int("orgs", 10, "Número de organizações")
	peoplePerOrg := flag.Int("people-per-org", 20, "Pessoas por organização")
	commentsPerPerson := flag.Int("comments-per-person", 3, "Comentários por pessoa")
	jobs := flag.Int("jobs", 50, "Jobs pendentes a enfileirar")
	workers := flag.Int("workers", 8, "Goroutines escrevendo em paralelo")
	owner := flag.String("owner", "seed", "owner id dos registros criados")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	backend, err := storage.Open(ctx, logger, storage.ConfigFromEnv())
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer backend.Close()

	repositories.RegisterAdapter(backend.Adapter)
	defer repositories.ClearAdapter()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n🛑 Shutdown signal received, stopping...")
		cancel()
	}()

	seeder := NewSeeder(domain.NewViewer(*owner), *peoplePerOrg, *commentsPerPerson)

	var processed, failed int64
	startTime := time.Now()

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("📊 Orgs: %d | Errors: %d | Elapsed: %v\n",
					atomic.LoadInt64(&processed), atomic.LoadInt64(&failed), time.Since(startTime).Round(time.Second))
			}
		}
	}()

	orgIndexes := make(chan int, *workers)
	var wg sync.WaitGroup

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range orgIndexes {
				if err := seeder.SeedOrg(ctx, idx); err != nil {
					atomic.AddInt64(&failed, 1)
					log.Printf("Failed to seed org %d: %v", idx, err)
					continue
				}
				atomic.AddInt64(&processed, 1)
			}
		}()
	}

	for i := 0; i < *numOrgs && ctx.Err() == nil; i++ {
		orgIndexes <- i
	}
	close(orgIndexes)
	wg.Wait()

	enqueued, err := seeder.SeedJobs(ctx, *jobs)
	if err != nil {
		log.Printf("Failed to enqueue jobs: %v", err)
	}

	fmt.Printf("\n🏁 Seeding finished!\n")
	fmt.Printf("📊 Orgs seeded: %d\n", atomic.LoadInt64(&processed))
	fmt.Printf("📬 Jobs enqueued: %d\n", enqueued)
	fmt.Printf("❌ Total errors: %d\n", atomic.LoadInt64(&failed))
	fmt.Printf("⏱️ Total time: %v\n", time.Since(startTime).Round(time.Millisecond))
}
