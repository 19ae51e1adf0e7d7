package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"voxelworld/internal/chunkgen"
	"voxelworld/internal/config"
	"voxelworld/internal/physics"
	"voxelworld/internal/terrain"
	"voxelworld/internal/world"
)

type generationJob struct {
	origin world.Column
}

func main() {
	var (
		cfgPath        = flag.String("config", "", "optional configuration file supplying terrain parameters")
		totalRequests  = flag.Int("requests", 200, "number of generation requests to issue")
		concurrency    = flag.Int("concurrency", runtime.NumCPU(), "number of concurrent generators")
		renderDistance = flag.Int("renderDistance", -1, "render distance in chunks (-1 uses config)")
		spread         = flag.Int("spread", 64, "origins are drawn from [-spread, spread) chunks on each axis")
		workers        = flag.Int("workers", 1, "classification workers per generator")
		seed           = flag.Int64("seed", 1337, "random seed for origin selection")
		timeout        = flag.Duration("timeout", 5*time.Second, "per-request timeout")
	)
	flag.Parse()

	if *totalRequests <= 0 {
		fmt.Fprintln(os.Stderr, "requests must be positive")
		os.Exit(1)
	}
	if *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency must be positive")
		os.Exit(1)
	}
	if *spread <= 0 {
		fmt.Fprintln(os.Stderr, "spread must be positive")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	rd := cfg.Chunk.RenderDistance
	if *renderDistance >= 0 {
		rd = *renderDistance
	}

	params := terrain.ParamsFromConfig(cfg.Terrain)
	field := terrain.Perlin{}
	classifier := terrain.NewClassifier(field, params)
	simulator := physics.NewSimulator(classifier, cfg.Player.SideReach, log.New(io.Discard, "", 0))

	var factors [world.BlockTypeCount]float64
	copy(factors[:], cfg.Chunk.CapacityFactors)
	base := chunkgen.Request{RenderDistance: rd, Seeds: params.Seeds(), CapacityFactors: factors}

	jobs := make(chan generationJob)
	go func() {
		defer close(jobs)
		rng := rand.New(rand.NewSource(*seed))
		n := *spread
		for i := 0; i < *totalRequests; i++ {
			coord := world.ChunkCoord{X: rng.Intn(2*n) - n, Z: rng.Intn(2*n) - n}
			jobs <- generationJob{origin: coord.Origin()}
		}
	}()

	var (
		wg               sync.WaitGroup
		totalDuration    int64
		totalPlacements  int64
		totalDropped     int64
		totalBatchCells  int64
		truncatedBatches int64
		failures         int64
		perType          [world.BlockTypeCount]int64
	)

	worker := func() {
		defer wg.Done()
		// Each generator owns its buffers, so workers never share one.
		gen := chunkgen.New(field, params, *workers, log.New(io.Discard, "", 0))
		for job := range jobs {
			req := base
			req.Origin = job.origin

			ctx, cancel := context.WithTimeout(context.Background(), *timeout)
			startTime := time.Now()
			resp, err := gen.Generate(ctx, &req)
			duration := time.Since(startTime)
			cancel()

			atomic.AddInt64(&totalDuration, int64(duration))
			if err != nil {
				atomic.AddInt64(&failures, 1)
				continue
			}
			atomic.AddInt64(&totalPlacements, int64(resp.Counters.Total()))
			atomic.AddInt64(&totalDropped, int64(resp.Dropped.Total()))
			for t, n := range resp.Counters {
				atomic.AddInt64(&perType[t], int64(n))
			}

			cells := simulator.Batch(job.origin, nil)
			atomic.AddInt64(&totalBatchCells, int64(len(cells)))
			if len(cells) >= physics.MaxBatch {
				atomic.AddInt64(&truncatedBatches, 1)
			}
		}
	}

	wg.Add(*concurrency)
	for i := 0; i < *concurrency; i++ {
		go worker()
	}

	startWall := time.Now()
	wg.Wait()
	wallDuration := time.Since(startWall)

	requests := int64(*totalRequests)
	succ := requests - atomic.LoadInt64(&failures)
	avgDuration := time.Duration(atomic.LoadInt64(&totalDuration) / requests)
	avgPlacements := 0.0
	if succ > 0 {
		avgPlacements = float64(atomic.LoadInt64(&totalPlacements)) / float64(succ)
	}

	fmt.Println("== Chunk Generation Profile ==")
	fmt.Printf("Render distance: %d (%d columns per request)\n", rd, world.RenderRange(world.Column{}, rd).Columns())
	fmt.Printf("Requests: %d\n", requests)
	fmt.Printf("Concurrency: %d, classification workers: %d\n", *concurrency, *workers)
	fmt.Printf("Successes: %d, Failures: %d\n", succ, atomic.LoadInt64(&failures))
	fmt.Printf("Average per-request duration: %s\n", avgDuration)
	fmt.Printf("Wall clock duration: %s\n", wallDuration)
	fmt.Printf("Average placements: %.1f\n", avgPlacements)
	fmt.Printf("Dropped placements: %d\n", atomic.LoadInt64(&totalDropped))
	for t := range perType {
		share := 0.0
		if total := atomic.LoadInt64(&totalPlacements); total > 0 {
			share = float64(atomic.LoadInt64(&perType[t])) / float64(total) * 100
		}
		fmt.Printf("  %-6s %6.2f%% (capacity %d)\n", world.BlockType(t), share, chunkgen.Capacity(rd, factors[t]))
	}
	fmt.Printf("Average collision batch at origin: %.1f cells (%d capped)\n",
		float64(atomic.LoadInt64(&totalBatchCells))/float64(requests), atomic.LoadInt64(&truncatedBatches))
}
