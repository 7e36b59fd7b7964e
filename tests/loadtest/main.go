package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

var (
	baseURL      = flag.String("url", "http://127.0.0.1:8090", "crewboard base url")
	numWorkers   = flag.Int("workers", 50, "concurrent request workers")
	numStreams   = flag.Int("streams", 20, "concurrent /events subscribers")
	testDuration = flag.Duration("duration", 10*time.Second, "duration of each phase")
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

func main() {
	flag.Parse()

	fmt.Println("=== CrewBoard Load Test ===")
	fmt.Printf("Workers: %d | Streams: %d | Duration: %s\n\n", *numWorkers, *numStreams, *testDuration)

	fmt.Print("Waiting for server... ")
	names, err := waitForMembers()
	if err != nil {
		fmt.Printf("FAILED: %s\n", err)
		return
	}
	fmt.Printf("OK (%d members)\n", len(names))

	// Phase 1: cold statistics batches fill the cache
	fmt.Println("\n--- Phase 1: Statistics batches (POST /g) ---")
	runPhase(*testDuration, func(rng *rand.Rand) result {
		return doBatch()
	})

	// Phase 2: dashboard reads
	fmt.Println("\n--- Phase 2: Mixed reads (40% /members, 40% /member, 20% /g) ---")
	runPhase(*testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.40:
			return doMembers()
		case r < 0.80:
			return doMember(names[rng.Intn(len(names))])
		default:
			return doBatch()
		}
	})

	// Phase 3: same reads while event streams are held open
	fmt.Printf("\n--- Phase 3: Mixed reads with %d open event streams ---\n", *numStreams)
	var events atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	var streams sync.WaitGroup
	for i := 0; i < *numStreams; i++ {
		streams.Add(1)
		go func() {
			defer streams.Done()
			holdStream(ctx, &events)
		}()
	}
	runPhase(*testDuration, func(rng *rand.Rand) result {
		if rng.Float64() < 0.5 {
			return doMembers()
		}
		return doMember(names[rng.Intn(len(names))])
	})
	cancel()
	streams.Wait()
	fmt.Printf("  Events received across streams: %d\n", events.Load())
}

func waitForMembers() ([]string, error) {
	var lastErr error
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(*baseURL + "/members")
		if err != nil {
			lastErr = err
			time.Sleep(200 * time.Millisecond)
			continue
		}
		var members []struct {
			Name string `json:"name"`
		}
		err = json.NewDecoder(resp.Body).Decode(&members)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(members))
		for _, m := range members {
			names = append(names, m.Name)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("roster is empty")
		}
		return names, nil
	}
	return nil, lastErr
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < *numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					results <- workFn(rng)
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-22s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 88))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		fmt.Printf("  %-22s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	if totalOps == 0 {
		fmt.Println("  No requests completed")
		return
	}
	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func do(endpoint string, req *http.Request, want int) result {
	start := time.Now()
	resp, err := httpClient.Do(req)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != want}
}

func doBatch() result {
	req, _ := http.NewRequest(http.MethodPost, *baseURL+"/g", nil)
	return do("POST /g", req, http.StatusOK)
}

func doMembers() result {
	req, _ := http.NewRequest(http.MethodGet, *baseURL+"/members", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	return do("GET /members", req, http.StatusOK)
}

func doMember(name string) result {
	req, _ := http.NewRequest(http.MethodGet, *baseURL+"/member?name="+url.QueryEscape(name), nil)
	return do("GET /member", req, http.StatusOK)
}

// holdStream keeps one /events subscription open and counts the events on it.
func holdStream(ctx context.Context, events *atomic.Int64) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *baseURL+"/events", nil)
	if err != nil {
		return
	}
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "event: ") {
			events.Add(1)
		}
	}
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
