package main

import (
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

const (
	baseURL      = "http://127.0.0.1:8080"
	numWorkers   = 50
	testDuration = 10 * time.Second
	numUsers     = 20
	numVisitors  = 2000
)

var themes = []string{"Default", "Dark", "Ocean+Gradient", "Sunset+Gradient", "Neon"}

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

// seen tracks which (user, visitor) pairs were sent, to compare against the
// server's counts at the end.
var seen sync.Map

func main() {
	fmt.Println("=== GitViewer Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s\n", numWorkers, testDuration)
	fmt.Printf("Users: %d | Visitors: %d\n\n", numUsers, numVisitors)

	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	fmt.Println("\n--- Phase 1: Counter images (SVG + PNG) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doView(rng)
	})

	fmt.Println("\n--- Phase 2: Mixed load (60% views, 30% count, 10% themes) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.60:
			return doView(rng)
		case r < 0.90:
			return doCount(rng)
		default:
			return doThemes()
		}
	})

	fmt.Println("\n--- Consistency check ---")
	checkCounts()
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
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

	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 88))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

func userName(i int) string {
	return fmt.Sprintf("loadtest-user-%d", i)
}

func doView(rng *rand.Rand) result {
	user := userName(rng.Intn(numUsers))
	n := rng.Intn(numVisitors)
	visitor := fmt.Sprintf("10.0.%d.%d", n/250, n%250)
	format := "svg"
	endpoint := "GET /api/views svg"
	if rng.Float64() < 0.2 {
		format = "png"
		endpoint = "GET /api/views png"
	}

	url := fmt.Sprintf("%s/api/views/%s?format=%s&theme=%s", baseURL, user, format, themes[rng.Intn(len(themes))])
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("X-Real-IP", visitor)

	start := time.Now()
	resp, err := httpClient.Do(req)
	lat := time.Since(start)
	if err != nil {
		return result{endpoint, 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		seen.Store(user+"|"+visitor, struct{}{})
	}
	return result{endpoint, resp.StatusCode, lat, resp.StatusCode != http.StatusOK}
}

func doCount(rng *rand.Rand) result {
	url := fmt.Sprintf("%s/api/count/%s", baseURL, userName(rng.Intn(numUsers)))
	start := time.Now()
	resp, err := httpClient.Get(url)
	lat := time.Since(start)
	if err != nil {
		return result{"GET /api/count", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /api/count", resp.StatusCode, lat, resp.StatusCode != http.StatusOK}
}

func doThemes() result {
	start := time.Now()
	resp, err := httpClient.Get(baseURL + "/api/themes")
	lat := time.Since(start)
	if err != nil {
		return result{"GET /api/themes", 0, lat, true}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return result{"GET /api/themes", resp.StatusCode, lat, resp.StatusCode != http.StatusOK}
}

// checkCounts compares server counts with the distinct visitors sent per
// user. Within one cooldown window they match on atomic backends; a run
// against a fresh store is assumed.
func checkCounts() {
	expected := make(map[string]int64)
	seen.Range(func(key, _ any) bool {
		user, _, _ := strings.Cut(key.(string), "|")
		expected[user]++
		return true
	})

	mismatches := 0
	for i := 0; i < numUsers; i++ {
		user := userName(i)
		resp, err := httpClient.Get(fmt.Sprintf("%s/api/count/%s", baseURL, user))
		if err != nil {
			fmt.Printf("  %s: request failed: %v\n", user, err)
			mismatches++
			continue
		}
		var body struct {
			Count int64 `json:"count"`
		}
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			fmt.Printf("  %s: bad response: %v\n", user, err)
			mismatches++
			continue
		}
		if body.Count != expected[user] {
			mismatches++
			fmt.Printf("  %-22s server=%d expected=%d\n", user, body.Count, expected[user])
		}
	}
	fmt.Printf("  %d/%d users consistent\n", numUsers-mismatches, numUsers)
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
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
