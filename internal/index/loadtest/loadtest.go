// Package loadtest provides load testing utilities for the catalog index.
//
// It populates an index with synthetic source languages, projects and
// resources, then simulates many concurrent readers browsing the catalog,
// optionally while a writer keeps replacing the data in transactions.
package loadtest

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unfoldingword/door43-client/internal/index/db"
	"github.com/unfoldingword/door43-client/internal/index/schema"
)

// TestIndex is a populated index for load testing.
type TestIndex struct {
	DB                  *db.DB
	LanguageSlugs       []string
	ProjectsPerLanguage int
	ResourcesPerProject int
}

// LatencyStats captures performance metrics from load tests.
type LatencyStats struct {
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration // Median
	P95          time.Duration
	P99          time.Duration
	TotalQueries int
	Errors       int
	Durations    []time.Duration
}

// CreateTestIndex creates a new index at path holding numLanguages source
// languages, each with projectsPerLanguage projects of resourcesPerProject
// resources. Everything is written in a single transaction.
func CreateTestIndex(ctx context.Context, path string, numLanguages, projectsPerLanguage, resourcesPerProject int) (*TestIndex, error) {
	database, err := db.OpenIndex(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	// Room for many readers on top of the writer.
	database.RawDB().SetMaxOpenConns(150)
	database.RawDB().SetMaxIdleConns(50)
	database.RawDB().SetConnMaxLifetime(10 * time.Minute)

	ti := &TestIndex{
		DB:                  database,
		LanguageSlugs:       make([]string, 0, numLanguages),
		ProjectsPerLanguage: projectsPerLanguage,
		ResourcesPerProject: resourcesPerProject,
	}

	for i := 0; i < numLanguages; i++ {
		ti.LanguageSlugs = append(ti.LanguageSlugs, fmt.Sprintf("lang-%04d", i))
	}

	if err := ti.write(ctx, 0); err != nil {
		_ = database.Close()
		return nil, err
	}
	return ti, nil
}

// Close closes the index.
func (ti *TestIndex) Close() error {
	if ti.DB != nil {
		return ti.DB.Close()
	}
	return nil
}

// write replaces every language, project and resource in one transaction.
// Every project name carries generation so readers can tell which update
// they observed.
func (ti *TestIndex) write(ctx context.Context, generation int) error {
	if err := ti.DB.BeginTransaction(ctx); err != nil {
		return err
	}
	commit := false
	defer func() {
		if !commit {
			_ = ti.DB.EndTransaction(false)
		}
	}()

	for i, slug := range ti.LanguageSlugs {
		lang := &schema.SourceLanguage{
			Slug:      slug,
			Name:      fmt.Sprintf("Language %d", i),
			Direction: directionFor(i),
		}
		langID, err := ti.DB.AddSourceLanguage(ctx, lang)
		if err != nil {
			return fmt.Errorf("failed to insert language %s: %w", slug, err)
		}

		for _, project := range generateProjects(ti.ProjectsPerLanguage, generation) {
			projectID, err := ti.DB.AddProject(ctx, project, langID)
			if err != nil {
				return fmt.Errorf("failed to insert project %s/%s: %w", slug, project.Slug, err)
			}
			for _, resource := range generateResources(ti.ResourcesPerProject, generation) {
				if _, err := ti.DB.AddResource(ctx, resource, projectID); err != nil {
					return fmt.Errorf("failed to insert resource %s/%s/%s: %w", slug, project.Slug, resource.Slug, err)
				}
			}
		}
	}

	commit = true
	return ti.DB.EndTransaction(true)
}

func directionFor(i int) string {
	if i%7 == 3 {
		return schema.DirectionRTL
	}
	return schema.DirectionLTR
}

// generateProjects returns count projects whose sort order is the reverse
// of their slug order, so reads exercise the sort-then-slug ordering.
func generateProjects(count, generation int) []*schema.Project {
	projects := make([]*schema.Project, count)
	for i := 0; i < count; i++ {
		projects[i] = &schema.Project{
			Slug:        fmt.Sprintf("proj-%04d", i),
			Name:        fmt.Sprintf("Project %d gen %d", i, generation),
			Description: "Synthetic project for load testing",
			Sort:        count - i,
		}
	}
	return projects
}

func generateResources(count, generation int) []*schema.Resource {
	types := []string{schema.ResourceTypeBook, schema.ResourceTypeHelp, schema.ResourceTypeDict}
	resources := make([]*schema.Resource, count)
	for i := 0; i < count; i++ {
		resources[i] = &schema.Resource{
			Slug:          fmt.Sprintf("res-%02d", i),
			Name:          fmt.Sprintf("Resource %d", i),
			Type:          types[i%len(types)],
			CheckingLevel: strconv.Itoa(1 + i%3),
			Version:       fmt.Sprintf("%d.0", generation+1),
		}
	}
	return resources
}

// projectGeneration parses the generation out of a project name written by
// generateProjects.
func projectGeneration(name string) (int, error) {
	idx := strings.LastIndex(name, " gen ")
	if idx < 0 {
		return 0, fmt.Errorf("project name %q has no generation", name)
	}
	return strconv.Atoi(name[idx+len(" gen "):])
}

// RunConcurrentQueries simulates numReaders concurrent readers browsing the
// catalog. Each reader performs queriesPerReader project listings against
// random languages, recording latency for each.
func (ti *TestIndex) RunConcurrentQueries(ctx context.Context, numReaders, queriesPerReader int) (*LatencyStats, error) {
	var wg sync.WaitGroup
	resultsChan := make(chan []time.Duration, numReaders)
	errorsChan := make(chan error, numReaders)

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(int64(readerID)))
			durations := make([]time.Duration, 0, queriesPerReader)

			for j := 0; j < queriesPerReader; j++ {
				slug := ti.LanguageSlugs[rng.Intn(len(ti.LanguageSlugs))]

				start := time.Now()
				projects, err := ti.DB.GetProjects(ctx, slug)
				durations = append(durations, time.Since(start))

				if err != nil {
					errorsChan <- fmt.Errorf("reader %d query %d failed: %w", readerID, j, err)
					return
				}
				if len(projects) != ti.ProjectsPerLanguage {
					errorsChan <- fmt.Errorf("reader %d: %s has %d projects, expected %d", readerID, slug, len(projects), ti.ProjectsPerLanguage)
					return
				}
			}

			resultsChan <- durations
		}(i)
	}

	wg.Wait()
	close(resultsChan)
	close(errorsChan)

	var firstErr error
	errorCount := 0
	for err := range errorsChan {
		errorCount++
		if firstErr == nil {
			firstErr = err
		}
	}

	var allDurations []time.Duration
	for durations := range resultsChan {
		allDurations = append(allDurations, durations...)
	}

	if len(allDurations) == 0 {
		if firstErr != nil {
			return nil, fmt.Errorf("no successful queries completed: %w", firstErr)
		}
		return nil, fmt.Errorf("no successful queries completed")
	}

	stats := computeLatencyStats(allDurations)
	stats.Errors = errorCount
	return stats, nil
}

// VerifyConsistentReads runs numReaders readers against the index for
// duration while a writer keeps rewriting every project with a new
// generation. Each project listing must come from a single committed
// generation, and generations seen by one reader must never go backwards.
//
// It returns the number of generations the writer committed.
func (ti *TestIndex) VerifyConsistentReads(ctx context.Context, numReaders int, duration time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	var wg sync.WaitGroup
	var committed atomic.Int64
	errorsChan := make(chan error, numReaders+1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for gen := 1; ctx.Err() == nil; gen++ {
			if err := ti.write(context.Background(), gen); err != nil {
				errorsChan <- fmt.Errorf("writer generation %d failed: %w", gen, err)
				return
			}
			committed.Store(int64(gen))
		}
	}()

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(readerID int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(int64(readerID)))
			lastSeen := 0

			for ctx.Err() == nil {
				slug := ti.LanguageSlugs[rng.Intn(len(ti.LanguageSlugs))]
				projects, err := ti.DB.GetProjects(ctx, slug)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					errorsChan <- fmt.Errorf("reader %d read failed: %w", readerID, err)
					return
				}

				gen, err := listingGeneration(projects)
				if err != nil {
					errorsChan <- fmt.Errorf("reader %d on %s: %w", readerID, slug, err)
					return
				}
				if gen < lastSeen {
					errorsChan <- fmt.Errorf("reader %d on %s: generation went back from %d to %d", readerID, slug, lastSeen, gen)
					return
				}
				lastSeen = gen

				time.Sleep(1 * time.Millisecond)
			}
		}(i)
	}

	wg.Wait()
	close(errorsChan)

	for err := range errorsChan {
		if err != nil {
			return int(committed.Load()), err
		}
	}
	return int(committed.Load()), nil
}

// listingGeneration returns the single generation shared by every project
// in a listing and checks the listing is in sort order.
func listingGeneration(projects []*schema.Project) (int, error) {
	if len(projects) == 0 {
		return 0, fmt.Errorf("empty project listing")
	}
	gen := -1
	for i, p := range projects {
		g, err := projectGeneration(p.Name)
		if err != nil {
			return 0, err
		}
		if gen >= 0 && g != gen {
			return 0, fmt.Errorf("listing mixes generations %d and %d", gen, g)
		}
		gen = g
		if i > 0 && projects[i-1].Sort > p.Sort {
			return 0, fmt.Errorf("listing out of order at %s", p.Slug)
		}
	}
	return gen, nil
}

// computeLatencyStats calculates statistics from a slice of durations.
func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return &LatencyStats{
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Mean:         sum / time.Duration(len(durations)),
		P50:          sorted[len(sorted)*50/100],
		P95:          sorted[len(sorted)*95/100],
		P99:          sorted[len(sorted)*99/100],
		TotalQueries: len(durations),
		Durations:    sorted,
	}
}

// String formats the statistics for logs.
func (s *LatencyStats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Latency Statistics:\n")
	fmt.Fprintf(&b, "  Total Queries: %d\n", s.TotalQueries)
	fmt.Fprintf(&b, "  Errors:        %d\n", s.Errors)
	fmt.Fprintf(&b, "  Min:           %v\n", s.Min)
	fmt.Fprintf(&b, "  P50 (Median):  %v\n", s.P50)
	fmt.Fprintf(&b, "  Mean:          %v\n", s.Mean)
	fmt.Fprintf(&b, "  P95:           %v\n", s.P95)
	fmt.Fprintf(&b, "  P99:           %v\n", s.P99)
	fmt.Fprintf(&b, "  Max:           %v\n", s.Max)
	return b.String()
}

// GetStats returns row counts for the test index.
func (ti *TestIndex) GetStats(ctx context.Context) (*db.Stats, error) {
	return ti.DB.Stats(ctx)
}
