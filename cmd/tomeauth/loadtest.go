package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maantoa/tomeauth"
	"github.com/spf13/cobra"
)

type loadProfile struct {
	id     string
	userID string
	mu     sync.Mutex
}

type loadtestOptions struct {
	profiles    int
	concurrency int
	ops         int
	backend     string
	redisAddr   string
	email       string
}

func loadtestCmd(a *app) *cobra.Command {
	opts := loadtestOptions{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure verify and refresh latency across many profiles",
		Long: `Sign in --profiles profiles, then run --ops verifications and --ops
refreshes from --concurrency workers, each against a random profile.

With the redis backend and no --redis-addr an embedded miniredis is used.
Simulated sign-in latency is disabled for the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.profiles <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
				return fmt.Errorf("profiles, concurrency, and ops must be > 0")
			}
			a.config.Storage.Backend = opts.backend
			a.config.Storage.RedisAddr = opts.redisAddr
			a.config.SignIn.SimulatedLatency = 0
			if err := a.config.Validate(); err != nil {
				return err
			}
			return a.loadtest(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.profiles, "profiles", 200, "number of profiles to sign in")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 32, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 20000, "operations per phase (verify + refresh)")
	cmd.Flags().StringVar(&opts.backend, "backend", "redis", "storage backend for the run")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address; empty starts miniredis")
	cmd.Flags().StringVar(&opts.email, "email", "player@maantoa.ee", "account signed in on every profile")
	return cmd
}

func (a *app) loadtest(ctx context.Context, out io.Writer, opts loadtestOptions) error {
	engine, cleanup, err := a.engine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	profiles := make([]*loadProfile, opts.profiles)
	fmt.Fprintf(out, "signing in %d profiles...\n", opts.profiles)
	startSeed := time.Now()
	for i := range profiles {
		id := "load-" + strconv.Itoa(i)
		user, err := engine.SignIn(tomeauth.WithProfile(ctx, id), opts.email, a.config.SignIn.SharedSecret)
		if err != nil {
			return fmt.Errorf("sign in profile %s: %w", id, err)
		}
		profiles[i] = &loadProfile{id: id, userID: user.ID}
	}
	fmt.Fprintf(out, "signed in in %s\n", time.Since(startSeed).Round(time.Millisecond))

	verifyStats := runPhase(opts.ops, opts.concurrency, profiles, 7919, func(p *loadProfile) bool {
		return engine.VerifySession(tomeauth.WithProfile(ctx, p.id))
	})
	refreshStats := runPhase(opts.ops, opts.concurrency, profiles, 6151, func(p *loadProfile) bool {
		return engine.RefreshSession(tomeauth.WithProfile(ctx, p.id), p.userID) == nil
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "verify", verifyStats)
	printStats(out, "refresh", refreshStats)
	return nil
}

// runPhase runs op ops times from concurrency workers. Operations on one
// profile never overlap: verification rotates the session identifier, and an
// overlapping check would see the other's rotation as a mismatch.
func runPhase(ops, concurrency int, profiles []*loadProfile, seed int64, op func(*loadProfile) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				p := profiles[r.Intn(len(profiles))]

				p.mu.Lock()
				t0 := time.Now()
				ok := op(p)
				d := time.Since(t0)
				p.mu.Unlock()

				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
