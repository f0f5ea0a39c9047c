package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ruteri/canary-registry/api"
	"github.com/ruteri/canary-registry/interfaces"
	"github.com/ruteri/canary-registry/metrics"
	"github.com/ruteri/canary-registry/registry"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators of a Worker.
type Deps struct {
	RegistryID interfaces.Address
	AdminCap   interfaces.Address
	Ledger     api.LedgerAPI
	Resolver   DomainResolver
	Source     PackageSource
	Decompiler Decompiler
	Explainer  Explainer
	Storage    interfaces.StorageBackend
	Metrics    *metrics.WorkerMetrics
	Log        *slog.Logger

	// Concurrency bounds the packages processed in parallel. Defaults to 4.
	Concurrency int
}

// Worker scans registry members and publishes an artifact record for every
// package their domains advertise that has not been recorded yet.
type Worker struct {
	Deps

	// submissions share the admin's sequence number
	submitMu sync.Mutex
}

// ScanReport summarises one scan.
type ScanReport struct {
	Members  int
	Domains  int
	Packages int
	Stored   int
	Skipped  int
	Failed   int
}

func New(deps Deps) *Worker {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Concurrency <= 0 {
		deps.Concurrency = 4
	}
	return &Worker{Deps: deps}
}

// Run scans immediately and then every interval until ctx is cancelled.
// Failed scans are logged and retried on the next tick.
func (w *Worker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := w.Scan(ctx)
		if err != nil {
			w.Log.Error("Scan failed", "err", err)
		} else {
			w.Log.Info("Scan completed",
				slog.Int("members", report.Members),
				slog.Int("domains", report.Domains),
				slog.Int("packages", report.Packages),
				slog.Int("stored", report.Stored),
				slog.Int("skipped", report.Skipped),
				slog.Int("failed", report.Failed))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type target struct {
	domain    string
	packageID interfaces.Address
}

// Scan runs one pass over the registry. Per-package failures are counted and
// logged; only failures to read the member list abort the scan.
func (w *Worker) Scan(ctx context.Context) (*ScanReport, error) {
	start := time.Now()

	members, err := w.Ledger.Members(ctx, w.RegistryID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	domains := uniqueDomains(members)
	report := &ScanReport{Members: len(members), Domains: len(domains)}

	// Records are namespaced by the domain exactly as registered; only the
	// DNS lookup uses the normalized name.
	resolved := make(map[string][]interfaces.Address)
	var targets []target
	for _, domain := range domains {
		name := normalizeDomain(domain)
		ids, ok := resolved[name]
		if !ok {
			ids, err = w.Resolver.ResolvePackages(ctx, name)
			if err != nil {
				w.Log.Warn("Failed to resolve domain packages",
					slog.String("domain", domain),
					"err", err)
				continue
			}
			resolved[name] = ids
		}
		for _, id := range ids {
			targets = append(targets, target{domain: domain, packageID: id})
		}
	}
	report.Packages = len(targets)

	var stored, skipped, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(w.Concurrency)
	for _, t := range targets {
		g.Go(func() error {
			outcome, err := w.processPackage(ctx, t)
			if err != nil {
				outcome = metrics.OutcomeFailed
				w.Log.Error("Failed to process package",
					slog.String("domain", t.domain),
					slog.String("package", t.packageID.String()),
					"err", err)
			}
			switch outcome {
			case metrics.OutcomeStored:
				stored.Inc()
			case metrics.OutcomeSkipped:
				skipped.Inc()
			default:
				failed.Inc()
			}
			w.Metrics.ObservePackage(outcome)
			return nil
		})
	}
	_ = g.Wait()

	report.Stored = int(stored.Load())
	report.Skipped = int(skipped.Load())
	report.Failed = int(failed.Load())
	w.Metrics.ObserveScan(report.Members, time.Since(start))
	return report, nil
}

func (w *Worker) processPackage(ctx context.Context, t target) (string, error) {
	exists, err := w.Ledger.ArtifactExists(ctx, w.RegistryID, t.domain, t.packageID)
	if err != nil {
		return "", fmt.Errorf("check existing record: %w", err)
	}
	if exists {
		return metrics.OutcomeSkipped, nil
	}

	bytecode, err := w.Source.FetchPackage(ctx, t.packageID)
	if err != nil {
		return "", err
	}

	source, err := w.Decompiler.Decompile(ctx, bytecode)
	if err != nil {
		return "", err
	}

	explanation, err := w.Explainer.Explain(ctx, t.domain, t.packageID, source)
	if err != nil {
		return "", err
	}

	sourceID, err := w.Storage.Store(ctx, source, interfaces.ArtifactType)
	if err != nil {
		return "", fmt.Errorf("store source: %w", err)
	}
	explanationID, err := w.Storage.Store(ctx, explanation, interfaces.ExplanationType)
	if err != nil {
		return "", fmt.Errorf("store explanation: %w", err)
	}

	w.submitMu.Lock()
	resp, err := w.Ledger.StoreBlob(ctx, &api.StoreBlobRequest{
		RegistryID:         w.RegistryID,
		AdminCap:           w.AdminCap,
		Namespace:          t.domain,
		RecordLocator:      sourceID.Locator(),
		ExplanationLocator: explanationID.Locator(),
		ScopeID:            t.packageID,
	})
	w.submitMu.Unlock()

	if errors.Is(err, interfaces.ErrDerivedObjectAlreadyExists) {
		return metrics.OutcomeSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("store_blob: %w", err)
	}

	w.Log.Info("Stored artifact record",
		slog.String("domain", t.domain),
		slog.String("package", t.packageID.String()),
		slog.String("record", resp.Result.String()))
	return metrics.OutcomeStored, nil
}

// uniqueDomains returns the distinct registered domains, unmodified, in
// sorted order.
func uniqueDomains(members []registry.Member) []string {
	seen := make(map[string]struct{}, len(members))
	domains := make([]string, 0, len(members))
	for _, m := range members {
		if normalizeDomain(m.Domain) == "" {
			continue
		}
		if _, ok := seen[m.Domain]; ok {
			continue
		}
		seen[m.Domain] = struct{}{}
		domains = append(domains, m.Domain)
	}
	sort.Strings(domains)
	return domains
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
}
