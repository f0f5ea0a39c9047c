// Package main (cmd/canary-worker) runs the off-ledger worker that watches
// registry members, resolves their domains to package IDs, and publishes
// decompiled source and explanations as artifact records.
//
// Configuration comes from CANARY_* environment variables, see worker.Config.
// With --once a single scan is run; otherwise the worker scans every
// TASK_INTERVAL_SECONDS until interrupted.
package main
