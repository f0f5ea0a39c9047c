// Package main (cmd/ledgerd) runs the canary registry ledger node.
//
// The node keeps the ledger state in memory, sqlite or postgres, executes
// signed transactions submitted over HTTP and answers registry and artifact
// queries. On first start against an empty store it mints faucet coins and
// initializes the registry with the configured admin and fee.
//
// Usage:
//
//	ledgerd --listen-addr=127.0.0.1:8080 --store=sqlite --store-dsn=./canary.db \
//	  --genesis-admin=0x... --genesis-fee=1000000000 \
//	  --genesis-faucet=0x...=5000000000
//
// Liveness, readiness and drain endpoints are served next to the API.
// Prometheus metrics are exposed on --metrics-addr.
package main
