// Package main (cmd/canaryctl) is the command line client for the canary
// registry ledger.
//
// Queries (members, member, info, derive, exists, account) need only
// --server-addr. Transactions are signed with the secp256k1 key in
// --key-file, whose principal is the sender.
//
// Example workflow:
//
//  1. Create a key and note its principal:
//     canaryctl keygen --out=member.key
//
//  2. Join with a domain, paying the current fee:
//     canaryctl --key-file=member.key join --registry=0x... --domain=example.com
//
//  3. Check the artifact record derived for a package:
//     canaryctl exists --registry=0x... --namespace=example.com --scope=0x...
//
// The admin key can be held by several operators with key-split and
// rebuilt with key-combine once enough shares are collected.
package main
