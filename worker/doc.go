// Package worker implements the periodic scan that feeds the artifact store.
//
// Each scan lists the registry members, resolves the packages every member
// domain advertises in its _canary TXT record, and for each package without a
// record yet fetches the bytecode, decompiles it, asks the explainer for a
// description, stores both payloads and submits store_blob as the registry
// admin. The record address is derived from (domain, package ID), so the
// worker checks for it before doing any work and a record written by a
// concurrent worker shows up as a skip, not a failure.
package worker
