/*
Package httpserver serves the canary ledger over HTTP.

Transactions are submitted as POST /api/tx/{op}. The request body is the JSON
request of the operation (see package api) and the X-Canary-Signature header
holds a recoverable secp256k1 signature over the method, path and body. The
recovered principal is the transaction sender; the sequence number in the
body must match the sender's next sequence.

Queries:

	GET /api/registry/{id}                          registry summary
	GET /api/registry/{id}/members                  roster in index order
	GET /api/registry/{id}/members/{addr}           membership of one principal
	GET /api/registry/{id}/artifacts/derive         ?namespace=&scope= derived address
	GET /api/registry/{id}/artifacts/exists         ?namespace=&scope= existence check
	GET /api/objects/{id}                           raw ledger object
	GET /api/accounts/{addr}                        sequence, coin balance and owned objects

Aborted transactions answer with an api.ErrorResponse carrying the abort
reason and the effects of the aborted transaction. Health endpoints
(/livez, /readyz, /drain, /undrain) and the optional pprof mount follow the
usual service layout; metrics are served on a separate listener.
*/
package httpserver
