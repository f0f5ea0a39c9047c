/*
Package api defines the wire types of the canary ledger HTTP service and the
configuration of its server.

Transactions are submitted as POST /api/tx/{op} with a JSON request body and
the SignatureHeader. Every request embeds TxHeader; its sequence number must
match the sender's next sequence or the request is rejected without being
executed.

Committed transactions return TxResponse. Failed requests return an
ErrorResponse whose Error field is an abort reason such as "NotAdmin" or
"DerivedObjectAlreadyExists"; clients map it back with
interfaces.ErrorFromReason.

The clients subpackage implements LedgerAPI over HTTP.
*/
package api
