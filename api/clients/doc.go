/*
Package clients implements api.LedgerAPI over HTTP.

LedgerClient signs every transaction request with the configured principal
key and, unless a sequence is set explicitly, fetches the sender's next
sequence number from the server first:

	client := clients.NewLedgerClient("http://127.0.0.1:8080", key)
	resp, err := client.Join(ctx, &api.JoinRequest{
		RegistryID:  registryID,
		PaymentCoin: coinID,
		Domain:      "acme.example",
	})
	if errors.Is(err, interfaces.ErrAlreadyMember) {
		...
	}

Abort reasons returned by the server surface as *APIError values that unwrap
to the matching interfaces sentinel error.

MockLedgerAPI is a testify mock of the same interface.
*/
package clients
