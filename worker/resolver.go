package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/miekg/dns"
	"github.com/ruteri/canary-registry/interfaces"
)

// recordPrefix is the label under which members publish their package IDs.
const recordPrefix = "_canary."

// DomainResolver maps a member domain to the on-chain package IDs it
// publishes.
type DomainResolver interface {
	ResolvePackages(ctx context.Context, domain string) ([]interfaces.Address, error)
}

// DNSResolver reads package IDs from TXT records at _canary.<domain>. Each
// TXT string may hold several whitespace or comma separated 0x-prefixed IDs;
// anything else in the record is skipped.
type DNSResolver struct {
	server string
	client *dns.Client
}

// NewDNSResolver creates a resolver querying server (host:port).
func NewDNSResolver(server string) *DNSResolver {
	return &DNSResolver{
		server: server,
		client: new(dns.Client),
	}
}

func (r *DNSResolver) ResolvePackages(ctx context.Context, domain string) ([]interfaces.Address, error) {
	name := dns.Fqdn(recordPrefix + strings.TrimSuffix(domain, "."))

	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeTXT)
	m.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	if in.Rcode == dns.RcodeNameError {
		return nil, nil
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("query %s: %s", name, dns.RcodeToString[in.Rcode])
	}

	seen := make(map[interfaces.Address]struct{})
	var ids []interfaces.Address
	for _, answer := range in.Answer {
		txt, ok := answer.(*dns.TXT)
		if !ok {
			continue
		}
		for _, s := range txt.Txt {
			for _, field := range strings.FieldsFunc(s, func(c rune) bool { return c == ',' || c == ' ' }) {
				if !strings.HasPrefix(field, "0x") {
					continue
				}
				id, err := interfaces.NewAddressFromHex(field)
				if err != nil {
					continue
				}
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}
