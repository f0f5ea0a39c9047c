package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ruteri/canary-registry/api"
	"github.com/ruteri/canary-registry/api/clients"
	"github.com/ruteri/canary-registry/cryptoutils"
	"github.com/ruteri/canary-registry/interfaces"
	"github.com/ruteri/canary-registry/ledger"
	"github.com/urfave/cli/v2"
)

var keygenCommand = &cli.Command{
	Name:  "keygen",
	Usage: "generate a signing key and print its principal",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "out", Required: true, Usage: "file to write the hex private key to"},
	},
	Action: func(cCtx *cli.Context) error {
		key, err := cryptoutils.GenerateKey()
		if err != nil {
			return err
		}
		if err := cryptoutils.SaveKeyFile(cCtx.String("out"), key); err != nil {
			return err
		}
		fmt.Println(cryptoutils.Principal(&key.PublicKey))
		return nil
	},
}

var addressCommand = &cli.Command{
	Name:  "address",
	Usage: "print the principal of --key-file",
	Action: func(cCtx *cli.Context) error {
		client, err := newClient(cCtx, true)
		if err != nil {
			return err
		}
		sender, err := client.Sender()
		if err != nil {
			return err
		}
		fmt.Println(sender)
		return nil
	},
}

var accountCommand = &cli.Command{
	Name:  "account",
	Usage: "show sequence, balance and owned objects of a principal",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "address", Usage: "principal, defaults to the --key-file principal"},
	},
	Action: func(cCtx *cli.Context) error {
		client, err := newClient(cCtx, false)
		if err != nil {
			return err
		}
		var addr interfaces.Address
		if cCtx.IsSet("address") {
			addr, err = addressFlag(cCtx, "address")
		} else {
			addr, err = client.Sender()
		}
		if err != nil {
			return err
		}
		account, err := client.Account(cCtx.Context, addr)
		if err != nil {
			return err
		}
		return printJSON(account)
	},
}

var joinCommand = &cli.Command{
	Name:  "join",
	Usage: "pay the membership fee and register a domain",
	Flags: []cli.Flag{
		flagRegistry,
		&cli.StringFlag{Name: "domain", Required: true, Usage: "domain to register"},
		&cli.StringFlag{Name: "coin", Usage: "payment coin; by default a coin covering the fee is split off an owned coin"},
	},
	Action: func(cCtx *cli.Context) error {
		client, err := newClient(cCtx, true)
		if err != nil {
			return err
		}
		registryID, err := addressFlag(cCtx, flagRegistry.Name)
		if err != nil {
			return err
		}

		var coinID interfaces.Address
		if cCtx.IsSet("coin") {
			coinID, err = addressFlag(cCtx, "coin")
		} else {
			coinID, err = paymentCoin(cCtx, client, registryID)
		}
		if err != nil {
			return err
		}

		resp, err := client.Join(cCtx.Context, &api.JoinRequest{
			RegistryID:  registryID,
			PaymentCoin: coinID,
			Domain:      cCtx.String("domain"),
		})
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

// paymentCoin returns a coin worth exactly the registry fee, splitting one
// off the smallest owned coin that covers it.
func paymentCoin(cCtx *cli.Context, client *clients.LedgerClient, registryID interfaces.Address) (interfaces.Address, error) {
	info, err := client.RegistryInfo(cCtx.Context, registryID)
	if err != nil {
		return interfaces.Address{}, err
	}
	sender, err := client.Sender()
	if err != nil {
		return interfaces.Address{}, err
	}
	account, err := client.Account(cCtx.Context, sender)
	if err != nil {
		return interfaces.Address{}, err
	}

	var best *ledger.Object
	var bestValue uint64
	for i := range account.Objects {
		obj := &account.Objects[i]
		if obj.Type != ledger.CoinType {
			continue
		}
		var coin ledger.Coin
		if err := json.Unmarshal(obj.Contents, &coin); err != nil {
			return interfaces.Address{}, err
		}
		if coin.Value >= info.Fee && (best == nil || coin.Value < bestValue) {
			best, bestValue = obj, coin.Value
		}
	}
	if best == nil {
		return interfaces.Address{}, fmt.Errorf("%w: no coin covers the fee of %d", interfaces.ErrInsufficientPayment, info.Fee)
	}
	if bestValue == info.Fee {
		return best.ID, nil
	}

	resp, err := client.SplitCoin(cCtx.Context, &api.SplitCoinRequest{Coin: best.ID, Amount: info.Fee})
	if err != nil {
		return interfaces.Address{}, fmt.Errorf("split payment coin: %w", err)
	}
	return resp.Result, nil
}

var removeMemberCommand = &cli.Command{
	Name:  "remove-member",
	Usage: "remove a member from the roster",
	Flags: []cli.Flag{
		flagRegistry,
		flagAdminCap,
		&cli.StringFlag{Name: "member", Required: true, Usage: "member principal"},
	},
	Action: func(cCtx *cli.Context) error {
		client, registryID, adminCap, err := adminArgs(cCtx)
		if err != nil {
			return err
		}
		member, err := addressFlag(cCtx, "member")
		if err != nil {
			return err
		}
		resp, err := client.RemoveMember(cCtx.Context, &api.RemoveMemberRequest{
			RegistryID: registryID,
			AdminCap:   adminCap,
			Member:     member,
		})
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var withdrawCommand = &cli.Command{
	Name:  "withdraw",
	Usage: "withdraw collected fees to the admin",
	Flags: []cli.Flag{
		flagRegistry,
		flagAdminCap,
		&cli.Uint64Flag{Name: "amount", Required: true},
	},
	Action: func(cCtx *cli.Context) error {
		client, registryID, adminCap, err := adminArgs(cCtx)
		if err != nil {
			return err
		}
		resp, err := client.Withdraw(cCtx.Context, &api.WithdrawRequest{
			RegistryID: registryID,
			AdminCap:   adminCap,
			Amount:     cCtx.Uint64("amount"),
		})
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var updateFeeCommand = &cli.Command{
	Name:  "update-fee",
	Usage: "change the membership fee",
	Flags: []cli.Flag{
		flagRegistry,
		flagAdminCap,
		&cli.Uint64Flag{Name: "fee", Required: true},
	},
	Action: func(cCtx *cli.Context) error {
		client, registryID, adminCap, err := adminArgs(cCtx)
		if err != nil {
			return err
		}
		resp, err := client.UpdateFee(cCtx.Context, &api.UpdateFeeRequest{
			RegistryID: registryID,
			AdminCap:   adminCap,
			Fee:        cCtx.Uint64("fee"),
		})
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var storeBlobCommand = &cli.Command{
	Name:  "store-blob",
	Usage: "create the artifact record for (namespace, scope)",
	Flags: []cli.Flag{
		flagRegistry,
		flagAdminCap,
		flagNamespace,
		flagScope,
		flagRecordLocator,
		flagExplanationLocator,
	},
	Action: func(cCtx *cli.Context) error {
		client, registryID, adminCap, err := adminArgs(cCtx)
		if err != nil {
			return err
		}
		scopeID, err := addressFlag(cCtx, flagScope.Name)
		if err != nil {
			return err
		}
		resp, err := client.StoreBlob(cCtx.Context, &api.StoreBlobRequest{
			RegistryID:         registryID,
			AdminCap:           adminCap,
			Namespace:          cCtx.String(flagNamespace.Name),
			RecordLocator:      interfaces.Locator(cCtx.String(flagRecordLocator.Name)),
			ExplanationLocator: interfaces.Locator(cCtx.String(flagExplanationLocator.Name)),
			ScopeID:            scopeID,
		})
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var updateBlobCommand = &cli.Command{
	Name:  "update-blob",
	Usage: "replace the locators of an artifact record",
	Flags: []cli.Flag{
		flagRegistry,
		flagAdminCap,
		flagRecord,
		flagRecordLocator,
		flagExplanationLocator,
	},
	Action: func(cCtx *cli.Context) error {
		client, registryID, adminCap, err := adminArgs(cCtx)
		if err != nil {
			return err
		}
		recordID, err := addressFlag(cCtx, flagRecord.Name)
		if err != nil {
			return err
		}
		resp, err := client.UpdateBlob(cCtx.Context, &api.UpdateBlobRequest{
			RegistryID:         registryID,
			AdminCap:           adminCap,
			RecordID:           recordID,
			RecordLocator:      interfaces.Locator(cCtx.String(flagRecordLocator.Name)),
			ExplanationLocator: interfaces.Locator(cCtx.String(flagExplanationLocator.Name)),
		})
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var deleteArtifactCommand = &cli.Command{
	Name:  "delete-artifact",
	Usage: "delete an artifact record, freeing its derived address",
	Flags: []cli.Flag{
		flagRegistry,
		flagAdminCap,
		flagRecord,
	},
	Action: func(cCtx *cli.Context) error {
		client, registryID, adminCap, err := adminArgs(cCtx)
		if err != nil {
			return err
		}
		recordID, err := addressFlag(cCtx, flagRecord.Name)
		if err != nil {
			return err
		}
		resp, err := client.DeleteArtifact(cCtx.Context, &api.DeleteArtifactRequest{
			RegistryID: registryID,
			AdminCap:   adminCap,
			RecordID:   recordID,
		})
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var deriveCommand = &cli.Command{
	Name:  "derive",
	Usage: "print the derived record address for (namespace, scope)",
	Flags: []cli.Flag{flagRegistry, flagNamespace, flagScope},
	Action: func(cCtx *cli.Context) error {
		client, registryID, scopeID, err := artifactArgs(cCtx)
		if err != nil {
			return err
		}
		resp, err := client.DeriveArtifact(cCtx.Context, registryID, cCtx.String(flagNamespace.Name), scopeID)
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var existsCommand = &cli.Command{
	Name:  "exists",
	Usage: "report whether a record exists for (namespace, scope)",
	Flags: []cli.Flag{flagRegistry, flagNamespace, flagScope},
	Action: func(cCtx *cli.Context) error {
		client, registryID, scopeID, err := artifactArgs(cCtx)
		if err != nil {
			return err
		}
		exists, err := client.ArtifactExists(cCtx.Context, registryID, cCtx.String(flagNamespace.Name), scopeID)
		if err != nil {
			return err
		}
		return printJSON(api.ExistsResponse{Exists: exists})
	},
}

var membersCommand = &cli.Command{
	Name:  "members",
	Usage: "list the roster",
	Flags: []cli.Flag{flagRegistry},
	Action: func(cCtx *cli.Context) error {
		client, err := newClient(cCtx, false)
		if err != nil {
			return err
		}
		registryID, err := addressFlag(cCtx, flagRegistry.Name)
		if err != nil {
			return err
		}
		members, err := client.Members(cCtx.Context, registryID)
		if err != nil {
			return err
		}
		return printJSON(members)
	},
}

var memberCommand = &cli.Command{
	Name:  "member",
	Usage: "show the membership of a principal",
	Flags: []cli.Flag{
		flagRegistry,
		&cli.StringFlag{Name: "address", Required: true, Usage: "member principal"},
	},
	Action: func(cCtx *cli.Context) error {
		client, err := newClient(cCtx, false)
		if err != nil {
			return err
		}
		registryID, err := addressFlag(cCtx, flagRegistry.Name)
		if err != nil {
			return err
		}
		member, err := addressFlag(cCtx, "address")
		if err != nil {
			return err
		}
		resp, err := client.Member(cCtx.Context, registryID, member)
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var infoCommand = &cli.Command{
	Name:  "info",
	Usage: "show registry fee, balance, admin and member count",
	Flags: []cli.Flag{flagRegistry},
	Action: func(cCtx *cli.Context) error {
		client, err := newClient(cCtx, false)
		if err != nil {
			return err
		}
		registryID, err := addressFlag(cCtx, flagRegistry.Name)
		if err != nil {
			return err
		}
		info, err := client.RegistryInfo(cCtx.Context, registryID)
		if err != nil {
			return err
		}
		return printJSON(info)
	},
}

var splitCoinCommand = &cli.Command{
	Name:  "split-coin",
	Usage: "split an amount off an owned coin",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "coin", Required: true},
		&cli.Uint64Flag{Name: "amount", Required: true},
	},
	Action: func(cCtx *cli.Context) error {
		client, err := newClient(cCtx, true)
		if err != nil {
			return err
		}
		coinID, err := addressFlag(cCtx, "coin")
		if err != nil {
			return err
		}
		resp, err := client.SplitCoin(cCtx.Context, &api.SplitCoinRequest{Coin: coinID, Amount: cCtx.Uint64("amount")})
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var mergeCoinsCommand = &cli.Command{
	Name:  "merge-coins",
	Usage: "merge owned coins into one",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "primary", Required: true},
		&cli.StringSliceFlag{Name: "other", Required: true},
	},
	Action: func(cCtx *cli.Context) error {
		client, err := newClient(cCtx, true)
		if err != nil {
			return err
		}
		primary, err := addressFlag(cCtx, "primary")
		if err != nil {
			return err
		}
		var others []interfaces.Address
		for _, s := range cCtx.StringSlice("other") {
			id, err := interfaces.NewAddressFromHex(s)
			if err != nil {
				return fmt.Errorf("--other: %w", err)
			}
			others = append(others, id)
		}
		resp, err := client.MergeCoins(cCtx.Context, &api.MergeCoinsRequest{Primary: primary, Others: others})
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

var transferCommand = &cli.Command{
	Name:  "transfer",
	Usage: "transfer an owned object such as a coin or capability",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "object", Required: true},
		&cli.StringFlag{Name: "to", Required: true},
	},
	Action: func(cCtx *cli.Context) error {
		client, err := newClient(cCtx, true)
		if err != nil {
			return err
		}
		objectID, err := addressFlag(cCtx, "object")
		if err != nil {
			return err
		}
		to, err := addressFlag(cCtx, "to")
		if err != nil {
			return err
		}
		resp, err := client.TransferObject(cCtx.Context, &api.TransferObjectRequest{Object: objectID, Recipient: to})
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

func adminArgs(cCtx *cli.Context) (*clients.LedgerClient, interfaces.Address, interfaces.Address, error) {
	client, err := newClient(cCtx, true)
	if err != nil {
		return nil, interfaces.Address{}, interfaces.Address{}, err
	}
	registryID, err := addressFlag(cCtx, flagRegistry.Name)
	if err != nil {
		return nil, interfaces.Address{}, interfaces.Address{}, err
	}
	adminCap, err := addressFlag(cCtx, flagAdminCap.Name)
	if err != nil {
		return nil, interfaces.Address{}, interfaces.Address{}, err
	}
	return client, registryID, adminCap, nil
}

func artifactArgs(cCtx *cli.Context) (*clients.LedgerClient, interfaces.Address, interfaces.Address, error) {
	client, err := newClient(cCtx, false)
	if err != nil {
		return nil, interfaces.Address{}, interfaces.Address{}, err
	}
	registryID, err := addressFlag(cCtx, flagRegistry.Name)
	if err != nil {
		return nil, interfaces.Address{}, interfaces.Address{}, err
	}
	scopeID, err := addressFlag(cCtx, flagScope.Name)
	if err != nil {
		return nil, interfaces.Address{}, interfaces.Address{}, err
	}
	if cCtx.String(flagNamespace.Name) == "" {
		return nil, interfaces.Address{}, interfaces.Address{}, errors.New("--namespace must not be empty")
	}
	return client, registryID, scopeID, nil
}

var keySplitCommand = &cli.Command{
	Name:  "key-split",
	Usage: "split --key-file into Shamir shares, one per line on stdout",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "shares", Value: 5},
		&cli.IntFlag{Name: "threshold", Value: 3},
	},
	Action: func(cCtx *cli.Context) error {
		client, err := newClient(cCtx, true)
		if err != nil {
			return err
		}
		shares, err := cryptoutils.SplitKey(client.Key, cCtx.Int("shares"), cCtx.Int("threshold"))
		if err != nil {
			return err
		}
		for _, share := range shares {
			fmt.Println(share)
		}
		return nil
	},
}

var keyCombineCommand = &cli.Command{
	Name:  "key-combine",
	Usage: "rebuild a signing key from Shamir shares",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "share", Required: true, Usage: "hex share; repeat for each share"},
		&cli.StringFlag{Name: "out", Required: true, Usage: "file to write the hex private key to"},
		&cli.StringFlag{Name: "expect", Usage: "principal the rebuilt key must control"},
	},
	Action: func(cCtx *cli.Context) error {
		key, err := cryptoutils.CombineKey(cCtx.StringSlice("share"))
		if err != nil {
			return err
		}
		principal := cryptoutils.Principal(&key.PublicKey)
		if cCtx.IsSet("expect") {
			expected, err := addressFlag(cCtx, "expect")
			if err != nil {
				return err
			}
			if principal != expected {
				return fmt.Errorf("rebuilt key controls %s, expected %s", principal, expected)
			}
		}
		if err := cryptoutils.SaveKeyFile(cCtx.String("out"), key); err != nil {
			return err
		}
		fmt.Println(principal)
		return nil
	},
}
