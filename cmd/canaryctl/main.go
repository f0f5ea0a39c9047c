package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ruteri/canary-registry/api/clients"
	"github.com/ruteri/canary-registry/cmd/flags"
	"github.com/ruteri/canary-registry/cryptoutils"
	"github.com/ruteri/canary-registry/interfaces"
	"github.com/urfave/cli/v2"
)

var flagRegistry = &cli.StringFlag{
	Name:     "registry",
	Required: true,
	Usage:    "registry object ID",
	EnvVars:  []string{"CANARY_REGISTRY_ID"},
}
var flagAdminCap = &cli.StringFlag{
	Name:     "admin-cap",
	Required: true,
	Usage:    "admin capability object ID",
	EnvVars:  []string{"CANARY_ADMIN_CAP"},
}
var flagNamespace = &cli.StringFlag{
	Name:     "namespace",
	Required: true,
	Usage:    "artifact namespace, usually the member domain",
}
var flagScope = &cli.StringFlag{
	Name:     "scope",
	Required: true,
	Usage:    "artifact scope ID, usually the package ID",
}
var flagRecord = &cli.StringFlag{
	Name:     "record",
	Required: true,
	Usage:    "artifact record object ID",
}
var flagRecordLocator = &cli.StringFlag{
	Name:     "record-locator",
	Required: true,
	Usage:    "locator of the decompiled source payload",
}
var flagExplanationLocator = &cli.StringFlag{
	Name:     "explanation-locator",
	Required: true,
	Usage:    "locator of the explanation payload",
}

func main() {
	app := &cli.App{
		Name:  "canaryctl",
		Usage: "Inspect and transact with the canary registry ledger",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flags.KeyFileFlag,
		},
		Commands: []*cli.Command{
			keygenCommand,
			keySplitCommand,
			keyCombineCommand,
			addressCommand,
			accountCommand,
			joinCommand,
			removeMemberCommand,
			withdrawCommand,
			updateFeeCommand,
			storeBlobCommand,
			updateBlobCommand,
			deleteArtifactCommand,
			deriveCommand,
			existsCommand,
			membersCommand,
			memberCommand,
			infoCommand,
			splitCoinCommand,
			mergeCoinsCommand,
			transferCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newClient returns a ledger client. Signing commands require --key-file.
func newClient(cCtx *cli.Context, signing bool) (*clients.LedgerClient, error) {
	client := clients.NewLedgerClient(cCtx.String(flags.ServerAddrFlag.Name), nil)
	keyFile := cCtx.String(flags.KeyFileFlag.Name)
	if keyFile == "" {
		if signing {
			return nil, errors.New("--key-file is required to sign transactions")
		}
		return client, nil
	}

	key, err := cryptoutils.LoadKeyFile(keyFile)
	if err != nil {
		return nil, err
	}
	client.Key = key
	return client, nil
}

func addressFlag(cCtx *cli.Context, name string) (interfaces.Address, error) {
	addr, err := interfaces.NewAddressFromHex(cCtx.String(name))
	if err != nil {
		return interfaces.Address{}, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
