package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/polygate/polygate/pkg/config"
	"github.com/polygate/polygate/pkg/factory"
	"github.com/polygate/polygate/pkg/telemetry/logging"
)

var validateFlags struct {
	secrets bool
	probe   bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without starting the gateway.

By default only the file itself is checked. With --secrets the
referenced environment variables must be set; with --probe each
provider's credential is verified against the live API.

Examples:
  # Check the file
  polygate validate --config config.yaml

  # Check the file and the environment
  polygate validate --config config.yaml --secrets

  # Verify every credential upstream
  polygate validate --config config.yaml --probe`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.secrets, "secrets", false, "require referenced environment variables to be set")
	validateCmd.Flags().BoolVar(&validateFlags.probe, "probe", false, "verify each provider credential upstream (implies --secrets)")
}

// probeTimeout bounds each credential verification call.
const probeTimeout = 15 * time.Second

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	fmt.Printf("%s: configuration valid (%d providers, %d deployments, %d priced models)\n",
		cfgFile, len(cfg.Providers), len(cfg.Deployments), len(cfg.Pricing))

	if validateFlags.secrets || validateFlags.probe {
		if err := cfg.ResolveSecrets(); err != nil {
			return err
		}
		fmt.Println("secrets: all referenced environment variables are set")
	}

	if !validateFlags.probe {
		return nil
	}

	logger := logging.Setup(logging.Config{Level: "warn", Format: "text"}, os.Stderr)
	gateway, err := factory.New(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer gateway.Close()

	failures := 0
	for _, provider := range cfg.Providers {
		client, err := gateway.VerificationClient(provider.Name)
		if err != nil {
			fmt.Printf("%s: FAIL (%v)\n", provider.Name, err)
			failures++
			continue
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
		check, err := client.VerifyAuth(ctx)
		cancel()
		client.Close()
		switch {
		case err != nil:
			fmt.Printf("%s: FAIL (%v)\n", provider.Name, err)
			failures++
		case !check.OK:
			fmt.Printf("%s: FAIL (%s: %s)\n", provider.Name, check.Reason, check.Detail)
			failures++
		default:
			fmt.Printf("%s: OK\n", provider.Name)
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d providers failed verification", failures, len(cfg.Providers))
	}
	return nil
}
