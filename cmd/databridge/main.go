// Command databridge exercises the adapter library end to end: it loads
// connection definitions from a YAML file, connects each one, and reports
// liveness and stats.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Zyleree/PineMCP/internal/database"
	"github.com/Zyleree/PineMCP/pkg/adapter"
)

var (
	cfgFile string
	debug   bool
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "databridge",
		Short:        "Uniform access to relational, key-value and document databases",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "databridge.yaml", "connection definitions file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall command timeout")

	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Connect every configured database and report liveness and stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			configs, err := loadConfigs(cfgFile)
			if err != nil {
				return err
			}
			if len(configs) == 0 {
				return fmt.Errorf("no connections defined in %s", cfgFile)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			manager := database.NewManager(logger)
			defer manager.DisconnectAll(context.Background()) //nolint:errcheck

			failures := 0
			for _, config := range configs {
				id, err := manager.Connect(ctx, config)
				if err != nil {
					failures++
					fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-12s connect failed: %v\n",
						config.InstanceID, config.DatabaseType, err)
					continue
				}

				a, err := manager.Get(id)
				if err != nil {
					return err
				}

				alive := a.ValidateConnection(ctx)
				line := fmt.Sprintf("%-20s %-12s alive=%-5v", id, a.Type(), alive)

				if stats, err := a.GetDatabaseStats(ctx); err == nil {
					line += fmt.Sprintf(" tables=%d indexes=%d size=%s connections=%d",
						stats.TableCount, stats.IndexCount, stats.Size, stats.ActiveConnections)
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)

				if !alive {
					failures++
				}
			}

			if failures > 0 {
				return fmt.Errorf("%d of %d connections failed validation", failures, len(configs))
			}
			return nil
		},
	}
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadConfigs reads the connections list from the YAML definitions file.
func loadConfigs(path string) ([]adapter.ConnectionConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var configs []adapter.ConnectionConfig
	if err := v.UnmarshalKey("connections", &configs); err != nil {
		return nil, fmt.Errorf("error parsing connections from %s: %w", path, err)
	}
	return configs, nil
}
