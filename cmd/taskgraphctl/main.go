// Command taskgraphctl runs the bundled example graphs, prints their DOT
// representation, and reports pool/timer stats, for exercising the
// taskgraph engine outside of a test binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	logger  *zap.Logger

	rootCmd = &cobra.Command{
		Use:   "taskgraphctl",
		Short: "Run and inspect example taskgraph graphs",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./taskgraphctl.yaml)")
	rootCmd.PersistentFlags().Int("workers", 4, "thread pool size for graphs run with --executor=pool")
	rootCmd.PersistentFlags().String("executor", "sequential", `executor to run the graph with: "sequential" or "pool"`)
	rootCmd.PersistentFlags().Int("pool-min", 2, "minimum size of the demo task pool")
	rootCmd.PersistentFlags().Int("pool-max", 16, "maximum size of the demo task pool")

	for _, name := range []string{"workers", "executor", "pool-min", "pool-max"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("taskgraphctl")
	viper.AutomaticEnv()

	rootCmd.AddCommand(runCmd, dotCmd, poolCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("taskgraphctl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	// A missing config file is not an error — flags and env vars alone are
	// enough to run any command.
	_ = viper.ReadInConfig()
}

func main() {
	cobra.OnInitialize(initConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
