// Package cmd implements the slowmesh-demo CLI using cobra and viper,
// following the config/flag wiring of otus-packet's cmd package.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	bind       string
	junctionID string
	transport  string
)

var rootCmd = &cobra.Command{
	Use:     "slowmesh-demo",
	Short:   "slowmesh-demo - run and probe a slowmesh overlay junction",
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./slowmesh-demo.yml)")
	rootCmd.PersistentFlags().StringVar(&bind, "listen", "127.0.0.1:0", "address to bind the junction's socket to")
	rootCmd.PersistentFlags().StringVar(&junctionID, "id", "", "this junction's identifier")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "udp", "transport to use: udp or tcp")

	viper.BindPFlag("listen", rootCmd.PersistentFlags().Lookup("listen"))
	viper.BindPFlag("id", rootCmd.PersistentFlags().Lookup("id"))
	viper.BindPFlag("transport", rootCmd.PersistentFlags().Lookup("transport"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sendCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("slowmesh-demo")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "slowmesh-demo: failed to read config: %v\n", err)
		}
	}
}
