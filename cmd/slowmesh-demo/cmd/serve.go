package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jython234/slowmesh/junction"
	"github.com/jython234/slowmesh/junctionid"
	"github.com/jython234/slowmesh/metrics"
)

var (
	seedAddr    string
	metricsAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a junction and optionally join a seed peer",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&seedAddr, "seed", "", "peer address to join on startup")
	serveCmd.Flags().StringVar(&metricsAddr, "metrics-listen", "", "if set, serve Prometheus metrics on this address")
}

func runServe(cmd *cobra.Command, args []string) error {
	id := viper.GetString("id")
	if id == "" {
		return fmt.Errorf("slowmesh-demo: --id is required")
	}
	bindAddr := viper.GetString("listen")
	tr := viper.GetString("transport")

	var j junction.Junction
	var err error

	switch tr {
	case "udp":
		j, err = junction.NewUDPJunction(bindAddr, junctionid.New(id))
	case "tcp":
		j, err = junction.NewTCPJunction(bindAddr, junctionid.New(id))
	default:
		return fmt.Errorf("slowmesh-demo: unknown transport %q (want udp or tcp)", tr)
	}
	if err != nil {
		return fmt.Errorf("slowmesh-demo: failed to start junction: %w", err)
	}
	defer j.Close()

	if metricsAddr != "" {
		collector := metrics.NewJunctionCollector()
		collector.Add(id, j)
		prometheus.MustRegister(collector)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go http.ListenAndServe(metricsAddr, mux)
	}

	if seedAddr != "" {
		if err := j.Join(context.Background(), seedAddr); err != nil {
			return fmt.Errorf("slowmesh-demo: failed to join %s: %w", seedAddr, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "slowmesh-demo: junction %q listening via %s\n", id, tr)
	select {}
}
