package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jython234/slowmesh/junction"
	"github.com/jython234/slowmesh/junctionid"
)

var (
	sendPeerAddr string
	sendTo       string
	sendWait     time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send [payload]",
	Short: "Start a transient junction, join a peer, and send one payload",
	Args:  cobra.ExactArgs(1),
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendPeerAddr, "peer", "", "address of a running junction to join before sending")
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient junction id")
	sendCmd.Flags().DurationVar(&sendWait, "wait", 500*time.Millisecond, "grace period for the send queue to flush before exiting")
}

// runSend is the thin one-shot control-surface wrapper named in §4.8: it is
// itself a junction, not a client to a separate daemon, so "sending" means
// joining the target peer and enqueuing one Json package through the same
// public Junction interface a long-running process would use.
func runSend(cmd *cobra.Command, posArgs []string) error {
	if sendPeerAddr == "" {
		return fmt.Errorf("slowmesh-demo: --peer is required")
	}
	if sendTo == "" {
		return fmt.Errorf("slowmesh-demo: --to is required")
	}

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

	ctx := context.Background()
	if err := j.Join(ctx, sendPeerAddr); err != nil {
		return fmt.Errorf("slowmesh-demo: failed to join %s: %w", sendPeerAddr, err)
	}
	if err := j.Send([]byte(posArgs[0]), junctionid.New(sendTo)); err != nil {
		return fmt.Errorf("slowmesh-demo: send failed: %w", err)
	}

	time.Sleep(sendWait)
	fmt.Fprintf(cmd.OutOrStdout(), "slowmesh-demo: sent payload to %q via %s\n", sendTo, sendPeerAddr)
	return nil
}
