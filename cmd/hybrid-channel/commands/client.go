package commands

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sara-star-quant/hybrid-channel/pkg/tunnel"
)

func clientCmd() *cobra.Command {
	var addr, message string
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Connect to a server and exchange messages read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := tunnel.Dial(cmd.Context(), "tcp", addr, tunnelConfig())
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			logger.WithField("conn_id", conn.ID()).Debugf("connected, transcript %x", conn.Transcript())

			if message != "" {
				return exchange(conn, message, cmd.OutOrStdout())
			}
			return interact(conn, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "server address")
	cmd.Flags().StringVarP(&message, "message", "m", "", "send one message and exit instead of reading stdin")
	return cmd
}

// interact sends each non-empty line of in and prints the reply.
func interact(conn *tunnel.Conn, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := exchange(conn, line, out); err != nil {
			return err
		}
	}
	return errors.Wrap(scanner.Err(), "read stdin")
}

func exchange(conn *tunnel.Conn, msg string, out io.Writer) error {
	if err := conn.Send([]byte(msg)); err != nil {
		return err
	}
	reply, err := conn.Receive()
	if err != nil {
		return errors.Wrap(err, "receive reply")
	}
	_, err = fmt.Fprintln(out, string(reply))
	return err
}
