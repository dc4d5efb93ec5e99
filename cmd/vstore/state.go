package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vstore/internal/errors"
)

func stateCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the state of a running devtools server",
		Long: `Fetch GET /state from a running devtools server and print it.

Examples:
  vstore state
  vstore state --addr=http://localhost:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runState(cmd.OutOrStdout(), addr, timeout)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "http://localhost:4100", "Devtools server address")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")

	return cmd
}

func runState(w io.Writer, addr string, timeout time.Duration) error {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(strings.TrimSuffix(addr, "/") + "/state")
	if err != nil {
		return errors.New("E040").
			WithDetail("could not reach " + addr).
			WithSuggestion("Start a server with 'vstore serve' or pass --addr").
			Wrap(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.New("E040").Wrap(err)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.New("E040").
			WithDetailf("GET /state returned %s", resp.Status)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		return errors.New("E040").WithDetail("response is not JSON").Wrap(err)
	}
	_, err = fmt.Fprintln(w, out.String())
	return err
}
