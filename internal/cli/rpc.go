package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goickb/internal/rpc"
)

// rpcCmd represents the rpc command group
var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "RPC client commands",
	Long:  `Call the configured CKB node directly and print the raw JSON result.`,
}

func init() {
	rootCmd.AddCommand(rpcCmd)
	rpcCmd.AddCommand(callCmd, tipCmd, txCmd, feeRateCmd)
}

// parseParams turns each argument into a JSON value. Arguments that are not
// valid JSON are sent as strings, so hashes and hex numbers need no quoting.
func parseParams(args []string) []interface{} {
	params := make([]interface{}, len(args))
	for i, a := range args {
		var v json.RawMessage
		if json.Unmarshal([]byte(a), &v) == nil {
			params[i] = v
		} else {
			params[i] = a
		}
	}
	return params
}

// executeMethod calls method on the node and pretty prints the result
func executeMethod(cmd *cobra.Command, method string, params ...interface{}) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := rpc.NewClient(cfg.RPC.URL, rpc.WithHTTPClient(&http.Client{Timeout: cfg.RPC.Timeout}))

	result, err := client.Call(cmd.Context(), method, params...)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), string(result))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return nil
}

var callCmd = &cobra.Command{
	Use:   "call <method> [params...]",
	Short: "Call any RPC method",
	Example: `  ickbd rpc call get_blockchain_info
  ickbd rpc call get_block_by_number 0x1000`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeMethod(cmd, args[0], parseParams(args[1:])...)
	},
}

var tipCmd = &cobra.Command{
	Use:   "tip",
	Short: "Get the tip header",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeMethod(cmd, "get_tip_header")
	},
}

var txCmd = &cobra.Command{
	Use:   "tx <hash>",
	Short: "Get a transaction and its status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeMethod(cmd, "get_transaction", args[0])
	},
}

var feeRateCmd = &cobra.Command{
	Use:   "fee_rate",
	Short: "Get recent fee rate statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeMethod(cmd, "get_fee_rate_statistics")
	},
}
