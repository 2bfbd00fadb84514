package cli

import (
	"github.com/spf13/cobra"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/order"
	"github.com/LeJamon/goickb/internal/di"
	"github.com/LeJamon/goickb/internal/signer"
)

var ordersOwn bool

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List live limit orders",
	Long: `List every valid live iCKB limit order. With --own, the configured key
is loaded to flag the bot's own orders.`,
	Args: cobra.NoArgs,
	RunE: runOrders,
}

func init() {
	rootCmd.AddCommand(ordersCmd)
	ordersCmd.Flags().BoolVar(&ordersOwn, "own", false, "flag orders owned by the configured key")
}

func runOrders(cmd *cobra.Command, args []string) error {
	p, c, err := newProvider()
	if err != nil {
		return err
	}
	defer c.Close()

	client, err := p.GetClient()
	if err != nil {
		return err
	}
	om, err := di.Resolve[*order.Manager](c, di.ServiceOrders)
	if err != nil {
		return err
	}
	var lock *cell.Script
	if ordersOwn {
		s, err := di.Resolve[*signer.Secp256k1](c, di.ServiceSigner)
		if err != nil {
			return err
		}
		l := s.Lock()
		lock = &l
	}

	var groups []*order.Group
	for g, err := range om.FindOrders(cmd.Context(), client) {
		if err != nil {
			return err
		}
		groups = append(groups, g)
	}
	infof(cmd, "%d live orders", len(groups))
	return renderOrders(cmd.OutOrStdout(), groups, lock)
}
