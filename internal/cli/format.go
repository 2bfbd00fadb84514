package cli

import (
	"fmt"
	"io"
	"math/big"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LeJamon/goickb/internal/bot"
	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/order"
	"github.com/LeJamon/goickb/internal/storage/execlog"
)

// unitsString renders a base-unit amount at the 8 decimals shared by CKB and iCKB.
func unitsString(v *big.Int) string {
	if v == nil {
		return "0.00000000"
	}
	return decimal.NewFromBigInt(v, -8).StringFixed(8)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func direction(info order.Info) string {
	switch {
	case info.IsDualRatio():
		return "dual"
	case info.IsCkb2Udt():
		return "ckb->ickb"
	default:
		return "ickb->ckb"
	}
}

func ratioString(r order.Ratio) string {
	if r.IsEmpty() {
		return "-"
	}
	return fmt.Sprintf("%d:%d", r.CkbScale, r.UdtScale)
}

// renderOrders prints one row per order; own marks orders whose master is
// locked by lock, when lock is set.
func renderOrders(w io.Writer, groups []*order.Group, lock *cell.Script) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "OUT POINT\tDIRECTION\tCKB:UDT (SELL CKB)\tCKB:UDT (SELL UDT)\tCKB\tICKB\tFULFILLED\tOWN")
	for _, g := range groups {
		o := g.Order
		op := "-"
		if o.Cell.OutPoint != nil {
			op = o.Cell.OutPoint.String()
		}
		own := lock != nil && g.IsOwnedBy(*lock)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%t\t%t\n",
			op,
			direction(o.Info),
			ratioString(o.Info.CkbToUdt),
			ratioString(o.Info.UdtToCkb),
			o.Cell.Capacity(),
			unitsString(o.UdtAmount),
			o.IsFulfilled(),
			own,
		)
	}
	return tw.Flush()
}

// renderStatus prints the bot's position; summary is optional.
func renderStatus(w io.Writer, st *bot.Status, summary *execlog.Summary) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Tip:\t%d (epoch %s)\n", st.Tip.Number, st.Tip.Epoch)
	fmt.Fprintf(tw, "Fee rate:\t%d shannons/KB\n", st.FeeRate)
	fmt.Fprintf(tw, "CKB available:\t%s\n", st.Balances.CkbAvailable)
	fmt.Fprintf(tw, "CKB unavailable:\t%s\n", st.Balances.CkbUnavailable)
	fmt.Fprintf(tw, "iCKB available:\t%s\n", unitsString(st.Balances.UdtAvailable))
	fmt.Fprintf(tw, "Receipts:\t%d\n", st.Receipts)
	fmt.Fprintf(tw, "Withdrawals:\t%d ready, %d pending\n", st.ReadyWithdrawals, st.PendingWithdrawals)
	fmt.Fprintf(tw, "Orders:\t%d live, %d own\n", len(st.Orders), st.OwnOrders)
	fmt.Fprintf(tw, "Pool deposits:\t%d, %d ready\n", st.PoolDeposits, st.ReadyPoolDeposits)
	if summary != nil {
		fmt.Fprintf(tw, "Cycles:\t%d, %d submitted, %d failed\n", summary.Cycles, summary.Submitted, summary.Failed)
		fmt.Fprintf(tw, "Matched orders:\t%d\n", summary.Matched)
		fmt.Fprintf(tw, "Fees paid:\t%s\n", summary.Fees)
	}
	return tw.Flush()
}

// renderHistory prints execution log records, newest first as given.
func renderHistory(w io.Writer, records []*bot.Record) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "START\tELAPSED\tMATCHED\tDEPOSITS\tWITHDRAWALS\tFEE\tGAIN\tRESULT")
	for _, r := range records {
		result := "idle"
		switch {
		case r.Error != "":
			result = "error: " + r.Error
		case r.TxHash != nil:
			result = r.TxHash.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			r.Start.UTC().Format(time.RFC3339),
			r.Elapsed.Round(time.Millisecond),
			r.MatchedOrders,
			r.Deposits,
			r.WithdrawalRequests+r.Withdrawals,
			r.Fee,
			unitsString(r.Gain),
			result,
		)
	}
	return tw.Flush()
}
