package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goickb/internal/bot"
	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/storage/execlog"
)

func TestParseParams(t *testing.T) {
	params := parseParams([]string{"0x10", `{"a":1}`, "42", "true"})
	require.Len(t, params, 4)
	assert.Equal(t, "0x10", params[0])
	assert.Equal(t, json.RawMessage(`{"a":1}`), params[1])
	assert.Equal(t, json.RawMessage(`42`), params[2])
	assert.Equal(t, json.RawMessage(`true`), params[3])
}

func TestUnitsString(t *testing.T) {
	assert.Equal(t, "0.00000000", unitsString(nil))
	assert.Equal(t, "1.50000000", unitsString(big.NewInt(150_000_000)))
	assert.Equal(t, "-0.00000001", unitsString(big.NewInt(-1)))
}

func TestRenderStatus(t *testing.T) {
	st := &bot.Status{
		Tip:     cell.Header{Number: 1234, Epoch: cell.Epoch{Number: 5, Index: 1, Length: 10}},
		FeeRate: 1000,
		Balances: bot.Balances{
			CkbAvailable:   ckbamount.FromCKB(100),
			CkbUnavailable: ckbamount.FromCKB(5),
			UdtAvailable:   big.NewInt(250_000_000),
		},
		ReadyWithdrawals:   1,
		PendingWithdrawals: 2,
	}
	var out bytes.Buffer
	require.NoError(t, renderStatus(&out, st, &execlog.Summary{Cycles: 3, Submitted: 2, Failed: 1}))

	s := out.String()
	assert.Contains(t, s, "1234")
	assert.Contains(t, s, "100.00000000")
	assert.Contains(t, s, "2.50000000")
	assert.Contains(t, s, "1 ready, 2 pending")
	assert.Contains(t, s, "3, 2 submitted, 1 failed")
}

func TestRenderStatusWithoutSummary(t *testing.T) {
	st := &bot.Status{Balances: bot.Balances{UdtAvailable: new(big.Int)}}
	var out bytes.Buffer
	require.NoError(t, renderStatus(&out, st, nil))
	assert.NotContains(t, out.String(), "Cycles")
}

func TestRenderHistory(t *testing.T) {
	hash := cell.Hash{0xab}
	records := []*bot.Record{
		{Start: time.Unix(0, 0), Gain: big.NewInt(100), TxHash: &hash, MatchedOrders: 2},
		{Start: time.Unix(60, 0), Gain: new(big.Int), Error: errors.New("boom").Error()},
		{Start: time.Unix(120, 0), Gain: new(big.Int)},
	}
	var out bytes.Buffer
	require.NoError(t, renderHistory(&out, records))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "MATCHED")
	assert.Contains(t, lines[1], hash.String())
	assert.Contains(t, lines[1], "0.00000100")
	assert.Contains(t, lines[2], "error: boom")
	assert.Contains(t, lines[3], "idle")
}

func TestRenderOrdersEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, renderOrders(&out, nil, nil))
	assert.Contains(t, out.String(), "OUT POINT")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "ickbd version "+rootCmd.Version)
}
