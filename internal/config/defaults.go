package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/LeJamon/goickb/internal/bot"
	"github.com/LeJamon/goickb/internal/core/dao"
	"github.com/LeJamon/goickb/internal/rpc"
)

// setDefaults sets every default value; a config file only needs the
// node URL, the iCKB scripts and a key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("network", NetworkMainnet)

	// RPC defaults
	v.SetDefault("rpc.url", "http://127.0.0.1:8114")
	v.SetDefault("rpc.ws_url", "")
	v.SetDefault("rpc.requests_per_second", 20)
	v.SetDefault("rpc.burst", 10)
	v.SetDefault("rpc.timeout", 30*time.Second)
	v.SetDefault("rpc.cache_size", rpc.DefaultCacheSize)
	v.SetDefault("rpc.finality", rpc.DefaultFinality)

	// Bot defaults
	v.SetDefault("bot.sleep_interval", time.Minute)
	v.SetDefault("bot.ckb_allowance_step", "1000")
	v.SetDefault("bot.min_udt", "100000")
	v.SetDefault("bot.max_udt", "200000")
	v.SetDefault("bot.max_withdrawals", bot.DefaultMaxWithdrawals)
	v.SetDefault("bot.max_partials", 1000)
	v.SetDefault("bot.ready_window_epochs", dao.DefaultReadyWindow)
	v.SetDefault("bot.commit_timeout", bot.DefaultCommitTimeout)
	v.SetDefault("bot.poll_interval", 10*time.Second)

	// Storage defaults
	v.SetDefault("storage.header_store_path", "")
	v.SetDefault("storage.compression", "lz4")
	v.SetDefault("storage.exec_log_path", "")

	// Diagnostics defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "plain")
	v.SetDefault("metrics.listen", "")
	v.SetDefault("metrics.namespace", "ickbd")
}

// ApplyNetworkDefaults points the RPC at the public endpoint of network when
// the URL was left at its default.
func ApplyNetworkDefaults(v *viper.Viper) {
	if v.InConfig("rpc.url") {
		return
	}
	switch v.GetString("network") {
	case NetworkMainnet:
		v.SetDefault("rpc.url", "https://mainnet.ckb.dev/rpc")
	case NetworkTestnet:
		v.SetDefault("rpc.url", "https://testnet.ckb.dev/rpc")
	}
}
