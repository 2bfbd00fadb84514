package config

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/ckbamount"
	"github.com/LeJamon/goickb/internal/core/scripts"
)

const testKey = "0x0101010101010101010101010101010101010101010101010101010101010101"

func scriptSection(name string, codeByte string) string {
	h := "0x" + strings.Repeat(codeByte, 32)
	return `
[scripts.` + name + `]
code_hash = "` + h + `"
hash_type = "data1"
args = "0x"

[[scripts.` + name + `.cell_deps]]
tx_hash = "` + h + `"
index = 1
dep_type = "code"
`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ickbd.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func minimalConfig(extra string) string {
	return `
network = "testnet"

[bot]
private_key = "` + testKey + `"
` + extra + scriptSection("xudt", "11") + scriptSection("logic", "22") +
		scriptSection("owned_owner", "33") + scriptSection("order", "44")
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, minimalConfig(`min_udt = "50000"
max_udt = "75000.5"
sleep_interval = "30s"
`))

	config, err := LoadConfig(ConfigPaths{Main: path})
	require.NoError(t, err)

	assert.Equal(t, path, config.GetConfigPath())
	assert.Equal(t, NetworkTestnet, config.Network)
	assert.Equal(t, "https://testnet.ckb.dev/rpc", config.RPC.URL)
	assert.Equal(t, 30*time.Second, config.Bot.SleepInterval)

	opts, err := config.Bot.Options()
	require.NoError(t, err)
	assert.Equal(t, 0, opts.MinUdt.Cmp(big.NewInt(50_000_00000000)))
	assert.Equal(t, 0, opts.MaxUdt.Cmp(big.NewInt(75_000_50000000)))
	assert.Equal(t, ckbamount.FromCKB(1000), opts.CkbAllowanceStep)
	assert.Equal(t, time.Minute*10, opts.CommitTimeout)
}

func TestLoadConfigDeployment(t *testing.T) {
	config, err := LoadConfig(ConfigPaths{Main: writeConfig(t, minimalConfig(""))})
	require.NoError(t, err)

	d, err := config.Deployment()
	require.NoError(t, err)

	dao, secp, ok := scripts.SystemScripts(NetworkTestnet)
	require.True(t, ok)
	assert.Equal(t, dao.Deps, d.DAO.Deps)
	assert.True(t, d.Secp256k1.Script.Equal(secp.Script))

	assert.Equal(t, cell.HashTypeData1, d.Logic.Script.HashType)
	assert.Equal(t, byte(0x22), d.Logic.Script.CodeHash[0])
	require.Len(t, d.Order.Deps, 1)
	assert.Equal(t, uint32(1), d.Order.Deps[0].OutPoint.Index)
	assert.Equal(t, cell.DepTypeCode, d.Order.Deps[0].DepType)
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	t.Setenv("ICKBD_BOT_MAX_WITHDRAWALS", "7")
	t.Setenv("ICKBD_RPC_URL", "http://node:8114")

	config, err := LoadConfig(ConfigPaths{Main: writeConfig(t, minimalConfig(""))})
	require.NoError(t, err)
	assert.Equal(t, 7, config.Bot.MaxWithdrawals)
	assert.Equal(t, "http://node:8114", config.RPC.URL)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(ConfigPaths{Main: filepath.Join(t.TempDir(), "absent.toml")})
	assert.Error(t, err)
}

func TestLoadConfigRequiresIckbScripts(t *testing.T) {
	path := writeConfig(t, `network = "testnet"`)
	_, err := LoadConfig(ConfigPaths{Main: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scripts.xudt")
}

func TestDevnetRequiresSystemScripts(t *testing.T) {
	path := writeConfig(t, strings.Replace(minimalConfig(""), `"testnet"`, `"devnet"`, 1))
	_, err := LoadConfig(ConfigPaths{Main: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scripts.dao")
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		extra  string
		errMsg string
	}{
		{"inverted band", "min_udt = \"10\"\nmax_udt = \"5\"\n", "udt band"},
		{"fractional shannons", "min_udt = \"0.000000001\"\n", "min_udt"},
		{"zero window", "ready_window_epochs = 0\n", "ready_window_epochs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(ConfigPaths{Main: writeConfig(t, minimalConfig(tt.extra))})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRPCConfigValidate(t *testing.T) {
	valid := RPCConfig{URL: "http://127.0.0.1:8114", Timeout: time.Second}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.URL = "ftp://node"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.WSURL = "http://node"
	assert.Error(t, bad.Validate())

	bad = valid
	bad.RequestsPerSecond = -1
	assert.Error(t, bad.Validate())
}

func TestMetricsConfigValidate(t *testing.T) {
	assert.NoError(t, (&MetricsConfig{}).Validate())
	assert.NoError(t, (&MetricsConfig{Listen: ":9100", Namespace: "ickbd"}).Validate())
	assert.Error(t, (&MetricsConfig{Listen: "9100", Namespace: "ickbd"}).Validate())
	assert.Error(t, (&MetricsConfig{Listen: ":9100"}).Validate())
}

func TestStorageConfigValidate(t *testing.T) {
	assert.NoError(t, (&StorageConfig{}).Validate())
	assert.NoError(t, (&StorageConfig{HeaderStorePath: "h", Compression: "lz4"}).Validate())
	assert.Error(t, (&StorageConfig{HeaderStorePath: "h", Compression: "zstd"}).Validate())
}

func TestSecretKey(t *testing.T) {
	b := BotConfig{}
	_, err := b.SecretKey()
	assert.ErrorIs(t, err, ErrNoPrivateKey)

	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte(testKey+"\n"), 0o600))
	b.PrivateKeyFile = path
	key, err := b.SecretKey()
	require.NoError(t, err)
	defer key.Close()
	assert.Equal(t, 32, key.Len())
}

func TestSaveExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.toml")
	require.NoError(t, SaveExampleConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "testnet.ckb.dev")
}
