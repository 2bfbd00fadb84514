package config

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/LeJamon/goickb/internal/core/cell"
	"github.com/LeJamon/goickb/internal/core/scripts"
)

// CellDepConfig locates a cell carrying script code.
type CellDepConfig struct {
	TxHash  string `toml:"tx_hash" mapstructure:"tx_hash"`
	Index   uint32 `toml:"index" mapstructure:"index"`
	DepType string `toml:"dep_type" mapstructure:"dep_type"`
}

// ScriptConfig is one deployed script.
type ScriptConfig struct {
	CodeHash string          `toml:"code_hash" mapstructure:"code_hash"`
	HashType string          `toml:"hash_type" mapstructure:"hash_type"`
	Args     string          `toml:"args" mapstructure:"args"`
	CellDeps []CellDepConfig `toml:"cell_deps" mapstructure:"cell_deps"`
}

// ScriptsConfig represents the [scripts] section
type ScriptsConfig struct {
	DAO        ScriptConfig `toml:"dao" mapstructure:"dao"`
	Secp256k1  ScriptConfig `toml:"secp256k1" mapstructure:"secp256k1"`
	Xudt       ScriptConfig `toml:"xudt" mapstructure:"xudt"`
	Logic      ScriptConfig `toml:"logic" mapstructure:"logic"`
	OwnedOwner ScriptConfig `toml:"owned_owner" mapstructure:"owned_owner"`
	Order      ScriptConfig `toml:"order" mapstructure:"order"`
}

// IsSet returns true if the script has a code hash configured
func (s ScriptConfig) IsSet() bool {
	return s.CodeHash != ""
}

// Info converts the section into a script template.
func (s ScriptConfig) Info() (scripts.Info, error) {
	codeHash, err := cell.ParseHash(s.CodeHash)
	if err != nil {
		return scripts.Info{}, fmt.Errorf("code_hash: %w", err)
	}
	hashType, err := cell.ParseHashType(s.HashType)
	if err != nil {
		return scripts.Info{}, fmt.Errorf("hash_type: %w", err)
	}
	args, err := hex.DecodeString(strings.TrimPrefix(s.Args, "0x"))
	if err != nil {
		return scripts.Info{}, fmt.Errorf("args: %w", err)
	}
	if len(s.CellDeps) == 0 {
		return scripts.Info{}, fmt.Errorf("cell_deps: at least one is required")
	}
	info := scripts.Info{Script: cell.NewScript(codeHash, hashType, args)}
	for i, d := range s.CellDeps {
		dep, err := d.cellDep()
		if err != nil {
			return scripts.Info{}, fmt.Errorf("cell_deps[%d]: %w", i, err)
		}
		info.Deps = append(info.Deps, dep)
	}
	return info, nil
}

func (d CellDepConfig) cellDep() (cell.CellDep, error) {
	txHash, err := cell.ParseHash(d.TxHash)
	if err != nil {
		return cell.CellDep{}, err
	}
	var depType cell.DepType
	switch d.DepType {
	case "", "code":
		depType = cell.DepTypeCode
	case "dep_group":
		depType = cell.DepTypeDepGroup
	default:
		return cell.CellDep{}, fmt.Errorf("unknown dep_type %q (valid options: code, dep_group)", d.DepType)
	}
	return cell.CellDep{OutPoint: cell.OutPoint{TxHash: txHash, Index: d.Index}, DepType: depType}, nil
}

// Deployment resolves every script. On public networks the DAO and default
// lock fall back to their well-known deployments when left unset.
func (c *Config) Deployment() (scripts.Deployment, error) {
	var d scripts.Deployment
	dao, secp, known := scripts.SystemScripts(c.Network)

	resolve := func(name string, s ScriptConfig, fallback *scripts.Info) (scripts.Info, error) {
		if !s.IsSet() && fallback != nil {
			return *fallback, nil
		}
		info, err := s.Info()
		if err != nil {
			return scripts.Info{}, fmt.Errorf("scripts.%s: %w", name, err)
		}
		return info, nil
	}
	var daoFallback, secpFallback *scripts.Info
	if known {
		daoFallback, secpFallback = &dao, &secp
	}

	var err error
	if d.DAO, err = resolve("dao", c.Scripts.DAO, daoFallback); err != nil {
		return d, err
	}
	if d.Secp256k1, err = resolve("secp256k1", c.Scripts.Secp256k1, secpFallback); err != nil {
		return d, err
	}
	if d.Xudt, err = resolve("xudt", c.Scripts.Xudt, nil); err != nil {
		return d, err
	}
	if d.Logic, err = resolve("logic", c.Scripts.Logic, nil); err != nil {
		return d, err
	}
	if d.OwnedOwner, err = resolve("owned_owner", c.Scripts.OwnedOwner, nil); err != nil {
		return d, err
	}
	if d.Order, err = resolve("order", c.Scripts.Order, nil); err != nil {
		return d, err
	}
	return d, nil
}
