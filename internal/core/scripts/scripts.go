// Package scripts describes where the protocol's on-chain scripts live.
package scripts

import (
	"github.com/LeJamon/goickb/internal/core/cell"
)

// Info is a script template (args empty unless the script is parameterized)
// together with the cell deps that carry its code.
type Info struct {
	Script cell.Script
	Deps   []cell.CellDep
}

// WithArgs returns the script bound to args.
func (i Info) WithArgs(args []byte) cell.Script {
	return cell.NewScript(i.Script.CodeHash, i.Script.HashType, args)
}

// Deployment is the full set of scripts the protocol and the bot use.
type Deployment struct {
	DAO        Info
	Secp256k1  Info
	Xudt       Info
	Logic      Info
	OwnedOwner Info
	Order      Info
}

var (
	// DAOTypeHash is the type id hash of the Nervos DAO script on every public chain.
	DAOTypeHash = mustHash("0x82d76d1b75fe2fd9a27dfbaa65a039221a380d76c926f378d3f81cf3e7e13f2e")

	// Secp256k1Blake160TypeHash is the type id hash of the default lock.
	Secp256k1Blake160TypeHash = mustHash("0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8")
)

// Known system cell deps per network.
var (
	MainnetDAODep = cell.CellDep{
		OutPoint: cell.OutPoint{TxHash: mustHash("0xe2fb199810d49a4d8beec56718ba2593b665db9d52299a0f9e6e75416d73ff5c"), Index: 2},
		DepType:  cell.DepTypeCode,
	}
	MainnetSecp256k1Dep = cell.CellDep{
		OutPoint: cell.OutPoint{TxHash: mustHash("0x71a7ba8fc96349fea0ed3a5c47992e3b4084b031a42264a018e0072e8172e46c"), Index: 0},
		DepType:  cell.DepTypeDepGroup,
	}
	TestnetDAODep = cell.CellDep{
		OutPoint: cell.OutPoint{TxHash: mustHash("0x8f8c79eb6671709633fe6a46de93c0fedc9c1b8a6527a18d3983879542635c9f"), Index: 2},
		DepType:  cell.DepTypeCode,
	}
	TestnetSecp256k1Dep = cell.CellDep{
		OutPoint: cell.OutPoint{TxHash: mustHash("0xf8de3bb47d055cdf460d93a2a6e1b05f7432f9777c8c474abf4eec1d4aee5d37"), Index: 0},
		DepType:  cell.DepTypeDepGroup,
	}
)

// SystemScripts returns the DAO and default lock infos for network
// ("mainnet" or "testnet"). ok is false for unknown networks.
func SystemScripts(network string) (dao, secp Info, ok bool) {
	dao.Script = cell.NewScript(DAOTypeHash, cell.HashTypeType, nil)
	secp.Script = cell.NewScript(Secp256k1Blake160TypeHash, cell.HashTypeType, nil)
	switch network {
	case "mainnet":
		dao.Deps = []cell.CellDep{MainnetDAODep}
		secp.Deps = []cell.CellDep{MainnetSecp256k1Dep}
	case "testnet":
		dao.Deps = []cell.CellDep{TestnetDAODep}
		secp.Deps = []cell.CellDep{TestnetSecp256k1Dep}
	default:
		return Info{}, Info{}, false
	}
	return dao, secp, true
}

func mustHash(s string) cell.Hash {
	h, err := cell.ParseHash(s)
	if err != nil {
		panic(err)
	}
	return h
}
