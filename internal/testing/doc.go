// Package testing provides an in-memory CKB ledger for protocol and bot tests.
//
// TestEnv implements tx.Client over a chain of synthetic headers whose DAO
// accumulated rate grows by a fixed step per block, so interest and maturity
// math can be exercised without a node.
//
// # Basic Usage
//
//	func TestDeposit(t *testing.T) {
//	    env := jtx.NewTestEnv(t)
//	    alice := jtx.NewAccount("alice")
//	    env.Fund(alice, 10_000)
//
//	    dep := env.Deployment()
//	    ...
//	    hash := env.Submit(txn, alice)
//	}
//
// # Chain time
//
//	env.Close()            // mine one block
//	env.AdvanceEpochs(180) // mine whole epochs
//	env.Tip()              // latest header
//
// Every Create or Submit commits its transaction in a fresh block, so cells
// created by different calls always sit under different headers.
package testing
