// Package pumpfun trades tokens against the pump.fun bonding-curve program.
//
// The package is split the same way a trade flows:
//
//   - curve.go: constant-product pricing over decimal-normalized virtual
//     reserves (QuoteBuy, QuoteSell, ApplyBuy, ApplySell).
//   - instructions.go: the buy/sell wire format. Each payload is an 8-byte
//     discriminator followed by the raw token amount and a lamport limit,
//     both u64 little-endian, with a fixed 12-account list.
//   - accounts.go: bonding-curve PDA derivation and account decoding.
//   - trade.go: Executor, which quotes, applies slippage, creates the
//     user's token account when missing and hands the instructions to a
//     Submitter.
//   - errors.go: the error taxonomy and IsRecoverable.
//
// Usage example:
//
//	fetcher := pumpfun.NewSnapshotFetcher(client, metadata, nil, logger)
//	snap, err := fetcher.FetchCurveSnapshot(ctx, mint)
//	if err != nil {
//	    return err
//	}
//
//	intent, err := pumpfun.NewBuyIntent(w.PublicKey, decimal.RequireFromString("0.1"), params)
//	if err != nil {
//	    return err
//	}
//	result, err := pumpfun.NewExecutor(nil, reader, submitter, logger).Execute(ctx, intent, snap, w)
package pumpfun
