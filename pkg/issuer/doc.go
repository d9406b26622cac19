// Package issuer mints compact, globally unique 64-bit identifiers.
//
// An identifier packs three unsigned fields into a positive int64, most
// significant first:
//
//	┌──────────────────────────┬────────────────────┬────────────────────┐
//	│ issue seconds (W_t bits) │ generator (W_g)    │ sequence (W_s)     │
//	│ seconds since Epoch      │ per-process id     │ per-second counter │
//	└──────────────────────────┴────────────────────┴────────────────────┘
//
// The widths W_g and W_s are described by a Layout and must be identical for
// every process sharing an identifier space. DefaultLayout uses 14 generator
// bits and 17 sequence bits; WideSequenceLayout trades generator space for
// throughput with 11 and 20.
//
// # Policies
//
// An Issuer runs one of two policies, chosen at construction:
//
//   - PolicyStrict fails a request with ErrCapacityExceeded when the current
//     second does not have enough sequence values left. Nothing is issued.
//   - PolicyBackpressure issues what it can, then suspends the caller until
//     the next second and continues. A clock that moved backwards is waited
//     out instead of being reported as an error.
//
// # Usage
//
//	iss, err := issuer.New(42, issuer.WithPolicy(issuer.PolicyBackpressure))
//	if err != nil {
//	    return err
//	}
//	ids, err := iss.Issue(ctx, 100)
//	created := ids[0].CreatedAt()
//
// Generator identifiers are assigned by the operator. The issuer checks only
// that its own value is in range.
package issuer
