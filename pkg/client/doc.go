// Package client is the agentdex directory Go SDK.
//
// It wraps the directory backend's HTTP API: registering agents, claiming
// NIP-05 names, verifying identities, and searching the directory. Payment
// gating is first-class: a register or claim that requires a Lightning
// payment is a normal SubmitResult, not an error.
//
// # Registering an agent
//
//	c, err := client.New("https://api.agentdex.id")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := c.Register(ctx, record)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if result.Payment != nil {
//	    // settle result.Payment.Invoice, then poll:
//	    status, _ := c.RegisterStatus(ctx, result.Payment.PaymentHash)
//	    _ = status.Paid
//	}
//
// # Claiming a name
//
// Claim works the same way, with the name sent alongside the signed record:
//
//	result, err := c.Claim(ctx, "echo", record)
//
// The claim status endpoint mirrors the register one:
//
//	status, err := c.ClaimStatus(ctx, result.Payment.PaymentHash)
//
// # Lookups
//
// Verify accepts an npub, a hex public key, or a claimed name:
//
//	v, err := c.Verify(ctx, "echo")
//	if errors.Is(err, client.ErrNotFound) { ... }
//
// Search takes a filter with every field optional:
//
//	agents, err := c.Search(ctx, client.SearchFilter{Capability: "translation", Limit: 10})
//
// Add result caching with WithCacheTTL to avoid repeated verify lookups:
//
//	c, _ := client.New(base, client.WithCacheTTL(60*time.Second))
//
// # Authentication
//
// Backend auth is an optional bearer token:
//
//	c, _ := client.New(base, client.WithAPIKey(os.Getenv("AGENTDEX_API_KEY")))
package client
