// Package billing wraps the payment provider behind an explicitly
// constructed client held by the composition root. Handlers depend on the
// Provider interface; no package-level singleton.
package billing

import "context"

// Provider creates customers and hosted sessions for subscription billing.
// Calls are single-attempt; failures surface to the HTTP caller.
type Provider interface {
	// EnsureCustomer returns the existing customer id or creates one.
	EnsureCustomer(ctx context.Context, customerID, email, nom string) (string, error)
	// CheckoutSession returns the URL of a hosted subscription checkout.
	CheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error)
	// PortalSession returns the URL of the self-service billing portal.
	PortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
