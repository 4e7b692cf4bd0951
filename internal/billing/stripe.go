package billing

import (
	"context"

	stripe "github.com/stripe/stripe-go/v78"
	stripeclient "github.com/stripe/stripe-go/v78/client"
)

// StripeProvider implements Provider over a dedicated stripe client.
type StripeProvider struct {
	api *stripeclient.API
}

func NewStripeProvider(secretKey string) *StripeProvider {
	api := &stripeclient.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api}
}

func (p *StripeProvider) EnsureCustomer(_ context.Context, customerID, email, nom string) (string, error) {
	if customerID != "" {
		return customerID, nil
	}
	cust, err := p.api.Customers.New(&stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(nom),
	})
	if err != nil {
		return "", err
	}
	return cust.ID, nil
}

func (p *StripeProvider) CheckoutSession(_ context.Context, customerID, priceID, successURL, cancelURL string) (string, error) {
	sess, err := p.api.CheckoutSessions.New(&stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	})
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

func (p *StripeProvider) PortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	sess, err := p.api.BillingPortalSessions.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}
