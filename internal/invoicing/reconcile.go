package invoicing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/webshop-ops/freefinance-bridge/internal/freefinance"
)

// CustomerAPI is the slice of the accounting client the reconciler needs.
type CustomerAPI interface {
	Customers(ctx context.Context) ([]freefinance.Customer, error)
	CreateCustomer(ctx context.Context, c freefinance.Customer) (freefinance.Customer, error)
	UpdateCustomer(ctx context.Context, id string, c freefinance.Customer) (freefinance.Customer, error)
}

// Reconciler resolves a customer draft to a canonical FreeFinance customer:
// exact lookup by customer number, create when absent, full-record update
// when any compared field changed.
type Reconciler struct {
	API CustomerAPI
	Log zerolog.Logger
}

// Reconcile returns the customer the invoice should reference. An update
// failure is logged and swallowed: invoicing against the stale record beats
// losing the run.
func (r *Reconciler) Reconcile(ctx context.Context, draft freefinance.Customer) (freefinance.Customer, error) {
	existing, err := r.API.Customers(ctx)
	if err != nil {
		return freefinance.Customer{}, fmt.Errorf("reconcile customer %s: %w", draft.CustomerNumber, err)
	}

	var found *freefinance.Customer
	for i := range existing {
		if existing[i].CustomerNumber == draft.CustomerNumber {
			found = &existing[i]
			break
		}
	}

	if found == nil {
		created, err := r.API.CreateCustomer(ctx, withVatFlag(draft))
		if err != nil {
			return freefinance.Customer{}, err
		}
		r.Log.Info().Str("customer_number", draft.CustomerNumber).Str("id", created.ID).
			Msg("customer created")
		return created, nil
	}

	if changed(*found, draft) {
		if _, err := r.API.UpdateCustomer(ctx, found.ID, withVatFlag(draft)); err != nil {
			r.Log.Error().Err(err).Str("customer_number", draft.CustomerNumber).
				Msg("customer update failed, continuing with stale record")
		} else {
			r.Log.Info().Str("customer_number", draft.CustomerNumber).Msg("customer updated")
		}
	}
	return *found, nil
}

// withVatFlag recomputes noVatNumber from the draft's tax number. The flag
// is derived state and must never be carried over from a stored record.
func withVatFlag(c freefinance.Customer) freefinance.Customer {
	c.NoVatNumber = c.TaxNumber == ""
	return c
}

// changed compares exactly the fields the bridge owns; everything else on
// the FreeFinance record is left alone.
func changed(old, draft freefinance.Customer) bool {
	return old.EmailAddress != draft.EmailAddress ||
		old.MobileNumber != draft.MobileNumber ||
		old.TaxNumber != draft.TaxNumber ||
		old.CompanyName != draft.CompanyName ||
		old.FirstName != draft.FirstName ||
		old.LastName != draft.LastName ||
		old.StreetName != draft.StreetName ||
		old.ZipCode != draft.ZipCode ||
		old.City != draft.City ||
		old.Country != draft.Country ||
		old.Region != draft.Region ||
		old.Attribute1 != draft.Attribute1 ||
		old.Attribute5 != draft.Attribute5
}
