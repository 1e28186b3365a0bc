package freefinance

import "errors"

var (
	// ErrNoToken: the token endpoint did not hand out a credential pair.
	ErrNoToken = errors.New("freefinance: no token pair returned")

	ErrCustomerCreate = errors.New("freefinance: customer not created")
	ErrCustomerUpdate = errors.New("freefinance: customer not updated")
	ErrInvoiceSubmit  = errors.New("freefinance: invoice not created")
)
