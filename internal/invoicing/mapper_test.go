package invoicing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webshop-ops/freefinance-bridge/internal/freefinance"
	"github.com/webshop-ops/freefinance-bridge/internal/magento"
)

func testMapper() *Mapper {
	return &Mapper{
		PaymentTerms: map[string]string{
			"banktransfer":   "Überweisung",
			"paypal_express": "PayPal",
		},
		FallbackTerm: "Überweisung",
	}
}

func billing() *magento.Address {
	return &magento.Address{
		City:      "Graz",
		Company:   "Muster GmbH",
		CountryID: "AT",
		Firstname: "Max",
		Lastname:  "Muster",
		Postcode:  "8010",
		Street:    []string{"Hauptplatz 1"},
		Region:    "Steiermark",
		Telephone: "+43 316 123456",
		VatID:     "ATU12345678",
	}
}

func testOrder() *magento.Order {
	ship := billing()
	o := &magento.Order{
		EntityID:        42,
		IncrementID:     "100001234",
		CreatedAt:       "2023-04-05 10:11:12",
		CustomerID:      77,
		CustomerGroupID: 3,
		CustomerEmail:   "max@example.at",
		BillingAddress:  billing(),
		Items: []magento.Item{
			{
				SKU:              "WIDGET-1",
				Name:             "Widget",
				ProductType:      "simple",
				QtyOrdered:       2,
				BasePriceInclTax: 121.00,
				TaxPercent:       21,
			},
		},
		Payment: magento.Payment{
			Method:                "banktransfer",
			AdditionalInformation: []string{"Kundenzahlung per Vorkasse"},
		},
		ShippingAmount:      10.00,
		ShippingDescription: "Post Standard",
	}
	o.ExtensionAttributes.ShippingAssignments = []magento.ShippingAssignment{
		{Shipping: magento.Shipping{Address: ship}},
	}
	return o
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 242.00, round2(242.0))
	assert.Equal(t, 200.00, round2(200.000000001))
	assert.Equal(t, 0.33, round2(1.0/3.0))
	// the epsilon bias nudges the .5 boundary upward even when the float
	// representation sits just below it
	assert.Equal(t, 2.68, round2(2.675))

	// idempotent
	for _, x := range []float64{0, 0.005, 1.0 / 3.0, 2.675, 99.999, 1234.565} {
		assert.Equal(t, round2(x), round2(round2(x)), "x=%v", x)
	}
}

func TestNetPlusTaxEqualsGross(t *testing.T) {
	for _, tax := range []float64{0, 5, 7, 10, 19, 20, 21, 25, 99} {
		for _, gross := range []float64{0, 0.01, 0.99, 1, 9.99, 121, 242, 999.95, 10000} {
			net := round2(gross / (100 + tax) * 100)
			taxAmt := round2(gross / (100 + tax) * tax)
			assert.InDelta(t, gross, net+taxAmt, 0.010001, "gross=%v tax=%v", gross, tax)
		}
	}
}

func TestTaxClass(t *testing.T) {
	assert.Equal(t, "000", taxClass(0))
	assert.Equal(t, "007", taxClass(7))
	assert.Equal(t, "019", taxClass(19))
	assert.Equal(t, "020", taxClass(20))
	assert.Equal(t, "100", taxClass(100))
}

func TestLinesSimpleItem(t *testing.T) {
	m := testMapper()
	lines := m.Lines(testOrder(), nil)
	require.Len(t, lines, 2) // item + shipping

	l := lines[0]
	assert.Equal(t, "WIDGET-1", l.ItemNumber)
	assert.Equal(t, "Widget", l.Name)
	assert.Equal(t, 2.0, l.Amount)
	assert.Equal(t, 0.0, l.Discount)
	assert.Equal(t, 242.00, l.TotalPrice)
	assert.Equal(t, 200.00, l.NetPrice)
	assert.Equal(t, 42.00, l.TaxPrice)
	assert.Equal(t, "021", l.TaxClassEntry)
	assert.Equal(t, "4000", l.Account)
	assert.Equal(t, "T", l.ItemPriceType)
	assert.Equal(t, "PC", l.UnitOfMeasure)
	assert.Equal(t, freefinance.DiscountConstant, l.DiscountMode)
	assert.Empty(t, l.Item) // no catalog match is not fatal
}

func TestLinesPerUnitDiscount(t *testing.T) {
	o := testOrder()
	o.Items[0].DiscountAmount = -10.00 // Magento reports discounts negative

	lines := testMapper().Lines(o, nil)
	l := lines[0]
	assert.Equal(t, 5.00, l.Discount) // per unit
	assert.Equal(t, 232.00, l.TotalPrice)
}

func TestLinesConfigurableParentChild(t *testing.T) {
	parent := magento.Item{
		SKU:              "CONF-1",
		Name:             "Configurable Shirt",
		ProductType:      "configurable",
		QtyOrdered:       1,
		BasePriceInclTax: 50.00,
		TaxPercent:       20,
		DiscountAmount:   -5.00,
	}
	child := magento.Item{
		SKU:         "CONF-1-RED-XL",
		Name:        "Shirt Rot XL",
		ProductType: "simple",
		QtyOrdered:  1,
		ParentItem:  &parent,
	}

	o := testOrder()
	o.Items = []magento.Item{parent, child}

	lines := testMapper().Lines(o, nil)
	require.Len(t, lines, 2) // child + shipping; parent filtered out

	l := lines[0]
	assert.Equal(t, "Shirt Rot XL", l.Name, "child keeps its display name")
	assert.Equal(t, "CONF-1", l.ItemNumber, "figures come from the parent")
	assert.Equal(t, 50.00, l.ItemPrice)
	assert.Equal(t, "020", l.TaxClassEntry)
	assert.Equal(t, 5.00, l.Discount)
	assert.Equal(t, 45.00, l.TotalPrice)
}

func TestShippingLine(t *testing.T) {
	o := testOrder()
	o.ShippingAmount = 10.00
	o.ShippingDiscountAmount = 2.00

	lines := testMapper().Lines(o, nil)
	s := lines[len(lines)-1]
	assert.Equal(t, "Versandkosten", s.ItemNumber)
	assert.Equal(t, "Post Standard", s.Name)
	assert.Equal(t, 1.0, s.Amount)
	assert.Equal(t, "000", s.TaxClassEntry)
	assert.Equal(t, 8.00, s.NetPrice)
	assert.Equal(t, 8.00, s.TotalPrice)
	assert.Equal(t, 0.0, s.TaxPrice)
	assert.Equal(t, 2.00, s.Discount, "raw discount, not per unit")
}

func TestCatalogItemResolution(t *testing.T) {
	catalog := []freefinance.Item{
		{ID: "ff-1", Number: "OTHER"},
		{ID: "ff-2", Number: "WIDGET-1"},
	}
	lines := testMapper().Lines(testOrder(), catalog)
	assert.Equal(t, "ff-2", lines[0].Item)
}

func TestCompareAddresses(t *testing.T) {
	t.Run("equal", func(t *testing.T) {
		assert.Equal(t, "Adressen sind gleich.", CompareAddresses(testOrder()))
	})

	t.Run("single field differs", func(t *testing.T) {
		o := testOrder()
		o.ExtensionAttributes.ShippingAssignments[0].Shipping.Address.City = "Wien"
		assert.Equal(t, "!Liefer- und Rechnungsadresse sind unterschiedlich!", CompareAddresses(o))
	})

	t.Run("missing shipping address degrades to empty", func(t *testing.T) {
		o := testOrder()
		o.ExtensionAttributes.ShippingAssignments = nil
		assert.Equal(t, "", CompareAddresses(o))
	})
}

func TestInternalDescription(t *testing.T) {
	o := testOrder()
	o.CustomerNote = "Bitte klingeln"

	desc := testMapper().InternalDescription(o, "Sonderkondition", "The Region was not found or doesn't exist: Steiermark")

	order := []string{
		"Adressen sind gleich.",
		"The Region was not found or doesn't exist: Steiermark",
		"Bitte klingeln",
		"Sonderkondition",
		"Kundenzahlung per Vorkasse",
		"banktransfer",
		"Lieferadresse:",
		"Muster GmbH",
		"Max Muster",
		"Hauptplatz 1",
		"8010 Graz",
		"Steiermark",
		"AT",
	}
	rest := desc
	for _, want := range order {
		idx := strings.Index(rest, want)
		require.GreaterOrEqual(t, idx, 0, "missing or out of order: %q in %q", want, desc)
		rest = rest[idx+len(want):]
	}
}

func TestPaymentTerm(t *testing.T) {
	m := testMapper()
	assert.Equal(t, "PayPal", m.PaymentTerm("paypal_express"))
	assert.Equal(t, "Überweisung", m.PaymentTerm("some_new_gateway"))
}

func TestCustomerDraft(t *testing.T) {
	draft := testMapper().CustomerDraft(testOrder(), "")

	assert.Equal(t, "77", draft.CustomerNumber)
	assert.Equal(t, "max@example.at", draft.EmailAddress)
	assert.Equal(t, "+43 316 123456", draft.MobileNumber)
	assert.Equal(t, "ATU12345678", draft.TaxNumber)
	assert.Equal(t, "Muster GmbH", draft.CompanyName)
	assert.Equal(t, "Hauptplatz 1", draft.StreetName)
	assert.Equal(t, "AT", draft.Country)
	assert.Empty(t, draft.Region, "region resolution disabled by default")
	assert.Equal(t, 3, draft.Attribute1)
	assert.Equal(t, "Steiermark", draft.Attribute5)
}

func TestInvoice(t *testing.T) {
	now := time.Date(2023, 4, 6, 12, 0, 0, 0, time.UTC)
	inv := testMapper().Invoice(now, testOrder(), "cust-1", nil, "", "")

	assert.Equal(t, "STAGING", inv.State)
	assert.Equal(t, "cust-1", inv.Customer)
	assert.Equal(t, "2023-04-06T12:00:00.000Z", inv.Date)
	assert.Equal(t, "Bestellung 100001234", inv.ReferenceText)
	assert.Equal(t, "2023-04-05T10:11:12.000Z", inv.ReferenceDate)
	assert.Equal(t, "Überweisung", inv.PaymentTerm)
	assert.Len(t, inv.Lines, 2)
}
