package invoicing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/webshop-ops/freefinance-bridge/internal/freefinance"
	"github.com/webshop-ops/freefinance-bridge/internal/magento"
)

const (
	revenueAccount = "4000"
	unitPiece      = "PC"
	priceTypeGross = "T"

	// Synthetic item number of the shipping cost line.
	shippingItemNumber = "Versandkosten"

	addressMismatchNote = "!Liefer- und Rechnungsadresse sind unterschiedlich!"
	addressEqualNote    = "Adressen sind gleich."

	// FreeFinance expects millisecond UTC timestamps.
	timestampLayout = "2006-01-02T15:04:05.000Z"
	// Magento's created_at format.
	magentoTimeLayout = "2006-01-02 15:04:05"
)

// Mapper turns a Magento order into the FreeFinance invoice payload and the
// customer draft used for reconciliation.
type Mapper struct {
	PaymentTerms map[string]string
	FallbackTerm string
}

// jsEpsilon reproduces Number.EPSILON (2^-52). Rounding here must match the
// legacy Math.round((x+ε)*100)/100 exactly, including the bias that nudges
// exact .5 boundaries upward.
const jsEpsilon = 2.220446049250313e-16

func round2(x float64) float64 {
	return math.Floor((x+jsEpsilon)*100+0.5) / 100
}

// taxClass renders a tax percentage as FreeFinance's three-digit tax class
// code: 7 -> "007", 20 -> "020", 100 -> "100".
func taxClass(percent float64) string {
	return fmt.Sprintf("%03d", int(math.Round(percent)))
}

// PaymentTerm translates a Magento payment method code; unknown codes get
// the configured fallback term.
func (m *Mapper) PaymentTerm(method string) string {
	if term, ok := m.PaymentTerms[method]; ok {
		return term
	}
	return m.FallbackTerm
}

// Invoice composes the full outbound invoice for a reconciled customer.
func (m *Mapper) Invoice(now time.Time, o *magento.Order, customerID string, catalog []freefinance.Item, orderComment, regionErr string) freefinance.Invoice {
	return freefinance.Invoice{
		State:               "STAGING",
		Date:                now.UTC().Format(timestampLayout),
		PaymentTerm:         m.PaymentTerm(o.Payment.Method),
		Customer:            customerID,
		InternalDescription: m.InternalDescription(o, orderComment, regionErr),
		ReferenceText:       "Bestellung " + o.IncrementID,
		ReferenceDate:       referenceDate(o.CreatedAt),
		Lines:               m.Lines(o, catalog),
	}
}

// Lines maps the order items plus the synthetic shipping line.
//
// Configurable parents carry no usable figures and are skipped; their child
// lines substitute the parent's price, tax and discount while keeping the
// child's display name.
func (m *Mapper) Lines(o *magento.Order, catalog []freefinance.Item) []freefinance.InvoiceLine {
	lines := make([]freefinance.InvoiceLine, 0, len(o.Items)+1)
	for _, li := range o.Items {
		if li.ProductType == "configurable" {
			continue
		}

		item := li
		if li.ParentItem != nil {
			item = *li.ParentItem
			item.Name = li.Name
		}

		discount := round2(math.Abs(item.DiscountAmount) / item.QtyOrdered)
		gross := round2((item.BasePriceInclTax - math.Abs(discount)) * item.QtyOrdered)
		net := round2(gross / (100 + item.TaxPercent) * 100)
		tax := round2(gross / (100 + item.TaxPercent) * item.TaxPercent)

		lines = append(lines, freefinance.InvoiceLine{
			Item:          itemIDByNumber(catalog, item.SKU),
			ItemNumber:    item.SKU,
			Name:          item.Name,
			Amount:        item.QtyOrdered,
			Account:       revenueAccount,
			TaxClassEntry: taxClass(item.TaxPercent),
			ItemPrice:     item.BasePriceInclTax,
			ItemPriceType: priceTypeGross,
			NetPrice:      net,
			TaxPrice:      tax,
			TotalPrice:    gross,
			Discount:      discount,
			DiscountMode:  freefinance.DiscountConstant,
			UnitOfMeasure: unitPiece,
		})
	}
	return append(lines, shippingLine(o))
}

// shippingLine: shipping is billed tax-free as one unit; the discount is
// the raw shipping discount, not per-unit.
func shippingLine(o *magento.Order) freefinance.InvoiceLine {
	total := o.ShippingAmount - math.Abs(o.ShippingDiscountAmount)
	return freefinance.InvoiceLine{
		ItemNumber:    shippingItemNumber,
		Name:          o.ShippingDescription,
		Amount:        1,
		Account:       revenueAccount,
		TaxClassEntry: "000",
		ItemPrice:     o.ShippingAmount,
		ItemPriceType: priceTypeGross,
		NetPrice:      total,
		TaxPrice:      0,
		TotalPrice:    total,
		Discount:      o.ShippingDiscountAmount,
		DiscountMode:  freefinance.DiscountConstant,
	}
}

func itemIDByNumber(catalog []freefinance.Item, number string) string {
	for _, it := range catalog {
		if it.Number == number {
			return it.ID
		}
	}
	return ""
}

// CustomerDraft maps the order's billing data onto a FreeFinance customer.
// regionCode comes from the (optional) region resolver and stays empty in
// the default configuration; the raw region name rides along in attribute 5.
func (m *Mapper) CustomerDraft(o *magento.Order, regionCode string) freefinance.Customer {
	b := o.BillingAddress
	if b == nil {
		b = &magento.Address{}
	}
	return freefinance.Customer{
		CustomerNumber: strconv.Itoa(o.CustomerID),
		EmailAddress:   o.CustomerEmail,
		MobileNumber:   b.Telephone,
		TaxNumber:      b.VatID,
		CompanyName:    b.Company,
		FirstName:      b.Firstname,
		LastName:       b.Lastname,
		StreetName:     street0(b),
		ZipCode:        b.Postcode,
		City:           b.City,
		Country:        b.CountryID,
		Region:         regionCode,
		Attribute1:     o.CustomerGroupID,
		Attribute5:     b.Region,
	}
}

// CompareAddresses checks the first shipping address against the billing
// address field by field and returns one of two fixed German notes. Orders
// without both addresses yield "".
func CompareAddresses(o *magento.Order) string {
	ship := o.ShippingAddress()
	bill := o.BillingAddress
	if ship == nil || bill == nil {
		return ""
	}

	differs := ship.City != bill.City ||
		ship.Company != bill.Company ||
		ship.CountryID != bill.CountryID ||
		ship.Firstname != bill.Firstname ||
		ship.Lastname != bill.Lastname ||
		ship.Postcode != bill.Postcode ||
		street0(ship) != street0(bill) ||
		ship.Region != bill.Region ||
		ship.RegionCode != bill.RegionCode

	if differs {
		return addressMismatchNote
	}
	return addressEqualNote
}

// InternalDescription composes the free-text block shown to the
// bookkeeper: address check result, region resolution problems, customer
// note and operator comment, payment details, and the delivery address.
func (m *Mapper) InternalDescription(o *magento.Order, orderComment, regionErr string) string {
	var b strings.Builder

	b.WriteString(CompareAddresses(o) + "\n")
	if regionErr != "" {
		b.WriteString(regionErr + "\n")
	}
	b.WriteString("\n")

	if o.CustomerNote != "" {
		b.WriteString(o.CustomerNote + "\n")
	}
	if orderComment != "" {
		b.WriteString(orderComment + "\n")
	}
	b.WriteString("\n")

	if len(o.Payment.AdditionalInformation) > 0 && o.Payment.AdditionalInformation[0] != "" {
		b.WriteString(o.Payment.AdditionalInformation[0] + "\n")
	}
	if o.Payment.Method != "" {
		b.WriteString(o.Payment.Method + "\n")
	}

	b.WriteString("\nLieferadresse:\n")
	b.WriteString(formatAddress(o.ShippingAddress()))
	return b.String()
}

// formatAddress renders company / name / street / postcode+city / region /
// country, each line only when non-empty.
func formatAddress(a *magento.Address) string {
	if a == nil {
		return ""
	}
	var b strings.Builder
	if a.Company != "" {
		b.WriteString(a.Company + "\n")
	}
	if a.Firstname != "" || a.Lastname != "" {
		b.WriteString(strings.TrimSpace(a.Firstname+" "+a.Lastname) + "\n")
	}
	if s := street0(a); s != "" {
		b.WriteString(s + "\n")
	}
	if a.Postcode != "" || a.City != "" {
		b.WriteString(strings.TrimSpace(a.Postcode+" "+a.City) + "\n")
	}
	if a.Region != "" {
		b.WriteString(a.Region + "\n")
	}
	if a.CountryID != "" {
		b.WriteString(a.CountryID + "\n")
	}
	return b.String()
}

func street0(a *magento.Address) string {
	if len(a.Street) == 0 {
		return ""
	}
	return a.Street[0]
}

func referenceDate(createdAt string) string {
	t, err := time.Parse(magentoTimeLayout, createdAt)
	if err != nil {
		return createdAt
	}
	return t.UTC().Format(timestampLayout)
}
