package magento

// Order is the slice of Magento's sales order we consume. Field names
// follow the REST API (GET /rest/V1/orders/{id}).
type Order struct {
	EntityID               int     `json:"entity_id"`
	IncrementID            string  `json:"increment_id"`
	CreatedAt              string  `json:"created_at"` // "2006-01-02 15:04:05"
	CustomerID             int     `json:"customer_id"`
	CustomerGroupID        int     `json:"customer_group_id"`
	CustomerEmail          string  `json:"customer_email"`
	CustomerNote           string  `json:"customer_note"`
	ShippingAmount         float64 `json:"shipping_amount"`
	ShippingDiscountAmount float64 `json:"shipping_discount_amount"`
	ShippingDescription    string  `json:"shipping_description"`

	BillingAddress      *Address            `json:"billing_address"`
	Items               []Item              `json:"items"`
	Payment             Payment             `json:"payment"`
	ExtensionAttributes ExtensionAttributes `json:"extension_attributes"`
}

type Address struct {
	City       string   `json:"city"`
	Company    string   `json:"company"`
	CountryID  string   `json:"country_id"`
	Firstname  string   `json:"firstname"`
	Lastname   string   `json:"lastname"`
	Postcode   string   `json:"postcode"`
	Street     []string `json:"street"`
	Region     string   `json:"region"`
	RegionCode string   `json:"region_code"`
	Telephone  string   `json:"telephone"`
	VatID      string   `json:"vat_id"`
}

// Item is one order line. For configurable products the child carries the
// descriptive name while ParentItem holds the authoritative price, tax and
// discount figures.
type Item struct {
	SKU              string  `json:"sku"`
	Name             string  `json:"name"`
	ProductType      string  `json:"product_type"`
	QtyOrdered       float64 `json:"qty_ordered"`
	BasePriceInclTax float64 `json:"base_price_incl_tax"`
	TaxPercent       float64 `json:"tax_percent"`
	DiscountAmount   float64 `json:"discount_amount"`
	ParentItem       *Item   `json:"parent_item,omitempty"`
}

type Payment struct {
	Method                string   `json:"method"`
	AdditionalInformation []string `json:"additional_information"`
}

type ExtensionAttributes struct {
	ShippingAssignments []ShippingAssignment `json:"shipping_assignments"`
}

type ShippingAssignment struct {
	Shipping Shipping `json:"shipping"`
}

type Shipping struct {
	Address *Address `json:"address"`
}

// ShippingAddress returns the address of the first shipping assignment, or
// nil when the order has none (virtual orders).
func (o *Order) ShippingAddress() *Address {
	if len(o.ExtensionAttributes.ShippingAssignments) == 0 {
		return nil
	}
	return o.ExtensionAttributes.ShippingAssignments[0].Shipping.Address
}
