package freefinance

// TokenPair is the OAuth2 credential pair handed out by /oauth2/token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Customer as FreeFinance stores it. CustomerNumber is the business key
// (the Magento customer id as text); ID is assigned by FreeFinance.
// NoVatNumber must always be recomputed from TaxNumber, never carried over.
type Customer struct {
	ID             string `json:"id,omitempty"`
	NoVatNumber    bool   `json:"noVatNumber"`
	CustomerNumber string `json:"customerNumber,omitempty"`
	EmailAddress   string `json:"emailAddress,omitempty"`
	MobileNumber   string `json:"mobileNumber,omitempty"`
	TaxNumber      string `json:"taxNumber,omitempty"`
	CompanyName    string `json:"companyName,omitempty"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	StreetName     string `json:"streetName,omitempty"`
	ZipCode        string `json:"zipCode,omitempty"`
	City           string `json:"city,omitempty"`
	Country        string `json:"country,omitempty"`
	Region         string `json:"region,omitempty"`

	// Numbered attribute slots carry shop-specific extensions:
	// 1 = Magento customer group id, 5 = raw billing region name.
	Attribute1 int    `json:"attribute1,omitempty"`
	Attribute5 string `json:"attribute5,omitempty"`
}

type DiscountMode string

const (
	DiscountRate          DiscountMode = "RATE"
	DiscountConstant      DiscountMode = "CONSTANT"
	DiscountConstantTotal DiscountMode = "CONSTANT_TOTAL"
)

// InvoiceLine is one position of an outbound invoice. Item stays empty when
// the SKU has no counterpart in the FreeFinance item catalog.
type InvoiceLine struct {
	Item          string       `json:"item,omitempty"`
	ItemNumber    string       `json:"itemNumber,omitempty"`
	Name          string       `json:"name,omitempty"`
	Amount        float64      `json:"amount"`
	Account       string       `json:"account,omitempty"`
	TaxClassEntry string       `json:"taxClassEntry,omitempty"`
	ItemPrice     float64      `json:"itemPrice"`
	ItemPriceType string       `json:"itemPriceType,omitempty"`
	NetPrice      float64      `json:"netPrice"`
	TaxPrice      float64      `json:"taxPrice"`
	TotalPrice    float64      `json:"totalPrice"`
	Discount      float64      `json:"discount"`
	DiscountMode  DiscountMode `json:"discountMode,omitempty"`
	UnitOfMeasure string       `json:"unitOfMeasure,omitempty"`
}

type Invoice struct {
	ID                  string        `json:"id,omitempty"`
	State               string        `json:"state,omitempty"`
	Date                string        `json:"date,omitempty"`
	PaymentTerm         string        `json:"paymentTerm,omitempty"`
	Customer            string        `json:"customer,omitempty"`
	InternalDescription string        `json:"internalDescription,omitempty"`
	ReferenceText       string        `json:"referenceText,omitempty"`
	ReferenceDate       string        `json:"referenceDate,omitempty"`
	Lines               []InvoiceLine `json:"lines,omitempty"`
}

// Item is a FreeFinance catalog entry, matched against order SKUs.
type Item struct {
	ID     string `json:"id"`
	Number string `json:"number"`
}

// Region of a country, used by the optional region resolution.
type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
