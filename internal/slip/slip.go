// Package slip renders the 80mm thermal delivery slip for logical orders.
package slip

import (
	"fmt"
	"html/template"
	"io"

	"grain-orders/internal/core"
	"grain-orders/web"

	"github.com/shopspring/decimal"
)

var tmpl = template.Must(template.ParseFS(web.Templates, "templates/slip.html"))

// Labels maps product types to the Hindi names printed on slips.
var Labels = map[string]string{
	core.ProductTukdi:   "टुकड़ी",
	core.ProductSasiya:  "सासिया",
	core.ProductTukdiD:  "टुकड़ी डीलक्स",
	core.ProductSasiyaD: "सासिया डीलक्स",
	core.ProductOther:   "अन्य",
	core.ProductNull:    "अन्य",
}

// Label returns "Hindi (Type)" for known types and the type itself otherwise.
func Label(productType string) string {
	if h, ok := Labels[productType]; ok {
		return fmt.Sprintf("%s (%s)", h, productType)
	}
	return productType
}

type Item struct {
	Label    string
	Quantity string
	Amount   string
}

// Slip is the view model for one printed slip.
type Slip struct {
	BusinessName string
	OrderNumber  int64
	Date         string
	CustomerName string
	Address      string
	AreaName     string
	SubArea      string
	Phone        string
	Items        []Item
	Total        string
	Paid         string
	Pending      string // empty when fully paid
	DriverName   string
	DriverPhone  string
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Build turns a logical order into a slip. Only slots with a quantity are listed.
func Build(businessName string, o core.LogicalOrder) Slip {
	s := Slip{
		BusinessName: businessName,
		OrderNumber:  o.OrderNumber,
		Date:         o.Date.Format("02/01/2006"),
		CustomerName: o.CustomerName,
		Address:      o.CustomerAddress,
		AreaName:     o.AreaName,
		SubArea:      o.SubArea,
		Phone:        o.CustomerPhone,
		Total:        money(o.TotalAmount),
		Paid:         money(o.TotalPaid),
		DriverName:   o.DriverName,
		DriverPhone:  o.DriverPhone,
	}
	if o.Pending().IsPositive() {
		s.Pending = money(o.Pending())
	}
	for _, p := range o.Products {
		if !p.Quantity.IsPositive() {
			continue
		}
		s.Items = append(s.Items, Item{
			Label:    Label(p.ProductType),
			Quantity: p.Quantity.String(),
			Amount:   money(p.Amount),
		})
	}
	return s
}

type page struct {
	Title string
	Slips []Slip
}

// Render writes one HTML document holding a page-broken slip per order.
func Render(w io.Writer, businessName string, orders []core.LogicalOrder) error {
	p := page{Title: businessName + " slips"}
	for _, o := range orders {
		p.Slips = append(p.Slips, Build(businessName, o))
	}
	if err := tmpl.ExecuteTemplate(w, "slips", p); err != nil {
		return fmt.Errorf("render slips: %w", err)
	}
	return nil
}
