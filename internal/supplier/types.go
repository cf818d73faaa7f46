package supplier

// PriceItem is one product from the supplier price list.
type PriceItem struct {
	SKU          string `json:"sku"`
	BuyerSKUCode string `json:"buyer_sku_code"`
	ProductName  string `json:"product_name"`
	Category     string `json:"category"`
	Brand        string `json:"brand"`
	BrandName    string `json:"brand_name"`
	Nominal      string `json:"nominal"`
	Price        int64  `json:"price"`
	Status       string `json:"status"`
	Desc         string `json:"desc"`
}

// Code returns the SKU, accepting either field name the supplier uses.
func (p PriceItem) Code() string {
	if p.SKU != "" {
		return p.SKU
	}
	return p.BuyerSKUCode
}

func (p PriceItem) Available() bool {
	return p.Status == "available"
}

type PurchaseRequest struct {
	SKU        string
	CustomerNo string
	RefID      string
}

// TransactionResult is the supplier's view of a purchase.
type TransactionResult struct {
	RefID        string `json:"ref_id"`
	CustomerNo   string `json:"customer_no"`
	BuyerSKUCode string `json:"buyer_sku_code"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	SN           string `json:"sn"`
	RC           string `json:"rc"`
	Price        int64  `json:"price"`
}

func (r *TransactionResult) ParsedStatus() Status {
	return ParseStatus(r.Status)
}

// Snapshot is the supplier response as stored in receipt metadata.
func (r *TransactionResult) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"ref_id":  r.RefID,
		"status":  r.Status,
		"message": r.Message,
		"sn":      r.SN,
		"rc":      r.RC,
	}
}
