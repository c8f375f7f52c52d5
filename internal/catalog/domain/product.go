package domain

import "time"

// CategoryKind is the stable type tag that selects a product's attribute
// table. It is fixed when the category is created and never re-derived from
// the display name.
type CategoryKind string

const (
	KindServer    CategoryKind = "server"
	KindThermocup CategoryKind = "thermocup"
	KindGeneral   CategoryKind = "general"
)

func ParseCategoryKind(v string) (CategoryKind, bool) {
	switch CategoryKind(v) {
	case KindServer, KindThermocup, KindGeneral:
		return CategoryKind(v), true
	default:
		return "", false
	}
}

type Category struct {
	ID          int64
	Name        string
	Kind        CategoryKind
	Description string
	CreatedAt   time.Time
}

type Warehouse struct {
	ID      int64
	Name    string
	Address string
}

type Product struct {
	ID            int64
	Name          string
	CategoryID    int64
	CategoryName  string
	SKU           string
	BasePrice     float64
	TotalQuantity int64
	Reserved      int64
	IsActive      bool
	PathToPhoto   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LowStock reports whether the product is below the restock threshold.
func (p *Product) LowStock() bool {
	return p.TotalQuantity < 10
}

type ServerAttributes struct {
	RAMGB        int    `json:"ram_gb"`
	CPUModel     string `json:"cpu_model"`
	CPUCores     int    `json:"cpu_cores"`
	HDDSizeGB    *int   `json:"hdd_size_gb,omitempty"`
	SSDSizeGB    *int   `json:"ssd_size_gb,omitempty"`
	FormFactor   string `json:"form_factor"`
	Manufacturer string `json:"manufacturer"`
}

type ThermocupAttributes struct {
	VolumeML   int     `json:"volume_ml"`
	Color      string  `json:"color"`
	Brand      string  `json:"brand"`
	Model      *string `json:"model,omitempty"`
	IsHermetic bool    `json:"is_hermetic"`
	Material   *string `json:"material,omitempty"`
}

// Attributes is the tagged variant resolved through the category kind.
// At most one branch is set, matching Kind.
type Attributes struct {
	Kind      CategoryKind
	Server    *ServerAttributes
	Thermocup *ThermocupAttributes
}

// Validate checks that the populated branch agrees with the tag.
func (a *Attributes) Validate() error {
	switch a.Kind {
	case KindServer:
		if a.Server == nil || a.Thermocup != nil {
			return ErrAttributeKind
		}
	case KindThermocup:
		if a.Thermocup == nil || a.Server != nil {
			return ErrAttributeKind
		}
	case KindGeneral:
		if a.Server != nil || a.Thermocup != nil {
			return ErrAttributeKind
		}
	}
	return nil
}

// NewProductInput carries everything needed to create a product in one
// transaction: metadata, optional kind-specific attributes, and an optional
// opening stock entry.
type NewProductInput struct {
	Name            string
	CategoryID      int64
	SKU             string
	BasePrice       float64
	PathToPhoto     string
	Attributes      *Attributes
	InitialQuantity int64
	WarehouseID     int64
}

func (in *NewProductInput) Validate() error {
	if in.Name == "" {
		return ErrEmptyProductName
	}
	if in.BasePrice < 0 {
		return ErrInvalidPrice
	}
	if in.InitialQuantity < 0 {
		return ErrInvalidQuantity
	}
	if in.InitialQuantity > 0 && in.WarehouseID == 0 {
		return ErrMissingWarehouse
	}
	return nil
}

// UpdateProductInput is a sparse metadata patch; nil fields are left as is.
type UpdateProductInput struct {
	Name        *string
	CategoryID  *int64
	BasePrice   *float64
	SKU         *string
	IsActive    *bool
	PathToPhoto *string
}
