package models

import (
	"encoding/json"
	"time"
)

// User status values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User is created automatically the first time an unknown IP address hits an
// authenticated route. ExpiresAt is advisory metadata for the sliding
// expiration window and is never exposed through the API.
type User struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	EmployeeID string    `gorm:"size:64" json:"employee_id"`
	Name       string    `gorm:"size:255" json:"name"`
	Department string    `gorm:"size:255" json:"department"`
	Avatar     string    `gorm:"size:512" json:"avatar"`
	Status     string    `gorm:"size:16;not null;default:active" json:"status"`
	LastLogin  time.Time `json:"last_login"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Items       []Item      `gorm:"foreignKey:UserID" json:"items,omitempty"`
	IPAddresses []IPAddress `gorm:"foreignKey:UserID" json:"ip_addresses,omitempty"`
}

// IPAddress maps a network address to its owning user. Rows are immutable
// after creation; the unique index guarantees at most one row per address.
type IPAddress struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	IP        string    `gorm:"size:64;not null;uniqueIndex" json:"ip"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item types.
const (
	TypeSell = "sell"
	TypeBuy  = "buy"
)

// ItemImage is one entry of an item's image list as stored in the images
// text column.
type ItemImage struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Item is a listing: an offer to sell or a request to buy. ItemCondition and
// Price are pointers because both are optional for buy-type items; the
// variant rules live in Validate. The image list is persisted as a JSON text
// blob in RawImages and decoded into Images for responses.
type Item struct {
	ID            uint        `gorm:"primarykey" json:"id"`
	ItemType      string      `gorm:"size:8;not null;default:sell" json:"item_type"`
	Category      string      `gorm:"size:32;not null" json:"category"`
	Name          string      `gorm:"size:255;not null" json:"name"`
	Description   string      `gorm:"type:text;not null" json:"description"`
	ItemCondition *int        `json:"item_condition,omitempty"`
	Price         *float64    `gorm:"type:decimal(10,2)" json:"price,omitempty"`
	IsSold        bool        `gorm:"not null;default:false" json:"is_sold"`
	ViewCount     int         `gorm:"not null;default:0" json:"view_count"`
	RawImages     string      `gorm:"column:images;type:text" json:"-"`
	Images        []ItemImage `gorm:"-" json:"images"`
	UserID        uint        `gorm:"not null;index" json:"user_id"`
	User          *User       `json:"user,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// DecodeImages populates Images from the stored blob. Malformed data is
// recovered as an empty list rather than surfaced so that one bad row never
// breaks a listing.
func (i *Item) DecodeImages() {
	i.Images = DecodeImageList(i.RawImages)
}

// DecodeImageList parses a stored image blob, returning an empty (non-nil)
// list for empty or malformed input.
func DecodeImageList(raw string) []ItemImage {
	if raw == "" {
		return []ItemImage{}
	}
	var list []ItemImage
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return []ItemImage{}
	}
	if list == nil {
		list = []ItemImage{}
	}
	return list
}

// EncodeImageList serializes an image list for the images column. A nil list
// encodes as an empty JSON array.
func EncodeImageList(list []ItemImage) string {
	if list == nil {
		list = []ItemImage{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}
