package models

import "time"

type Role string

const (
	RoleOwner Role = "owner"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleAdmin
}

// MaxProductImages is the most images a product can carry. Extra URLs are dropped.
const MaxProductImages = 8

type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"fecha_creacion"`
	UpdatedAt    time.Time `json:"fecha_actualizacion"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Name         string    `gorm:"size:100" json:"nombre"`
	Role         Role      `gorm:"size:20;not null;index" json:"rol"`
	Phone        *string   `gorm:"size:20" json:"telefono"`
	Active       bool      `gorm:"not null" json:"activo"`
}

type Product struct {
	ID          uint `gorm:"primarykey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string         `gorm:"size:255;not null"`
	Description string         `gorm:"type:text"`
	Price       float64        `gorm:"type:decimal(10,2);not null"`
	Stock       int            `gorm:"not null;default:0"`
	ImageURL    *string        `gorm:"size:500"`
	OwnerID     *uint          `gorm:"index"`
	Owner       *User          `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Images      []ProductImage `gorm:"constraint:OnDelete:CASCADE;"`
}

type ProductImage struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	ProductID uint   `gorm:"not null;index:idx_product_images_order,priority:1"`
	URL       string `gorm:"size:500;not null"`
	Position  int    `gorm:"not null;default:0;index:idx_product_images_order,priority:2"`
}

// ImageURLs returns the image URLs in display order. Images must already be sorted by position.
func (p *Product) ImageURLs() []string {
	urls := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		urls = append(urls, img.URL)
	}
	return urls
}
