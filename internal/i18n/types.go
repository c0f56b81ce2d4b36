package i18n

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Locale represents a supported language for localized documents.
type Locale struct {
	bun.BaseModel `bun:"table:locales,alias:l"`

	ID        uuid.UUID  `bun:",pk,type:uuid"         json:"id"`
	Code      string     `bun:"code,notnull"          json:"code"`
	Display   string     `bun:"display_name,notnull"  json:"display_name"`
	IsActive  bool       `bun:"is_active,notnull,default:true"   json:"is_active"`
	IsDefault bool       `bun:"is_default,notnull,default:false" json:"is_default"`
	DeletedAt *time.Time `bun:"deleted_at,nullzero"   json:"deleted_at,omitempty"`
	CreatedAt time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

// Config carries the locale bootstrap values supplied by the host application.
type Config struct {
	DefaultLocale string
	Locales       []string
}

func FromModuleConfig(defaultLocale string, locales []string) Config {
	return Config{
		DefaultLocale: defaultLocale,
		Locales:       locales,
	}
}
