package httputil

import (
	"fmt"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"
)

const (
	// DefaultPageLimit is used when the request carries no limit.
	DefaultPageLimit = 50
	// MaxPageLimit caps a single listing page.
	MaxPageLimit = 100
)

// Page is the offset/limit window of a list endpoint.
type Page struct {
	Offset int `form:"offset,default=0" json:"offset"`
	Limit  int `form:"limit,default=50" json:"limit"`
}

// Validate checks the window bounds.
func (p Page) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Offset, validation.Min(0)),
		validation.Field(&p.Limit, validation.Required, validation.Min(1), validation.Max(MaxPageLimit)),
	)
}

// ParsePage binds offset and limit from the query string and validates them.
func ParsePage(c *gin.Context) (Page, error) {
	var page Page
	if err := c.ShouldBindQuery(&page); err != nil {
		return Page{}, fmt.Errorf("invalid pagination parameters: offset and limit must be integers")
	}
	if err := page.Validate(); err != nil {
		return Page{}, err
	}
	return page, nil
}
