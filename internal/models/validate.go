package models

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the filing's required fields and that it was submitted on or after its
// reference date.
func (f *Filing) Validate() error {
	return validate.Struct(f)
}

// Validate checks the company identity fields used to build URLs and cache paths.
func (c *Company) Validate() error {
	return validate.Struct(c)
}
