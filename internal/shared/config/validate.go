package config

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Validate checks the values both binaries depend on before anything is wired.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, is.Port),
		validation.Field(&c.WebPort, validation.Required, is.Port),
		validation.Field(&c.APIURL, validation.Required, is.URL),
		validation.Field(&c.APITimeout, validation.Required, validation.Min(0).Exclusive()),
		validation.Field(&c.AllowedTypes, validation.Required),
		validation.Field(&c.MaxUploadBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.ObjectStoreType, validation.Required, validation.In("local", "s3")),
		validation.Field(&c.LocalStoreDir, validation.When(c.ObjectStoreType == "local", validation.Required)),
		validation.Field(&c.S3Bucket, validation.When(c.ObjectStoreType == "s3", validation.Required)),
		validation.Field(&c.RateLimitBurst, validation.Min(0)),
		validation.Field(&c.Env, validation.Required, validation.In("dev", "local", "staging", "production")),
	)
}
