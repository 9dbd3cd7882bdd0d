package providers

import (
	"errors"
	"fmt"
	"gitviewer/internal/structures"
	"net/url"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return v.Errors
	}
	return cv.validateStorage()
}

// validateStorage checks the settings only the selected driver needs.
func (cv *CnfValidator) validateStorage() error {
	st := cv.conf.Storage
	if st.Timeout < 0 {
		return errors.New("storage.timeout must not be negative")
	}
	switch st.Driver {
	case "file":
		if st.File.Path == "" {
			return errors.New("storage.file.path is required for the file driver")
		}
	case "mongo":
		if st.Mongo.URI == "" || st.Mongo.Database == "" {
			return errors.New("storage.mongo.uri and storage.mongo.database are required for the mongo driver")
		}
	case "blob":
		u, err := url.Parse(st.Blob.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("storage.blob.baseURL %q is not an absolute URL", st.Blob.BaseURL)
		}
	case "sql":
		if st.SQL.DSN == "" {
			return errors.New("storage.sql.dsn is required for the sql driver")
		}
	}
	return nil
}
