package httpapi

import (
	"errors"
	"reflect"
	"strings"

	"github.com/labstack/echo/v4"
)

// ETagger is implemented by types that compute their own ETag
// component rather than falling back to a JSON hash.
type ETagger interface {
	ETag() string
}

// CacheConfig holds the data components folded into a response's ETag.
type CacheConfig struct {
	Components []interface{}
	DevMode    bool
}

// SetCacheHeaders sets Cache-Control/ETag/Vary and returns the ETag
// and whether the request should be answered with 304 Not Modified.
// Content-Type must already be set on the response.
func SetCacheHeaders(c echo.Context, config CacheConfig) (string, bool, error) {
	if c.Response().Header().Get("Content-Type") == "" {
		return "", false, errors.New("Content-Type must be set before calling SetCacheHeaders")
	}

	formatSuffix := "html"
	if strings.HasSuffix(c.Request().URL.Path, ".json") {
		formatSuffix = "json"
	}

	etag := buildCompositeETag(config, formatSuffix)

	if config.DevMode {
		c.Response().Header().Set("Cache-Control", "no-cache, no-store, must-revalidate, private")
		c.Response().Header().Set("Pragma", "no-cache")
		c.Response().Header().Set("Expires", "0")
		c.Response().Header().Set("Vary", "*")
		return etag, false, nil
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=1, stale-while-revalidate=5, must-revalidate")
	c.Response().Header().Set("ETag", etag)
	c.Response().Header().Set("Vary", "Accept")

	if ifNoneMatch := c.Request().Header.Get("If-None-Match"); ifNoneMatch != "" && ifNoneMatch == etag {
		return etag, true, nil
	}
	return etag, false, nil
}

func buildCompositeETag(config CacheConfig, formatSuffix string) string {
	parts := []string{GetVersionString()}

	for _, component := range config.Components {
		if component == nil {
			continue
		}
		var hashValue string
		if etagger, ok := component.(ETagger); ok {
			hashValue = strings.Trim(etagger.ETag(), "\"")
		} else if etag := getETagFromStruct(component); etag != "" {
			hashValue = strings.Trim(etag, "\"")
		} else if hash, err := StableJSONHash(component); err == nil {
			hashValue = strings.Trim(hash, "\"")
		} else {
			continue
		}
		if hashValue != "" {
			parts = append(parts, hashValue)
		}
	}

	if formatSuffix != "" {
		parts = append(parts, formatSuffix)
	}
	return "\"" + strings.Join(parts, "-") + "\""
}

func getETagFromStruct(component interface{}) string {
	v := reflect.ValueOf(component)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return ""
	}
	field := v.FieldByName("ETag")
	if field.IsValid() && field.Kind() == reflect.String {
		return field.String()
	}
	return ""
}
