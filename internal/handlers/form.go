package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kaymio/productcast/internal/state"
	"github.com/labstack/echo/v4"
)

const productImageField = "product_image"

// formDefaultKeys are the operator inputs persisted as form_values.
var formDefaultKeys = []string{
	"market",
	"sku_or_url",
	"title",
	"description",
	"affiliate_link",
	"pinterest_extra",
	"category",
	"price",
	"website_boost_prompt",
	"youtube_boost_prompt",
	"use_affiliate_link",
}

// collectForm keeps the last submitted value of every field, trimmed.
func collectForm(c echo.Context) map[string]string {
	params, err := c.FormParams()
	if err != nil {
		slog.Warn("failed to parse form", "path", c.Path(), "error", err)
		return map[string]string{}
	}
	raw := make(map[string]string, len(params))
	for key, values := range params {
		if len(values) == 0 {
			continue
		}
		raw[key] = strings.TrimSpace(values[len(values)-1])
	}
	return raw
}

// extractDefaults picks the persisted inputs out of a raw form. The *_pref
// fields carry preferences through forms that do not render the control.
func extractDefaults(raw map[string]string) map[string]string {
	values := make(map[string]string, len(formDefaultKeys))
	for _, key := range formDefaultKeys {
		values[key] = raw[key]
	}
	values["website_boost_prompt"] = firstSet(raw["website_boost_prompt"], raw["website_boost_prompt_pref"])
	values["use_affiliate_link"] = firstSet(raw["use_affiliate_link"], raw["use_affiliate_link_pref"], "0")
	return values
}

func productID(values map[string]string) string {
	return state.NormalizeProductID(values["sku_or_url"])
}

func useAffiliateLink(values map[string]string) bool {
	return state.IsTruthy(values["use_affiliate_link"])
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func cloneForm(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// nonEmpty drops blank values so an asset merge never erases a stored path.
func nonEmpty(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

type upload struct {
	filename string
	data     []byte
}

// readUpload returns nil when the request carries no file for field.
func readUpload(c echo.Context, field string) (*upload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	if header.Filename == "" {
		return nil, nil
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	return &upload{filename: header.Filename, data: data}, nil
}
