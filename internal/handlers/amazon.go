package handlers

import (
	"log/slog"

	"github.com/kaymio/productcast/internal/platforms/canopy"
	"github.com/kaymio/productcast/internal/state"
	"github.com/labstack/echo/v4"
)

const amazonMarket = "Amazon"

// HandleLookupAmazon prefills the form from an Amazon listing. Fields the
// operator already filled in are kept.
func (h *WorkflowHandler) HandleLookupAmazon(c echo.Context) error {
	ctx := c.Request().Context()
	raw := collectForm(c)
	form := extractDefaults(raw)

	asin, err := canopy.ExtractASIN(form["sku_or_url"])
	if err != nil {
		flash(c, flashError, "Provide an Amazon ASIN or product link to look up.")
		return h.render(c, homeView{form: form, productID: productID(form)})
	}

	product, err := h.deps.Amazon.LookupProduct(ctx, asin, h.deps.AmazonCountry)
	if err != nil {
		slog.Error("amazon lookup failed", "asin", asin, "error", err)
		flash(c, flashError, "Unable to look up the Amazon product: %v", err)
		return h.render(c, homeView{form: form, productID: productID(form)})
	}

	form["sku_or_url"] = product.ASIN
	form["market"] = amazonMarket
	form["title"] = firstSet(form["title"], product.Title)
	form["description"] = firstSet(form["description"], product.Description)
	form["category"] = firstSet(form["category"], product.Category)
	form["price"] = firstSet(form["price"], product.Price)
	form["affiliate_link"] = firstSet(form["affiliate_link"], product.AffiliateLink, product.OriginalLink)
	id := productID(form)

	assets := map[string]string{}
	if imagePath := h.fetchProductImage(c, product); imagePath != "" {
		form["original_image_path"] = imagePath
		assets[state.AssetOriginalImage] = imagePath
		flash(c, flashSuccess, "Amazon product details loaded.")
	} else {
		flash(c, flashInfo, "Product details loaded, but the product image could not be downloaded.")
	}

	h.upsert(c, id, state.Update{FormValues: form, Assets: assets})
	return h.render(c, homeView{form: form, productID: id})
}

// fetchProductImage stores the listing's first image as the original upload.
func (h *WorkflowHandler) fetchProductImage(c echo.Context, product *canopy.Product) string {
	if len(product.ImageURLs) == 0 {
		return ""
	}
	images, err := h.deps.Images.DownloadImages(c.Request().Context(), product.ImageURLs, 1)
	if err != nil || len(images) == 0 {
		slog.Warn("amazon image download failed", "asin", product.ASIN, "error", err)
		return ""
	}
	img := images[0]
	path, err := h.deps.Media.SaveOriginal(img.Data, "amazon"+img.Ext)
	if err != nil {
		slog.Error("failed to store amazon image", "asin", product.ASIN, "error", err)
		return ""
	}
	return path
}
