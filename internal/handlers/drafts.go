package handlers

import (
	"strings"

	"github.com/kaymio/productcast/internal/imaging"
	"github.com/kaymio/productcast/internal/social"
	"github.com/kaymio/productcast/internal/state"
	"github.com/labstack/echo/v4"
)

const msgUnsupportedImage = "Unsupported image type. Use PNG, JPG, JPEG, GIF, or WEBP."

// HandleSaveDraft stores the current form (and an optional new image)
// without calling any generator.
func (h *WorkflowHandler) HandleSaveDraft(c echo.Context) error {
	raw := collectForm(c)
	form := extractDefaults(raw)
	id := productID(form)

	if id == "" {
		flash(c, flashError, "Provide a SKU or product link before saving your progress.")
		return h.render(c, homeView{form: form})
	}

	assets := map[string]string{}
	file, err := readUpload(c, productImageField)
	if err != nil {
		flash(c, flashError, "Unable to read the uploaded image: %v", err)
		return h.render(c, homeView{form: form, productID: id})
	}
	if file != nil {
		if !imaging.Allowed(file.filename) {
			flash(c, flashError, msgUnsupportedImage)
			return h.render(c, homeView{form: form, productID: id})
		}
		if len(file.data) == 0 {
			flash(c, flashError, "The uploaded image appears to be empty.")
			return h.render(c, homeView{form: form, productID: id})
		}
		path, err := h.deps.Media.SaveOriginal(file.data, file.filename)
		if err != nil {
			flash(c, flashError, "Unable to store the uploaded image: %v", err)
			return h.render(c, homeView{form: form, productID: id})
		}
		form["original_image_path"] = path
		raw["original_image_path"] = path
		assets[state.AssetOriginalImage] = path
	}

	h.upsert(c, id, state.Update{
		FormValues: form,
		Preview:    h.rebuildPreview(c, raw),
		Assets:     assets,
	})
	flash(c, flashSuccess, "Draft saved. You can return later to continue.")
	return h.renderEntry(c, id)
}

// HandleResetPlatform clears one platform's progress for the product.
func (h *WorkflowHandler) HandleResetPlatform(c echo.Context) error {
	raw := collectForm(c)
	platform := strings.ToLower(raw["platform"])
	form := extractDefaults(raw)
	id := productID(form)

	switch {
	case id == "":
		flash(c, flashError, "Provide a SKU or product link before resetting a platform.")
	case !state.IsResettable(platform):
		flash(c, flashError, "Choose a valid platform to reset.")
	default:
		if err := h.deps.State.ResetPlatform(c.Request().Context(), id, platform); err != nil {
			flash(c, flashError, "Unable to reset %s: %v", platform, err)
			break
		}
		flash(c, flashInfo, "%s state reset.", social.Platform(platform).Title())
	}
	return h.renderEntry(c, id)
}
