package app

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// MediaHandler REST surface for message attachments. The media_ref it
// returns is what send_message carries.
type MediaHandler struct {
	mediaUC *MediaUseCase
}

// NewMediaHandler create MediaHandler
func NewMediaHandler(mediaUC *MediaUseCase) *MediaHandler {
	return &MediaHandler{mediaUC: mediaUC}
}

// Upload receives a multipart file and stores it.
func (h *MediaHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "file field missing"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "open upload failed"})
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ref, url, err := h.mediaUC.Store(c.UserContext(), fileHeader.Filename, file, fileHeader.Size, contentType)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"media_ref": ref,
		"url":       url,
	})
}

// Resolve returns a fresh download URL for a stored ref.
func (h *MediaHandler) Resolve(c *fiber.Ctx) error {
	ref := c.Query("ref")
	if ref == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "ref query missing"})
	}

	url, err := h.mediaUC.Resolve(c.UserContext(), ref)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"url": url})
}
