package handler

import (
	"io"
	"strings"

	"github.com/labstack/echo/v4"

	"nearbuy/internal/usecase"
	"nearbuy/pkg/errors"
	"nearbuy/pkg/response"
)

type FileHandler struct {
	uploadUseCase *usecase.UploadUseCase
}

func NewFileHandler(uploadUseCase *usecase.UploadUseCase) *FileHandler {
	return &FileHandler{
		uploadUseCase: uploadUseCase,
	}
}

type uploadRequest struct {
	Image    string `json:"image" validate:"required"`
	Filename string `json:"filename" validate:"required"`
}

// UploadFile accepts either JSON {image, filename} with base64 data or a
// multipart form with a "file" part.
func (h *FileHandler) UploadFile(c echo.Context) error {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return h.uploadMultipart(c)
	}

	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	url, err := h.uploadUseCase.UploadImage(c.Request().Context(), currentUserID(c), req.Image, req.Filename)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, map[string]string{"url": url})
}

func (h *FileHandler) uploadMultipart(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("Missing or invalid file", err))
	}

	maxSize := h.uploadUseCase.MaxSize()
	if maxSize > 0 && file.Size > maxSize {
		return response.Error(c, errors.BadRequest("File too large", nil))
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Unable to read file", err))
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return response.Error(c, errors.Internal("Unable to read file", err))
	}

	url, err := h.uploadUseCase.StoreImage(c.Request().Context(), currentUserID(c), data, file.Filename)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, map[string]string{"url": url})
}
