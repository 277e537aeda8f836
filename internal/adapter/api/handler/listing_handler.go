package handler

import (
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"nearbuy/internal/usecase"
	"nearbuy/pkg/errors"
	"nearbuy/pkg/response"
	"nearbuy/pkg/utils"
)

type ListingHandler struct {
	listingUseCase *usecase.ListingUseCase
}

func NewListingHandler(listingUseCase *usecase.ListingUseCase) *ListingHandler {
	return &ListingHandler{
		listingUseCase: listingUseCase,
	}
}

type createListingRequest struct {
	Title       string  `json:"title" validate:"required,max=100"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Category    string  `json:"category" validate:"omitempty,max=50"`
	ImageURL    string  `json:"image_url" validate:"omitempty,max=500"`
}

type updateListingRequest struct {
	Title         *string  `json:"title" validate:"omitempty,max=100"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price"`
	Category      *string  `json:"category" validate:"omitempty,max=50"`
	ImageURL      *string  `json:"image_url" validate:"omitempty,max=500"`
	Status        *string  `json:"status"`
	RemovalReason *string  `json:"removal_reason" validate:"omitempty,max=200"`
}

type searchResponse struct {
	Count   int64       `json:"count"`
	Results interface{} `json:"results"`
}

func (h *ListingHandler) CreateListing(c echo.Context) error {
	var req createListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	listing, err := h.listingUseCase.CreateListing(c.Request().Context(), currentUserID(c), usecase.CreateListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, listing)
}

func (h *ListingHandler) GetListing(c echo.Context) error {
	listing, err := h.listingUseCase.GetListing(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, listing)
}

func (h *ListingHandler) UpdateListing(c echo.Context) error {
	var req updateListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	listing, err := h.listingUseCase.UpdateListing(c.Request().Context(), currentActor(c), c.Param("id"), usecase.UpdateListingInput{
		Title:         req.Title,
		Description:   req.Description,
		Price:         req.Price,
		Category:      req.Category,
		ImageURL:      req.ImageURL,
		Status:        req.Status,
		RemovalReason: req.RemovalReason,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

func (h *ListingHandler) DeleteListing(c echo.Context) error {
	if err := h.listingUseCase.DeleteListing(c.Request().Context(), currentActor(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchListings reads q, category, min_price, max_price, status, seller_id, page and limit.
func (h *ListingHandler) SearchListings(c echo.Context) error {
	minPrice, err := priceParam(c, "min_price")
	if err != nil {
		return response.Error(c, err)
	}
	maxPrice, err := priceParam(c, "max_price")
	if err != nil {
		return response.Error(c, err)
	}

	pagination := utils.GetPaginationParams(c)
	listings, total, err := h.listingUseCase.SearchListings(c.Request().Context(), usecase.SearchListingsInput{
		Query:    c.QueryParam("q"),
		Category: c.QueryParam("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Status:   c.QueryParam("status"),
		SellerID: c.QueryParam("seller_id"),
		Limit:    pagination.PageSize,
		Offset:   pagination.Offset,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, searchResponse{Count: total, Results: listings})
}

func priceParam(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, errors.Validation("Invalid " + name)
	}
	return &value, nil
}
