package handler

import (
	"github.com/labstack/echo/v4"

	"nearbuy/internal/usecase"
	"nearbuy/pkg/response"
	"nearbuy/pkg/utils"
)

type AdminHandler struct {
	adminUseCase       *usecase.AdminUseCase
	listingUseCase     *usecase.ListingUseCase
	transactionUseCase *usecase.TransactionUseCase
}

func NewAdminHandler(
	adminUseCase *usecase.AdminUseCase,
	listingUseCase *usecase.ListingUseCase,
	transactionUseCase *usecase.TransactionUseCase,
) *AdminHandler {
	return &AdminHandler{
		adminUseCase:       adminUseCase,
		listingUseCase:     listingUseCase,
		transactionUseCase: transactionUseCase,
	}
}

type removeListingRequest struct {
	Reason string `json:"reason" validate:"required,max=200"`
}

type resolveDisputeRequest struct {
	Action string `json:"action" validate:"required"`
	Notes  string `json:"notes" validate:"omitempty,max=1000"`
}

func (h *AdminHandler) RemoveListing(c echo.Context) error {
	var req removeListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	listing, err := h.listingUseCase.RemoveListing(c.Request().Context(), currentUserID(c), c.Param("id"), req.Reason)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"message":    "Listing removed",
		"listing_id": listing.ID,
		"status":     listing.Status,
	})
}

func (h *AdminHandler) ResolveDispute(c echo.Context) error {
	var req resolveDisputeRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	transaction, err := h.transactionUseCase.ResolveDispute(c.Request().Context(), currentUserID(c), c.Param("id"), req.Action, req.Notes)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"message":        "Dispute resolved",
		"transaction_id": transaction.ID,
		"new_status":     transaction.Status,
	})
}

func (h *AdminHandler) GetTransactionHistory(c echo.Context) error {
	history, err := h.transactionUseCase.StatusHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, history)
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	pagination := utils.GetPaginationParams(c)

	users, total, err := h.adminUseCase.ListUsers(c.Request().Context(), pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Paginated(c, users, total, pagination.Page, pagination.PageSize)
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	user, err := h.adminUseCase.DeleteUser(c.Request().Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message": "User deleted",
		"user_id": user.ID,
	})
}
