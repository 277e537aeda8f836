package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"nearbuy/internal/usecase"
	"nearbuy/pkg/response"
)

type TransactionHandler struct {
	transactionUseCase *usecase.TransactionUseCase
}

func NewTransactionHandler(transactionUseCase *usecase.TransactionUseCase) *TransactionHandler {
	return &TransactionHandler{
		transactionUseCase: transactionUseCase,
	}
}

type issueQRRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
}

type confirmRequest struct {
	QRCode string `json:"qr_code" validate:"required"`
}

type rateRequest struct {
	Rating   int    `json:"rating" validate:"min=1,max=5"`
	Feedback string `json:"feedback" validate:"omitempty,max=1000"`
}

type disputeRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type qrResponse struct {
	QRCode        string    `json:"qr_code"`
	TransactionID string    `json:"transaction_id"`
	ListingID     string    `json:"listing_id"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// IssueQR answers 201 for a newly minted code and 200 when the open one is reused.
func (h *TransactionHandler) IssueQR(c echo.Context) error {
	var req issueQRRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	transaction, created, err := h.transactionUseCase.IssueQR(c.Request().Context(), currentUserID(c), req.ListingID)
	if err != nil {
		return response.Error(c, err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return response.JSON(c, status, qrResponse{
		QRCode:        transaction.QRCode,
		TransactionID: transaction.ID,
		ListingID:     transaction.ListingID,
		ExpiresAt:     transaction.ExpiresAt(h.transactionUseCase.QRValidity()).UTC(),
	})
}

func (h *TransactionHandler) ConfirmTransaction(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	transaction, err := h.transactionUseCase.ConfirmTransaction(c.Request().Context(), currentUserID(c), req.QRCode)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message":        "Transaction confirmed",
		"transaction_id": transaction.ID,
		"listing_id":     transaction.ListingID,
		"seller_id":      transaction.SellerID,
	})
}

func (h *TransactionHandler) GetHistory(c echo.Context) error {
	history, err := h.transactionUseCase.History(c.Request().Context(), currentUserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, history)
}

func (h *TransactionHandler) RateTransaction(c echo.Context) error {
	var req rateRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	transaction, err := h.transactionUseCase.RateTransaction(c.Request().Context(), currentUserID(c), c.Param("id"), req.Rating, req.Feedback)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message":        "Rating submitted",
		"transaction_id": transaction.ID,
		"seller_id":      transaction.SellerID,
	})
}

func (h *TransactionHandler) DisputeTransaction(c echo.Context) error {
	var req disputeRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	transaction, err := h.transactionUseCase.DisputeTransaction(c.Request().Context(), currentUserID(c), c.Param("id"), req.Reason)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"message":        "Dispute filed",
		"transaction_id": transaction.ID,
		"status":         transaction.Status,
	})
}
