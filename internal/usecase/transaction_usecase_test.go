package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearbuy/internal/domain/entity"
	"nearbuy/internal/domain/repository"
	apperrors "nearbuy/pkg/errors"
)

var t0 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, status, apperrors.StatusOf(err), "error: %v", err)
}

func TestIssueQRIsIdempotentWhileOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	setNow := env.freeze(t0)

	seller := env.mustUser(t, "seller@example.com")
	listing := env.mustListing(t, seller.ID)

	first, created, err := env.transaction.IssueQR(ctx, seller.ID, listing.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Regexp(t, `^nearbuy:[0-9a-f]{32}$`, first.QRCode)

	setNow(t0.Add(30 * time.Minute))
	again, created, err := env.transaction.IssueQR(ctx, seller.ID, listing.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	setNow(t0.Add(2 * time.Hour))
	fresh, created, err := env.transaction.IssueQR(ctx, seller.ID, listing.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.QRCode, fresh.QRCode)
}

func TestIssueQRRequiresOwnedActiveListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.mustUser(t, "seller@example.com")
	other := env.mustUser(t, "other@example.com")
	listing := env.mustListing(t, seller.ID)

	_, _, err := env.transaction.IssueQR(ctx, other.ID, listing.ID)
	assertStatus(t, err, http.StatusNotFound)
	assert.Contains(t, err.Error(), "Listing not found or not owned by user")

	_, _, err = env.transaction.IssueQR(ctx, seller.ID, "missing")
	assertStatus(t, err, http.StatusNotFound)

	listing.Status = entity.ListingSold
	require.NoError(t, env.listings.Update(ctx, listing))
	_, _, err = env.transaction.IssueQR(ctx, seller.ID, listing.ID)
	assertStatus(t, err, http.StatusBadRequest)
}

func TestConfirmCompletesTransactionAndSellsListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	setNow := env.freeze(t0)

	seller := env.mustUser(t, "seller@example.com")
	buyer := env.mustUser(t, "buyer@example.com")
	listing := env.mustListing(t, seller.ID)

	issued, _, err := env.transaction.IssueQR(ctx, seller.ID, listing.ID)
	require.NoError(t, err)

	setNow(t0.Add(10 * time.Minute))
	confirmed, err := env.transaction.ConfirmTransaction(ctx, buyer.ID, issued.QRCode)
	require.NoError(t, err)
	assert.Equal(t, buyer.ID, confirmed.BuyerID)
	assert.True(t, confirmed.Completed)
	assert.Equal(t, entity.TransactionCompleted, confirmed.Status)

	stored, err := env.listings.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ListingSold, stored.Status)

	history, err := env.transaction.StatusHistory(ctx, issued.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entity.TransactionPending, history[0].FromStatus)
	assert.Equal(t, entity.TransactionCompleted, history[0].ToStatus)
	assert.Equal(t, buyer.ID, history[0].ChangedBy)

	_, err = env.transaction.ConfirmTransaction(ctx, buyer.ID, issued.QRCode)
	assertStatus(t, err, http.StatusBadRequest)
	assert.Contains(t, err.Error(), "Transaction already completed")
}

func TestConfirmRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	setNow := env.freeze(t0)

	seller := env.mustUser(t, "seller@example.com")
	buyer := env.mustUser(t, "buyer@example.com")
	listing := env.mustListing(t, seller.ID)
	issued, _, err := env.transaction.IssueQR(ctx, seller.ID, listing.ID)
	require.NoError(t, err)

	_, err = env.transaction.ConfirmTransaction(ctx, buyer.ID, "nearbuy:doesnotexist")
	assertStatus(t, err, http.StatusNotFound)

	_, err = env.transaction.ConfirmTransaction(ctx, buyer.ID, "")
	assertStatus(t, err, http.StatusBadRequest)

	// self dealing is refused even after expiry
	setNow(t0.Add(3 * time.Hour))
	_, err = env.transaction.ConfirmTransaction(ctx, seller.ID, issued.QRCode)
	assertStatus(t, err, http.StatusForbidden)

	_, err = env.transaction.ConfirmTransaction(ctx, buyer.ID, issued.QRCode)
	assertStatus(t, err, http.StatusGone)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "QR code expired", appErr.Message)
	assert.Equal(t, "Expired at "+t0.Add(time.Hour).Format(time.RFC3339), appErr.Details)

	stored, err := env.listings.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ListingActive, stored.Status)
}

func TestConfirmRespectsChatReservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seller := env.mustUser(t, "seller@example.com")
	buyer := env.mustUser(t, "buyer@example.com")
	other := env.mustUser(t, "other@example.com")
	listing := env.mustListing(t, seller.ID)

	chat, err := env.chat.InitiateChat(ctx, buyer.ID, listing.ID)
	require.NoError(t, err)
	reserved, err := env.transactions.GetByID(ctx, chat.TransactionID)
	require.NoError(t, err)

	env.transaction.now = func() time.Time { return reserved.CreatedAt.Add(time.Minute) }

	_, err = env.transaction.ConfirmTransaction(ctx, other.ID, reserved.QRCode)
	assertStatus(t, err, http.StatusForbidden)

	confirmed, err := env.transaction.ConfirmTransaction(ctx, buyer.ID, reserved.QRCode)
	require.NoError(t, err)
	assert.Equal(t, buyer.ID, confirmed.BuyerID)
}

func TestConfirmGoneWhenListingNoLongerActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.freeze(t0)

	seller := env.mustUser(t, "seller@example.com")
	buyer := env.mustUser(t, "buyer@example.com")
	listing := env.mustListing(t, seller.ID)
	issued, _, err := env.transaction.IssueQR(ctx, seller.ID, listing.ID)
	require.NoError(t, err)

	_, err = env.listing.RemoveListing(ctx, "admin", listing.ID, "prohibited item")
	require.NoError(t, err)

	_, err = env.transaction.ConfirmTransaction(ctx, buyer.ID, issued.QRCode)
	assertStatus(t, err, http.StatusGone)

	stored, err := env.transactions.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.False(t, stored.Completed)
}

type failingListingRepo struct {
	repository.ListingRepository
}

func (failingListingRepo) Update(context.Context, *entity.Listing) error {
	return apperrors.Internal("Failed to update Listing", errors.New("disk full"))
}

func TestConfirmIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.freeze(t0)

	seller := env.mustUser(t, "seller@example.com")
	buyer := env.mustUser(t, "buyer@example.com")
	listing := env.mustListing(t, seller.ID)
	issued, _, err := env.transaction.IssueQR(ctx, seller.ID, listing.ID)
	require.NoError(t, err)

	env.transaction.listingRepo = failingListingRepo{env.listings}
	_, err = env.transaction.ConfirmTransaction(ctx, buyer.ID, issued.QRCode)
	assertStatus(t, err, http.StatusInternalServerError)

	stored, err := env.transactions.GetByID(ctx, issued.ID)
	require.NoError(t, err)
	assert.False(t, stored.Completed)
	assert.Empty(t, stored.BuyerID)

	history, err := env.transactions.ListHistory(ctx, issued.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func completedTransaction(t *testing.T, env *testEnv) (*entity.Transaction, *entity.User, *entity.User) {
	t.Helper()
	ctx := context.Background()
	seller := env.mustUser(t, "seller@example.com")
	buyer := env.mustUser(t, "buyer@example.com")
	listing := env.mustListing(t, seller.ID)

	issued, _, err := env.transaction.IssueQR(ctx, seller.ID, listing.ID)
	require.NoError(t, err)
	confirmed, err := env.transaction.ConfirmTransaction(ctx, buyer.ID, issued.QRCode)
	require.NoError(t, err)
	return confirmed, seller, buyer
}

func TestRateTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.freeze(t0)
	tx, seller, buyer := completedTransaction(t, env)

	for _, bad := range []int{0, 6, -1} {
		_, err := env.transaction.RateTransaction(ctx, buyer.ID, tx.ID, bad, "")
		assertStatus(t, err, http.StatusBadRequest)
	}

	_, err := env.transaction.RateTransaction(ctx, seller.ID, tx.ID, 5, "")
	assertStatus(t, err, http.StatusNotFound)
	assert.Contains(t, err.Error(), "not eligible for rating")

	rated, err := env.transaction.RateTransaction(ctx, buyer.ID, tx.ID, 4, "  smooth handoff ")
	require.NoError(t, err)
	assert.Equal(t, 4, *rated.Rating)
	assert.Equal(t, "smooth handoff", rated.Feedback)

	_, err = env.transaction.RateTransaction(ctx, buyer.ID, tx.ID, 5, "")
	assertStatus(t, err, http.StatusConflict)

	rating, err := env.user.SellerRating(ctx, seller.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rating.TotalRatings)
	require.NotNil(t, rating.AverageRating)
	assert.Equal(t, 4.0, *rating.AverageRating)

	none, err := env.user.SellerRating(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Nil(t, none.AverageRating)
	assert.Zero(t, none.TotalRatings)
}

func TestRateBoundaryValues(t *testing.T) {
	for _, rating := range []int{1, 5} {
		t.Run(fmt.Sprintf("rating_%d", rating), func(t *testing.T) {
			env := newTestEnv(t)
			env.freeze(t0)
			tx, _, buyer := completedTransaction(t, env)
			_, err := env.transaction.RateTransaction(context.Background(), buyer.ID, tx.ID, rating, "")
			assert.NoError(t, err)
		})
	}
}

func TestDisputeWindow(t *testing.T) {
	cases := []struct {
		name    string
		after   time.Duration
		wantErr bool
	}{
		{"two days twenty three hours", 2*24*time.Hour + 23*time.Hour, false},
		{"three days one hour", 3*24*time.Hour + time.Hour, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			setNow := env.freeze(t0)
			tx, _, buyer := completedTransaction(t, env)

			setNow(t0.Add(tc.after))
			disputed, err := env.transaction.DisputeTransaction(ctx, buyer.ID, tx.ID, "item damaged")
			if tc.wantErr {
				assertStatus(t, err, http.StatusBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, entity.TransactionDisputed, disputed.Status)
		})
	}
}

func TestDisputeOnlyByBuyer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.freeze(t0)
	tx, seller, buyer := completedTransaction(t, env)

	_, err := env.transaction.DisputeTransaction(ctx, seller.ID, tx.ID, "changed my mind")
	assertStatus(t, err, http.StatusNotFound)

	_, err = env.transaction.DisputeTransaction(ctx, buyer.ID, tx.ID, "  ")
	assertStatus(t, err, http.StatusBadRequest)

	_, err = env.transaction.DisputeTransaction(ctx, buyer.ID, tx.ID, "broken")
	require.NoError(t, err)
	_, err = env.transaction.DisputeTransaction(ctx, buyer.ID, tx.ID, "still broken")
	assertStatus(t, err, http.StatusBadRequest)
}

func TestFullScenarioToRefund(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	setNow := env.freeze(t0)
	tx, _, buyer := completedTransaction(t, env)

	_, err := env.transaction.ResolveDispute(ctx, "admin", tx.ID, "refund", "")
	assertStatus(t, err, http.StatusBadRequest)

	setNow(t0.Add(24 * time.Hour))
	_, err = env.transaction.DisputeTransaction(ctx, buyer.ID, tx.ID, "not as described")
	require.NoError(t, err)

	_, err = env.transaction.ResolveDispute(ctx, "admin", tx.ID, "ignore", "")
	assertStatus(t, err, http.StatusBadRequest)

	setNow(t0.Add(48 * time.Hour))
	resolved, err := env.transaction.ResolveDispute(ctx, "admin", tx.ID, "refund", "seller agreed")
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionRefunded, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	history, err := env.transaction.StatusHistory(ctx, tx.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, entity.TransactionRefunded, history[2].ToStatus)
	assert.Equal(t, "seller agreed", history[2].Notes)

	_, err = env.transaction.DisputeTransaction(ctx, buyer.ID, tx.ID, "again")
	assertStatus(t, err, http.StatusBadRequest)
}

func TestRejectReturnsToCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.freeze(t0)
	tx, _, buyer := completedTransaction(t, env)

	_, err := env.transaction.DisputeTransaction(ctx, buyer.ID, tx.ID, "late")
	require.NoError(t, err)

	resolved, err := env.transaction.ResolveDispute(ctx, "admin", tx.ID, "reject", "")
	require.NoError(t, err)
	assert.Equal(t, entity.TransactionCompleted, resolved.Status)

	listing, err := env.listings.GetByID(ctx, tx.ListingID)
	require.NoError(t, err)
	assert.Equal(t, entity.ListingSold, listing.Status)
}

func TestHistorySplitsBoughtAndSold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.freeze(t0)
	tx, seller, buyer := completedTransaction(t, env)

	// an open QR is not part of the history
	other := env.mustListing(t, seller.ID)
	_, _, err := env.transaction.IssueQR(ctx, seller.ID, other.ID)
	require.NoError(t, err)

	sellerHistory, err := env.transaction.History(ctx, seller.ID)
	require.NoError(t, err)
	assert.Empty(t, sellerHistory.Bought)
	require.Len(t, sellerHistory.Sold, 1)
	assert.Equal(t, tx.ID, sellerHistory.Sold[0].ID)
	assert.Equal(t, "Bicycle", sellerHistory.Sold[0].Item)
	assert.Equal(t, 120.0, sellerHistory.Sold[0].Price)
	assert.Equal(t, buyer.ID, sellerHistory.Sold[0].Counterparty.ID)
	assert.Equal(t, "buyer@example.com", sellerHistory.Sold[0].Counterparty.Email)

	buyerHistory, err := env.transaction.History(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, buyerHistory.Sold)
	require.Len(t, buyerHistory.Bought, 1)
	assert.Equal(t, seller.ID, buyerHistory.Bought[0].Counterparty.ID)
	assert.NotNil(t, buyerHistory.Bought[0].Date)
}

// interleavingTransactionRepo runs onFind once, right after the first open
// transaction lookup.
type interleavingTransactionRepo struct {
	repository.TransactionRepository
	once   sync.Once
	onFind func()
}

func (r *interleavingTransactionRepo) FindOpenByListing(ctx context.Context, listingID string) (*entity.Transaction, error) {
	tx, err := r.TransactionRepository.FindOpenByListing(ctx, listingID)
	r.once.Do(r.onFind)
	return tx, err
}

func TestConcurrentIssueQRSharesOneTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seller := env.mustUser(t, "seller@example.com")
	listing := env.mustListing(t, seller.ID)

	type issueResult struct {
		tx      *entity.Transaction
		created bool
		err     error
	}
	second := make(chan issueResult, 1)
	repo := &interleavingTransactionRepo{TransactionRepository: env.transactions}
	repo.onFind = func() {
		go func() {
			tx, created, err := env.transaction.IssueQR(context.Background(), seller.ID, listing.ID)
			second <- issueResult{tx, created, err}
		}()
		select {
		case r := <-second:
			second <- r
		case <-time.After(200 * time.Millisecond):
		}
	}
	issuer := NewTransactionUseCase(repo, env.listings, env.users, env.uow, time.Hour, 72*time.Hour)

	first, created, err := issuer.IssueQR(ctx, seller.ID, listing.ID)
	require.NoError(t, err)
	assert.True(t, created)

	other := <-second
	require.NoError(t, other.err)
	assert.False(t, other.created)
	assert.Equal(t, first.ID, other.tx.ID)
	assert.Equal(t, first.QRCode, other.tx.QRCode)
}
