package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankcards/internal/apperrors"
	"bankcards/internal/locker"
	"bankcards/internal/models"
	"bankcards/internal/repositories"
)

// fakeStore is an in-memory stand-in for the card tables. Transactions
// hold the store mutex for their whole unit of work and roll back to a
// snapshot on error, mirroring the commit-or-nothing behavior of the
// real repository.
type fakeStore struct {
	mu        sync.Mutex
	cards     map[uuid.UUID]*models.Card
	transfers []models.CardTransfer
}

func newFakeStore() *fakeStore {
	return &fakeStore{cards: make(map[uuid.UUID]*models.Card)}
}

func (s *fakeStore) addCard(card *models.Card) {
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	c := *card
	s.cards[card.ID] = &c
}

func (s *fakeStore) balance(id uuid.UUID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cards[id].Balance
}

type fakeCardRepo struct {
	store *fakeStore
	inTx  bool
}

func (r *fakeCardRepo) locked() func() {
	if r.inTx {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *fakeCardRepo) Create(card *models.Card) error {
	defer r.locked()()
	r.store.addCard(card)
	return nil
}

func (r *fakeCardRepo) GetByID(id uuid.UUID) (*models.Card, error) {
	defer r.locked()()
	card, ok := r.store.cards[id]
	if !ok {
		return nil, repositories.ErrCardNotFound
	}
	c := *card
	return &c, nil
}

func (r *fakeCardRepo) GetByIDForUpdate(id uuid.UUID) (*models.Card, error) {
	return r.GetByID(id)
}

func (r *fakeCardRepo) GetByIDAndOwner(id, ownerID uuid.UUID) (*models.Card, error) {
	card, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if card.OwnerID != ownerID {
		return nil, repositories.ErrCardNotFound
	}
	return card, nil
}

func (r *fakeCardRepo) ExistsByOwnerAndMask(ownerID uuid.UUID, maskedNumber string) (bool, error) {
	defer r.locked()()
	for _, card := range r.store.cards {
		if card.OwnerID == ownerID && card.MaskedNumber == maskedNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCardRepo) UpdateBalance(id uuid.UUID, balance decimal.Decimal) error {
	defer r.locked()()
	card, ok := r.store.cards[id]
	if !ok {
		return repositories.ErrCardNotFound
	}
	card.Balance = balance
	return nil
}

func (r *fakeCardRepo) UpdateStatus(id uuid.UUID, status models.CardStatus) error {
	defer r.locked()()
	card, ok := r.store.cards[id]
	if !ok {
		return repositories.ErrCardNotFound
	}
	card.Status = status
	return nil
}

func (r *fakeCardRepo) Delete(id uuid.UUID) error {
	defer r.locked()()
	if _, ok := r.store.cards[id]; !ok {
		return repositories.ErrCardNotFound
	}
	delete(r.store.cards, id)
	return nil
}

func (r *fakeCardRepo) List(filter repositories.CardFilter, limit, offset int) ([]models.Card, int64, error) {
	defer r.locked()()
	var out []models.Card
	for _, card := range r.store.cards {
		if filter.OwnerID != nil && card.OwnerID != *filter.OwnerID {
			continue
		}
		out = append(out, *card)
	}
	return out, int64(len(out)), nil
}

func (r *fakeCardRepo) CreateTransfer(transfer *models.CardTransfer) error {
	defer r.locked()()
	if transfer.ID == uuid.Nil {
		transfer.ID = uuid.New()
	}
	transfer.CreatedAt = time.Now()
	r.store.transfers = append(r.store.transfers, *transfer)
	return nil
}

func (r *fakeCardRepo) ExecuteInTransaction(fn func(repositories.CardRepository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	snapshot := make(map[uuid.UUID]*models.Card, len(r.store.cards))
	for id, card := range r.store.cards {
		c := *card
		snapshot[id] = &c
	}
	transferCount := len(r.store.transfers)

	if err := fn(&fakeCardRepo{store: r.store, inTx: true}); err != nil {
		r.store.cards = snapshot
		r.store.transfers = r.store.transfers[:transferCount]
		return err
	}
	return nil
}

type fakeTransferRepo struct {
	store *fakeStore
}

func (r *fakeTransferRepo) GetByID(id uuid.UUID) (*models.CardTransfer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.transfers {
		if r.store.transfers[i].ID == id {
			t := r.store.transfers[i]
			return &t, nil
		}
	}
	return nil, repositories.ErrTransferNotFound
}

func (r *fakeTransferRepo) GetForUser(userID uuid.UUID, limit, offset int) ([]models.CardTransfer, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []models.CardTransfer
	for i := len(r.store.transfers) - 1; i >= 0; i-- {
		t := r.store.transfers[i]
		source, target := r.store.cards[t.SourceCardID], r.store.cards[t.TargetCardID]
		if (source != nil && source.OwnerID == userID) || (target != nil && target.OwnerID == userID) {
			out = append(out, t)
		}
	}
	return out, int64(len(out)), nil
}

func amount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	store   *fakeStore
	service Service
	ownerID uuid.UUID
	source  uuid.UUID
	target  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	ownerID := uuid.New()

	source := &models.Card{
		OwnerID:        ownerID,
		MaskedNumber:   "**** **** **** 7899",
		Status:         models.CardStatusActive,
		ExpirationDate: time.Now().AddDate(2, 0, 0),
		Balance:        amount("100.00"),
	}
	target := &models.Card{
		OwnerID:        ownerID,
		MaskedNumber:   "**** **** **** 3217",
		Status:         models.CardStatusActive,
		ExpirationDate: time.Now().AddDate(2, 0, 0),
		Balance:        amount("50.00"),
	}
	store.addCard(source)
	store.addCard(target)

	repo := &fakeCardRepo{store: store}
	svc := NewService(repo, &fakeTransferRepo{store: store}, locker.New(), time.Second)

	return &fixture{
		store:   store,
		service: svc,
		ownerID: ownerID,
		source:  source.ID,
		target:  target.ID,
	}
}

func TestTransferMovesFundsAndRecords(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.Transfer(context.Background(), f.ownerID, Request{
		SourceCardID: f.source,
		TargetCardID: f.target,
		Amount:       amount("40.00"),
		Description:  "rent share",
	})
	require.NoError(t, err)

	assert.True(t, f.store.balance(f.source).Equal(amount("60.00")))
	assert.True(t, f.store.balance(f.target).Equal(amount("90.00")))

	require.NotNil(t, created)
	assert.Equal(t, models.TransferStatusCompleted, created.Status)
	assert.True(t, created.Amount.Equal(amount("40.00")))
	assert.Equal(t, "rent share", created.Description)
	assert.NotEqual(t, uuid.Nil, created.ID)

	transfers, total, err := f.service.GetUserTransfers(context.Background(), f.ownerID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, transfers, 1)
	assert.Equal(t, created.ID, transfers[0].ID)
}

func TestTransferExactBalanceDrainsCard(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Transfer(context.Background(), f.ownerID, Request{
		SourceCardID: f.source,
		TargetCardID: f.target,
		Amount:       amount("100.00"),
	})
	require.NoError(t, err)

	assert.True(t, f.store.balance(f.source).IsZero())
	assert.True(t, f.store.balance(f.target).Equal(amount("150.00")))
}

func TestTransferValidationFailures(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		userID   uuid.UUID
		req      Request
		wantKind apperrors.Kind
	}{
		{
			name:     "zero amount",
			userID:   f.ownerID,
			req:      Request{SourceCardID: f.source, TargetCardID: f.target, Amount: decimal.Zero},
			wantKind: apperrors.KindValidation,
		},
		{
			name:     "negative amount",
			userID:   f.ownerID,
			req:      Request{SourceCardID: f.source, TargetCardID: f.target, Amount: amount("-5.00")},
			wantKind: apperrors.KindValidation,
		},
		{
			name:     "same card",
			userID:   f.ownerID,
			req:      Request{SourceCardID: f.source, TargetCardID: f.source, Amount: amount("5.00")},
			wantKind: apperrors.KindBusiness,
		},
		{
			name:     "insufficient funds",
			userID:   f.ownerID,
			req:      Request{SourceCardID: f.source, TargetCardID: f.target, Amount: amount("400.00")},
			wantKind: apperrors.KindBusiness,
		},
		{
			name:     "foreign cards",
			userID:   uuid.New(),
			req:      Request{SourceCardID: f.source, TargetCardID: f.target, Amount: amount("5.00")},
			wantKind: apperrors.KindBusiness,
		},
		{
			name:     "unknown card",
			userID:   f.ownerID,
			req:      Request{SourceCardID: uuid.New(), TargetCardID: f.target, Amount: amount("5.00")},
			wantKind: apperrors.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Transfer(context.Background(), tt.userID, tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperrors.KindOf(err))

			// Nothing may have been persisted.
			assert.True(t, f.store.balance(f.source).Equal(amount("100.00")))
			assert.True(t, f.store.balance(f.target).Equal(amount("50.00")))
			assert.Empty(t, f.store.transfers)
		})
	}
}

func TestTransferRejectsOverlongDescription(t *testing.T) {
	f := newFixture(t)

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'x'
	}
	_, err := f.service.Transfer(context.Background(), f.ownerID, Request{
		SourceCardID: f.source,
		TargetCardID: f.target,
		Amount:       amount("5.00"),
		Description:  string(long),
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestTransferRejectsBlockedAndExpiredCards(t *testing.T) {
	t.Run("blocked source", func(t *testing.T) {
		f := newFixture(t)
		f.store.cards[f.source].Status = models.CardStatusBlocked

		_, err := f.service.Transfer(context.Background(), f.ownerID, Request{
			SourceCardID: f.source, TargetCardID: f.target, Amount: amount("5.00"),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsBusiness(err))
		assert.Contains(t, err.Error(), "blocked")
	})

	t.Run("blocked target", func(t *testing.T) {
		f := newFixture(t)
		f.store.cards[f.target].Status = models.CardStatusBlocked

		_, err := f.service.Transfer(context.Background(), f.ownerID, Request{
			SourceCardID: f.source, TargetCardID: f.target, Amount: amount("5.00"),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsBusiness(err))
	})

	t.Run("expired by date without stored status", func(t *testing.T) {
		f := newFixture(t)
		f.store.cards[f.target].ExpirationDate = time.Now().AddDate(0, 0, -2)

		_, err := f.service.Transfer(context.Background(), f.ownerID, Request{
			SourceCardID: f.source, TargetCardID: f.target, Amount: amount("5.00"),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsBusiness(err))
		assert.Contains(t, err.Error(), "expired")

		// The stored status stays untouched; expiration is read-time only.
		assert.Equal(t, models.CardStatusActive, f.store.cards[f.target].Status)
	})
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	f := newFixture(t)

	// Ten concurrent 20.00 transfers against a 100.00 balance: exactly
	// five can succeed and the source can never go negative.
	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		i := i
		go func() {
			defer wg.Done()
			_, errs[i] = f.service.Transfer(context.Background(), f.ownerID, Request{
				SourceCardID: f.source,
				TargetCardID: f.target,
				Amount:       amount("20.00"),
			})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperrors.IsBusiness(err))
		}
	}
	assert.Equal(t, 5, succeeded)

	assert.True(t, f.store.balance(f.source).IsZero(), "source balance %s", f.store.balance(f.source))
	assert.True(t, f.store.balance(f.target).Equal(amount("150.00")))
	assert.Len(t, f.store.transfers, 5)
}

func TestMirroredTransfersDoNotDeadlock(t *testing.T) {
	f := newFixture(t)
	f.store.cards[f.source].Balance = amount("500.00")
	f.store.cards[f.target].Balance = amount("500.00")

	const rounds = 100
	var wg sync.WaitGroup
	wg.Add(2)
	run := func(source, target uuid.UUID) {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			_, err := f.service.Transfer(context.Background(), f.ownerID, Request{
				SourceCardID: source,
				TargetCardID: target,
				Amount:       amount("1.00"),
			})
			if err != nil && !apperrors.IsBusiness(err) {
				t.Errorf("unexpected error: %v", err)
				return
			}
		}
	}
	go run(f.source, f.target)
	go run(f.target, f.source)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("mirrored transfers deadlocked")
	}

	total := f.store.balance(f.source).Add(f.store.balance(f.target))
	assert.True(t, total.Equal(amount("1000.00")), "total %s", total)
	assert.False(t, f.store.balance(f.source).IsNegative())
	assert.False(t, f.store.balance(f.target).IsNegative())
}

func TestGetTransfer(t *testing.T) {
	f := newFixture(t)

	created, err := f.service.Transfer(context.Background(), f.ownerID, Request{
		SourceCardID: f.source,
		TargetCardID: f.target,
		Amount:       amount("10.00"),
		Description:  "lunch",
	})
	require.NoError(t, err)

	t.Run("owner can fetch", func(t *testing.T) {
		got, err := f.service.GetTransfer(context.Background(), f.ownerID, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, "lunch", got.Description)
	})

	t.Run("stranger reads not found", func(t *testing.T) {
		_, err := f.service.GetTransfer(context.Background(), uuid.New(), created.ID)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := f.service.GetTransfer(context.Background(), f.ownerID, uuid.New())
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestTransferWrapsRepositoryFailures(t *testing.T) {
	f := newFixture(t)
	repo := &failingCardRepo{fakeCardRepo{store: f.store}}
	svc := NewService(repo, &fakeTransferRepo{store: f.store}, locker.New(), time.Second)

	_, err := svc.Transfer(context.Background(), f.ownerID, Request{
		SourceCardID: f.source,
		TargetCardID: f.target,
		Amount:       amount("5.00"),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
	assert.True(t, f.store.balance(f.source).Equal(amount("100.00")))
}

type failingCardRepo struct {
	fakeCardRepo
}

func (r *failingCardRepo) ExecuteInTransaction(fn func(repositories.CardRepository) error) error {
	return errors.New("connection reset")
}
