// Package memory implements store.Store in process memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/internal/store"
)

// Store keeps every record in maps guarded by a single mutex.
type Store struct {
	mu           sync.RWMutex
	users        map[int64]domain.User
	transactions map[int64]domain.Transaction
	cards        map[int64]domain.Card
	settings     map[string]string
	txSeq        int64
	cardSeq      int64
	now          func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:        make(map[int64]domain.User),
		transactions: make(map[int64]domain.Transaction),
		cards:        make(map[int64]domain.Card),
		settings:     make(map[string]string),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the timestamp source; used by tests that need distinct creation times.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) GetUser(_ context.Context, telegramID int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[telegramID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) AddUser(_ context.Context, user *domain.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.TelegramID]
	if ok {
		existing.FirstName = user.FirstName
		existing.Username = user.Username
		s.users[user.TelegramID] = existing
		*user = existing
		return false, nil
	}

	created := *user
	created.CreatedAt = s.now()
	if created.PreferredReferrer == created.TelegramID {
		created.PreferredReferrer = 0
	}
	s.users[user.TelegramID] = created
	*user = created
	return true, nil
}

func (s *Store) SetUserLanguage(_ context.Context, telegramID int64, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[telegramID]
	if !ok {
		return store.ErrNotFound
	}
	u.Language = lang
	s.users[telegramID] = u
	return nil
}

func (s *Store) GetUserLanguage(_ context.Context, telegramID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[telegramID]
	if !ok {
		return "", store.ErrNotFound
	}
	return u.Language, nil
}

func (s *Store) SetPreferredReferrer(_ context.Context, telegramID, referrerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[telegramID]
	if !ok {
		return store.ErrNotFound
	}
	if referrerID == telegramID {
		referrerID = 0
	}
	u.PreferredReferrer = referrerID
	s.users[telegramID] = u
	return nil
}

func (s *Store) GetPreferredReferrer(_ context.Context, telegramID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[telegramID]
	if !ok {
		return 0, store.ErrNotFound
	}
	return u.PreferredReferrer, nil
}

func (s *Store) UserTotalDonated(_ context.Context, telegramID int64) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, tx := range s.transactions {
		if tx.UserID == telegramID && tx.Status == domain.StatusApproved {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txSeq++
	tx.ID = s.txSeq
	tx.CreatedAt = s.now()
	if tx.Status == "" {
		tx.Status = domain.StatusPendingProof
	}
	s.transactions[tx.ID] = *tx
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &tx, nil
}

func (s *Store) UpdateTransactionProof(_ context.Context, id int64, proofRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return store.ErrNotFound
	}
	if tx.Status != domain.StatusPendingProof {
		return store.ErrStatusConflict
	}
	tx.ProofRef = proofRef
	tx.Status = domain.StatusPendingApproval
	s.transactions[id] = tx
	return nil
}

func (s *Store) UpdateTransactionStatus(_ context.Context, id int64, from, to domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return store.ErrNotFound
	}
	if tx.Status != from {
		return store.ErrStatusConflict
	}
	tx.Status = to
	s.transactions[id] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return store.ErrNotFound
	}
	if tx.Status != status {
		return store.ErrStatusConflict
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) GetUserHistory(_ context.Context, userID int64, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = store.DefaultHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]domain.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			history = append(history, tx)
		}
	}

	sort.Slice(history, func(i, j int) bool {
		if !history[i].CreatedAt.Equal(history[j].CreatedAt) {
			return history[i].CreatedAt.After(history[j].CreatedAt)
		}
		return history[i].ID > history[j].ID
	})

	if len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

func (s *Store) GetStats(_ context.Context) (*domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.Stats{
		TotalRaised:      decimal.Zero,
		RaisedByCurrency: make(map[domain.Currency]decimal.Decimal),
	}
	donors := make(map[int64]struct{})

	for _, tx := range s.transactions {
		switch tx.Status {
		case domain.StatusApproved:
			stats.TotalRaised = stats.TotalRaised.Add(tx.Amount)
			stats.RaisedByCurrency[tx.Currency] = stats.RaisedByCurrency[tx.Currency].Add(tx.Amount)
			donors[tx.UserID] = struct{}{}
		case domain.StatusPendingApproval:
			stats.PendingReviews++
		}
	}
	stats.TotalDonors = len(donors)

	return stats, nil
}

func (s *Store) ListCards(_ context.Context) ([]domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cards := make([]domain.Card, 0, len(s.cards))
	for _, c := range s.cards {
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool {
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.After(cards[j].CreatedAt)
		}
		return cards[i].ID > cards[j].ID
	})
	return cards, nil
}

func (s *Store) GetCard(_ context.Context, id int64) (*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cards[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) AddCard(_ context.Context, card *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cardSeq++
	card.ID = s.cardSeq
	card.CreatedAt = s.now()
	s.cards[card.ID] = *card
	return nil
}

func (s *Store) SetCardActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Active = active
	s.cards[id] = c
	return nil
}

func (s *Store) DeleteCard(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.cards, id)
	return nil
}

func (s *Store) ActiveCards(_ context.Context, currency domain.Currency) ([]domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cards := make([]domain.Card, 0)
	for _, c := range s.cards {
		if c.Active && c.Currency == currency {
			cards = append(cards, c)
		}
	}
	sort.Slice(cards, func(i, j int) bool {
		if !cards[i].CreatedAt.Equal(cards[j].CreatedAt) {
			return cards[i].CreatedAt.Before(cards[j].CreatedAt)
		}
		return cards[i].ID < cards[j].ID
	})
	return cards, nil
}

func (s *Store) CurrenciesWithActiveCards(_ context.Context) ([]domain.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make([]domain.Currency, 0, len(domain.SupportedCurrencies))
	for _, c := range s.cards {
		if c.Active {
			found = append(found, c.Currency)
		}
	}
	return domain.SortCanonical(found), nil
}

func (s *Store) GetSetting(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.settings[key]
	return v, ok, nil
}

func (s *Store) SetSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[key] = value
	return nil
}
