package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edupay/remit-orders/internal/domain"
	"github.com/edupay/remit-orders/internal/models"
)

// Store is an in-memory stand-in for the Postgres repository, used by
// service and handler tests. All methods are safe for concurrent use.
type Store struct {
	mu            sync.Mutex
	orders        map[uuid.UUID]models.Order
	senders       map[uuid.UUID]models.Sender
	beneficiaries map[uuid.UUID]models.Beneficiary
	uploads       map[uuid.UUID]models.Upload
	AuditLog      []models.AuditRecord

	// Optional error hooks, keyed by method name.
	Errs map[string]error
}

func New() *Store {
	return &Store{
		orders:        make(map[uuid.UUID]models.Order),
		senders:       make(map[uuid.UUID]models.Sender),
		beneficiaries: make(map[uuid.UUID]models.Beneficiary),
		uploads:       make(map[uuid.UUID]models.Upload),
		Errs:          make(map[string]error),
	}
}

// FailWith makes the named method return err on every call.
func (s *Store) FailWith(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errs[method] = err
}

func (s *Store) err(method string) error {
	return s.Errs[method]
}

func (s *Store) CreateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("CreateOrder"); err != nil {
		return err
	}
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	s.orders[order.ID] = *order
	return nil
}

func (s *Store) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("GetOrder"); err != nil {
		return nil, err
	}
	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &order, nil
}

func (s *Store) UpdateOrderPricing(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("UpdateOrderPricing"); err != nil {
		return err
	}
	if _, ok := s.orders[order.ID]; !ok {
		return domain.ErrNotFound
	}
	order.UpdatedAt = time.Now().UTC()
	s.orders[order.ID] = *order
	return nil
}

func (s *Store) TransitionOrderStatus(_ context.Context, id uuid.UUID, next domain.Status, rec models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("TransitionOrderStatus"); err != nil {
		return err
	}
	order, ok := s.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	order.Status = next
	order.UpdatedAt = time.Now().UTC()
	s.orders[id] = order
	s.AuditLog = append(s.AuditLog, rec)
	return nil
}

func (s *Store) SetOrderSender(_ context.Context, orderID, senderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("SetOrderSender"); err != nil {
		return err
	}
	order, ok := s.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	order.SenderID = &senderID
	s.orders[orderID] = order
	return nil
}

func (s *Store) SetOrderBeneficiary(_ context.Context, orderID, beneficiaryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("SetOrderBeneficiary"); err != nil {
		return err
	}
	order, ok := s.orders[orderID]
	if !ok || order.SenderID == nil {
		return domain.ErrNotFound
	}
	order.BeneficiaryID = &beneficiaryID
	s.orders[orderID] = order
	return nil
}

func (s *Store) ListStaleQuotedOrders(_ context.Context, cutoff time.Time, limit int32) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("ListStaleQuotedOrders"); err != nil {
		return nil, err
	}
	var stale []models.Order
	for _, order := range s.orders {
		prelock := order.Status == domain.StatusReceived ||
			order.Status == domain.StatusQuoteDownloaded ||
			order.Status == domain.StatusPending
		if prelock && order.QuotedAt.Before(cutoff) {
			stale = append(stale, order)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].QuotedAt.Before(stale[j].QuotedAt) })
	if int32(len(stale)) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (s *Store) CreateSender(_ context.Context, sender *models.Sender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("CreateSender"); err != nil {
		return err
	}
	now := time.Now().UTC()
	sender.CreatedAt = now
	sender.UpdatedAt = now
	s.senders[sender.ID] = *sender
	return nil
}

func (s *Store) GetSender(_ context.Context, id uuid.UUID) (*models.Sender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("GetSender"); err != nil {
		return nil, err
	}
	sender, ok := s.senders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sender, nil
}

func (s *Store) GetSenderByOrder(_ context.Context, orderID uuid.UUID) (*models.Sender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("GetSenderByOrder"); err != nil {
		return nil, err
	}
	for _, sender := range s.senders {
		if sender.OrderID == orderID {
			return &sender, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) UpdateSender(_ context.Context, sender *models.Sender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("UpdateSender"); err != nil {
		return err
	}
	if _, ok := s.senders[sender.ID]; !ok {
		return domain.ErrNotFound
	}
	sender.UpdatedAt = time.Now().UTC()
	s.senders[sender.ID] = *sender
	return nil
}

func (s *Store) CreateBeneficiary(_ context.Context, b *models.Beneficiary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("CreateBeneficiary"); err != nil {
		return err
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.beneficiaries[b.ID] = *b
	return nil
}

func (s *Store) GetBeneficiary(_ context.Context, id uuid.UUID) (*models.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("GetBeneficiary"); err != nil {
		return nil, err
	}
	b, ok := s.beneficiaries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (s *Store) UpdateBeneficiary(_ context.Context, b *models.Beneficiary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("UpdateBeneficiary"); err != nil {
		return err
	}
	if _, ok := s.beneficiaries[b.ID]; !ok {
		return domain.ErrNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	s.beneficiaries[b.ID] = *b
	return nil
}

func (s *Store) ListActiveBeneficiaries(_ context.Context, limit, offset int32) ([]models.Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("ListActiveBeneficiaries"); err != nil {
		return nil, err
	}
	var active []models.Beneficiary
	for _, b := range s.beneficiaries {
		if b.Active {
			active = append(active, b)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.Before(active[j].CreatedAt) })
	if int(offset) >= len(active) {
		return nil, nil
	}
	active = active[offset:]
	if int32(len(active)) > limit {
		active = active[:limit]
	}
	return active, nil
}

func (s *Store) SetBeneficiaryActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("SetBeneficiaryActive"); err != nil {
		return err
	}
	b, ok := s.beneficiaries[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.Active = active
	s.beneficiaries[id] = b
	return nil
}

func (s *Store) DeleteBeneficiary(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("DeleteBeneficiary"); err != nil {
		return err
	}
	if _, ok := s.beneficiaries[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.beneficiaries, id)
	return nil
}

func (s *Store) CreateUpload(_ context.Context, u *models.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("CreateUpload"); err != nil {
		return err
	}
	u.CreatedAt = time.Now().UTC()
	s.uploads[u.ID] = *u
	return nil
}

// SeedUpload inserts an upload row with an explicit creation time.
func (s *Store) SeedUpload(u models.Upload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[u.ID] = u
}

func (s *Store) ListPendingUploadsBefore(_ context.Context, cutoff time.Time, limit int32) ([]models.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("ListPendingUploadsBefore"); err != nil {
		return nil, err
	}
	var pending []models.Upload
	for _, u := range s.uploads {
		if u.Status == models.UploadStatusPending && u.CreatedAt.Before(cutoff) {
			pending = append(pending, u)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if int32(len(pending)) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) MarkUploadsSubmitted(_ context.Context, orderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("MarkUploadsSubmitted"); err != nil {
		return err
	}
	for id, u := range s.uploads {
		if u.OrderID == orderID && u.Status == models.UploadStatusPending {
			u.Status = models.UploadStatusSubmitted
			s.uploads[id] = u
		}
	}
	return nil
}

func (s *Store) DeleteUpload(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("DeleteUpload"); err != nil {
		return err
	}
	if _, ok := s.uploads[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.uploads, id)
	return nil
}

func (s *Store) InsertAuditLog(_ context.Context, rec models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("InsertAuditLog"); err != nil {
		return err
	}
	s.AuditLog = append(s.AuditLog, rec)
	return nil
}

// Upload returns the stored upload row, if present.
func (s *Store) Upload(id uuid.UUID) (models.Upload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[id]
	return u, ok
}
