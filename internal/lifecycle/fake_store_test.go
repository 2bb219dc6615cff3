package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trexoil/edenlivingweb-sub000/internal/model"
	"github.com/trexoil/edenlivingweb-sub000/internal/repository"
)

// fakeStore is an in-memory Store honoring the same atomicity
// contracts as the MySQL implementation: one mutex plays the role of
// the database transaction, so a Consume* call either applies the
// token flip and the transition together or leaves both untouched.
type fakeStore struct {
	mu        sync.Mutex
	residents map[uint64]*model.ResidentAccount
	requests  map[uint64]*model.ServiceRequest
	orders    map[uint64]*model.FoodOrder
	tokens    map[string]*model.ActionToken
	invoices  map[uint64]*model.ServiceInvoice
	byRequest map[uint64]uint64 // request id -> invoice id
	byOrder   map[uint64]uint64 // order id -> invoice id
	nextID    uint64

	failInvoicing bool // simulate a store failure during invoice creation
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		residents: map[uint64]*model.ResidentAccount{},
		requests:  map[uint64]*model.ServiceRequest{},
		orders:    map[uint64]*model.FoodOrder{},
		tokens:    map[string]*model.ActionToken{},
		invoices:  map[uint64]*model.ServiceInvoice{},
		byRequest: map[uint64]uint64{},
		byOrder:   map[uint64]uint64{},
	}
}

func (s *fakeStore) id() uint64 {
	s.nextID++
	return s.nextID
}

// addResident seeds a resident account and returns its id.
func (s *fakeStore) addResident(creditLimit, balance decimal.Decimal) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.residents[id] = &model.ResidentAccount{
		ID: id, UserID: id, FullName: "Resident", Unit: "A-1",
		CreditLimit: creditLimit, CurrentBalance: balance,
	}
	return id
}

func (s *fakeStore) ResidentByID(_ context.Context, id uint64) (*model.ResidentAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.residents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) ResidentByUserID(_ context.Context, userID uint64) (*model.ResidentAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.residents {
		if a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeStore) CreditBalanceAdd(_ context.Context, residentID uint64, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addBalanceLocked(residentID, amount)
}

func (s *fakeStore) addBalanceLocked(residentID uint64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return repository.ErrInvalidArgument
	}
	a, ok := s.residents[residentID]
	if !ok {
		return repository.ErrNotFound
	}
	a.CurrentBalance = a.CurrentBalance.Add(amount)
	return nil
}

func (s *fakeStore) CreditBalanceSubtract(_ context.Context, residentID uint64, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount.IsNegative() {
		return repository.ErrInvalidArgument
	}
	a, ok := s.residents[residentID]
	if !ok {
		return repository.ErrNotFound
	}
	a.CurrentBalance = a.CurrentBalance.Sub(amount)
	if a.CurrentBalance.IsNegative() {
		a.CurrentBalance = decimal.Zero
	}
	return nil
}

func (s *fakeStore) CreateRequest(_ context.Context, q *model.ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = s.id()
	q.CreatedAt = time.Now().UTC()
	cp := *q
	s.requests[q.ID] = &cp
	return nil
}

func (s *fakeStore) RequestByID(_ context.Context, id uint64) (*model.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *fakeStore) ListRequests(_ context.Context, f repository.ListFilter) ([]model.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ServiceRequest
	for _, q := range s.requests {
		if f.ResidentID != 0 && q.ResidentID != f.ResidentID {
			continue
		}
		if f.Department != "" && q.DepartmentAssigned != f.Department {
			continue
		}
		if f.Status != "" && q.Status != f.Status {
			continue
		}
		if f.Type != "" && q.Type != f.Type {
			continue
		}
		if f.Priority != "" && q.Priority != f.Priority {
			continue
		}
		out = append(out, *q)
	}
	return out, nil
}

func statusIn(status string, from []string) bool {
	for _, s := range from {
		if s == status {
			return true
		}
	}
	return false
}

func (s *fakeStore) UpdateRequestStatus(_ context.Context, id uint64, from []string, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !statusIn(q.Status, from) {
		return repository.ErrConflict
	}
	q.Status = to
	return nil
}

func (s *fakeStore) SetRequestActualCost(_ context.Context, id uint64, cost decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	c := cost
	q.ActualCost = &c
	return nil
}

func (s *fakeStore) CreateOrder(_ context.Context, o *model.FoodOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.id()
	o.CreatedAt = time.Now().UTC()
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *fakeStore) OrderByID(_ context.Context, id uint64) (*model.FoodOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeStore) ListOrdersByResident(_ context.Context, residentID uint64) ([]model.FoodOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.FoodOrder
	for _, o := range s.orders {
		if o.ResidentID == residentID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *fakeStore) CancelOrder(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if o.Status != model.OrderSubmitted {
		return repository.ErrConflict
	}
	o.Status = model.OrderCancelled
	return nil
}

func (s *fakeStore) IssueToken(_ context.Context, t *model.ActionToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	t.CreatedAt = time.Now().UTC()
	cp := *t
	s.tokens[t.TokenValue] = &cp
	return nil
}

func (s *fakeStore) TokenByValue(_ context.Context, tokenValue string) (*model.ActionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenValue]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// consumeLocked flips the token or reports why it cannot be flipped.
// The caller holds the mutex and must apply the transition before
// releasing it; on transition failure the caller must not have called
// this (check first) or must restore the token, mirroring a rollback.
func (s *fakeStore) consumeLocked(tokenValue string, actorID uint64, requestID, orderID *uint64) (*model.ActionToken, error) {
	t, ok := s.tokens[tokenValue]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if t.IsUsed {
		return nil, repository.ErrTokenAlreadyUsed
	}
	if t.Expired(time.Now()) {
		return nil, repository.ErrTokenExpired
	}
	if requestID != nil && (t.ServiceRequestID == nil || *t.ServiceRequestID != *requestID) {
		return nil, repository.ErrConflict
	}
	if orderID != nil && (t.OrderID == nil || *t.OrderID != *orderID) {
		return nil, repository.ErrConflict
	}
	now := time.Now().UTC()
	t.IsUsed = true
	t.UsedBy = &actorID
	t.UsedAt = &now
	cp := *t
	return &cp, nil
}

func (s *fakeStore) ConsumeStartToken(_ context.Context, tokenValue string, actorID, requestID uint64) (*model.ActionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.requests[requestID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !statusIn(q.Status, []string{model.StatusAssigned, model.StatusProcessing}) {
		return nil, repository.ErrConflict
	}
	tok, err := s.consumeLocked(tokenValue, actorID, &requestID, nil)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	q.Status = model.StatusInProgress
	q.StartedAt = &now
	q.AssignedTo = &actorID
	return tok, nil
}

func (s *fakeStore) ConsumeRequestCompletionToken(_ context.Context, tokenValue string, actorID, requestID uint64) (*model.ActionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.requests[requestID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if q.Status != model.StatusInProgress {
		return nil, repository.ErrConflict
	}
	tok, err := s.consumeLocked(tokenValue, actorID, &requestID, nil)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	q.Status = model.StatusCompleted
	q.CompletedAt = &now
	if q.ActualCost == nil {
		est := q.EstimatedCost
		q.ActualCost = &est
	}
	return tok, nil
}

func (s *fakeStore) ConsumeOrderCompletionToken(_ context.Context, tokenValue string, actorID, orderID uint64) (*model.ActionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if o.Status != model.OrderSubmitted {
		return nil, repository.ErrConflict
	}
	tok, err := s.consumeLocked(tokenValue, actorID, nil, &orderID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	o.Status = model.OrderCompleted
	o.CompletedAt = &now
	return tok, nil
}

func (s *fakeStore) CreateInvoiceCharged(_ context.Context, inv *model.ServiceInvoice) (*model.ServiceInvoice, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInvoicing {
		return nil, false, repository.ErrStoreUnavailable
	}
	switch {
	case inv.ServiceRequestID != nil:
		if id, ok := s.byRequest[*inv.ServiceRequestID]; ok {
			cp := *s.invoices[id]
			return &cp, false, nil
		}
		q, ok := s.requests[*inv.ServiceRequestID]
		if !ok || q.Status != model.StatusCompleted {
			return nil, false, repository.ErrConflict
		}
		inv.ID = s.id()
		inv.CreatedAt = time.Now().UTC()
		cp := *inv
		s.invoices[inv.ID] = &cp
		s.byRequest[*inv.ServiceRequestID] = inv.ID
		q.Status = model.StatusInvoiced
		q.InvoiceID = &cp.ID
		if err := s.addBalanceLocked(inv.ResidentID, inv.TotalAmount); err != nil {
			// roll the unit back
			delete(s.invoices, inv.ID)
			delete(s.byRequest, *inv.ServiceRequestID)
			q.Status = model.StatusCompleted
			q.InvoiceID = nil
			return nil, false, err
		}
		return inv, true, nil
	case inv.OrderID != nil:
		if id, ok := s.byOrder[*inv.OrderID]; ok {
			cp := *s.invoices[id]
			return &cp, false, nil
		}
		o, ok := s.orders[*inv.OrderID]
		if !ok || o.Status != model.OrderCompleted {
			return nil, false, repository.ErrConflict
		}
		inv.ID = s.id()
		inv.CreatedAt = time.Now().UTC()
		cp := *inv
		s.invoices[inv.ID] = &cp
		s.byOrder[*inv.OrderID] = inv.ID
		o.Status = model.OrderInvoiced
		o.InvoiceID = &cp.ID
		if err := s.addBalanceLocked(inv.ResidentID, inv.TotalAmount); err != nil {
			delete(s.invoices, inv.ID)
			delete(s.byOrder, *inv.OrderID)
			o.Status = model.OrderCompleted
			o.InvoiceID = nil
			return nil, false, err
		}
		return inv, true, nil
	}
	return nil, false, repository.ErrConflict
}

func (s *fakeStore) InvoiceByID(_ context.Context, id uint64) (*model.ServiceInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *fakeStore) InvoiceByRequestID(_ context.Context, requestID uint64) (*model.ServiceInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byRequest[requestID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s.invoices[id]
	return &cp, nil
}

func (s *fakeStore) InvoiceByOrderID(_ context.Context, orderID uint64) (*model.ServiceInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byOrder[orderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s.invoices[id]
	return &cp, nil
}

func (s *fakeStore) UpdateInvoiceStatus(_ context.Context, id uint64, from []string, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !statusIn(inv.Status, from) {
		return repository.ErrConflict
	}
	inv.Status = to
	return nil
}

// recordingNotifier captures events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []ServiceEvent
}

func (n *recordingNotifier) Notify(_ context.Context, ev ServiceEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Kind)
	}
	return out
}
