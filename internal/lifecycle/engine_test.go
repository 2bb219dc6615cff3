package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trexoil/edenlivingweb-sub000/internal/model"
	"github.com/trexoil/edenlivingweb-sub000/internal/repository"
)

func rm(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func residentActor(residentID uint64) model.Actor {
	return model.Actor{UserID: 100 + residentID, Role: model.RoleResident, ResidentID: residentID}
}

func staffActor(dept string) model.Actor {
	return model.Actor{UserID: 900, Role: model.RoleStaff, Department: dept}
}

func adminActor() model.Actor {
	return model.Actor{UserID: 999, Role: model.RoleAdmin}
}

// tokenForRequest returns the latest unused token bound to a request.
func (s *fakeStore) tokenForRequest(requestID uint64) *model.ActionToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.ActionToken
	for _, t := range s.tokens {
		if t.ServiceRequestID != nil && *t.ServiceRequestID == requestID && !t.IsUsed {
			if latest == nil || t.ID > latest.ID {
				latest = t
			}
		}
	}
	if latest == nil {
		return nil
	}
	cp := *latest
	return &cp
}

// tokenForOrder returns the latest unused token bound to a food order.
func (s *fakeStore) tokenForOrder(orderID uint64) *model.ActionToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.ActionToken
	for _, t := range s.tokens {
		if t.OrderID != nil && *t.OrderID == orderID && !t.IsUsed {
			if latest == nil || t.ID > latest.ID {
				latest = t
			}
		}
	}
	if latest == nil {
		return nil
	}
	cp := *latest
	return &cp
}

func TestCreateRequestAutoApproval(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(600), decimal.Zero) // available 600 >= 500

	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceMeal, Title: "Lunch", Priority: model.PriorityMedium,
	})
	require.NoError(t, err)
	assert.True(t, q.AutoApproved)
	assert.Equal(t, model.StatusAssigned, q.Status)
	assert.Equal(t, model.DeptKitchen, q.DepartmentAssigned)
	assert.Equal(t, "21.20", q.EstimatedCost.StringFixed(2))
	assert.Contains(t, q.ApprovalReason, "auto-approved")

	// A start token was issued for the department.
	tok := store.tokenForRequest(q.ID)
	require.NotNil(t, tok)
	assert.Equal(t, model.ActionStart, tok.ActionType)
}

func TestCreateRequestManualReview(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(400), decimal.Zero) // available 400 < 500

	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceMedical, Title: "Checkup", Priority: model.PriorityHigh,
	})
	require.NoError(t, err)
	assert.False(t, q.AutoApproved)
	assert.Equal(t, model.StatusManualReview, q.Status)
	assert.Contains(t, q.ApprovalReason, "manual review")
	assert.Nil(t, store.tokenForRequest(q.ID), "no token before assignment")
}

func TestCreateRequestThresholdIgnoresCost(t *testing.T) {
	// The rule compares available credit to the flat threshold; the
	// estimated cost does not participate in the decision.
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(501), decimal.Zero)
	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceMedical, Title: "Expensive care", Priority: model.PriorityUrgent,
	})
	require.NoError(t, err)
	assert.True(t, q.AutoApproved, "RM 501 available auto-approves regardless of cost")
}

func TestCreateRequestValidation(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()
	rid := store.addResident(rm(600), decimal.Zero)

	cases := []struct {
		name  string
		actor model.Actor
		in    CreateRequestInput
		kind  error
	}{
		{"unknown type", residentActor(rid),
			CreateRequestInput{Type: "spa", Title: "x", Priority: model.PriorityLow}, ErrInvalidArgument},
		{"unknown priority", residentActor(rid),
			CreateRequestInput{Type: model.ServiceMeal, Title: "x", Priority: "asap"}, ErrInvalidArgument},
		{"empty title", residentActor(rid),
			CreateRequestInput{Type: model.ServiceMeal, Title: "  ", Priority: model.PriorityLow}, ErrInvalidArgument},
		{"staff cannot submit", staffActor(model.DeptKitchen),
			CreateRequestInput{Type: model.ServiceMeal, Title: "x", Priority: model.PriorityLow}, ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.CreateRequest(ctx, tc.actor, tc.in)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestMealLifecycleEndToEnd(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	engine := New(store, notifier, 0)
	ctx := context.Background()

	rid := store.addResident(rm(600), decimal.Zero)
	kitchen := staffActor(model.DeptKitchen)

	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceMeal, Title: "Dinner", Priority: model.PriorityMedium,
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusAssigned, q.Status)

	// Start scan moves the request to in_progress.
	start := store.tokenForRequest(q.ID)
	require.NotNil(t, start)
	res, err := engine.ScanToken(ctx, kitchen, start.TokenValue)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, res.NewStatus)

	// Completion scan completes and invoices synchronously.
	comp, err := engine.IssueCompletionToken(ctx, kitchen, q.ID)
	require.NoError(t, err)
	res, err = engine.ScanToken(ctx, kitchen, comp.TokenValue)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInvoiced, res.NewStatus)
	require.NotZero(t, res.InvoiceID)

	inv, err := store.InvoiceByID(ctx, res.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, "21.20", inv.TotalAmount.StringFixed(2))
	assert.Equal(t, "20.00", inv.Amount.StringFixed(2))
	assert.Equal(t, "1.20", inv.TaxAmount.StringFixed(2))
	assert.Equal(t, model.InvoiceDraft, inv.Status)

	acct, err := store.ResidentByID(ctx, rid)
	require.NoError(t, err)
	assert.Equal(t, "21.20", acct.CurrentBalance.StringFixed(2))

	got, err := store.RequestByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInvoiced, got.Status)
	require.NotNil(t, got.InvoiceID)

	// Both tokens are spent now.
	_, err = engine.ScanToken(ctx, kitchen, start.TokenValue)
	assert.ErrorIs(t, err, repository.ErrTokenAlreadyUsed)
	_, err = engine.ScanToken(ctx, kitchen, comp.TokenValue)
	assert.ErrorIs(t, err, repository.ErrTokenAlreadyUsed)

	assert.Equal(t, []string{EventAssigned, EventCompleted}, notifier.kinds())
}

func TestScanTokenSingleUseUnderConcurrency(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(600), decimal.Zero)
	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceLaundry, Title: "Wash", Priority: model.PriorityLow,
	})
	require.NoError(t, err)
	tok := store.tokenForRequest(q.ID)
	require.NotNil(t, tok)

	const scanners = 32
	var wg sync.WaitGroup
	errs := make([]error, scanners)
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := model.Actor{UserID: uint64(1000 + i), Role: model.RoleStaff, Department: model.DeptLaundry}
			_, errs[i] = engine.ScanToken(ctx, actor, tok.TokenValue)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		// Losers either saw the used token or the already-started
		// request, depending on where the race was lost.
		ok := errors.Is(err, repository.ErrTokenAlreadyUsed) || errors.Is(err, ErrInvalidState)
		assert.True(t, ok, "unexpected loser error: %v", err)
	}
	assert.Equal(t, 1, wins, "exactly one scan must win")

	got, err := store.RequestByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
}

func TestConcurrentCompletionsChargeExactly(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(10000), decimal.Zero)
	kitchen := staffActor(model.DeptKitchen)

	const requests = 16
	tokens := make([]string, 0, requests)
	for i := 0; i < requests; i++ {
		q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
			Type: model.ServiceMeal, Title: "Meal", Priority: model.PriorityMedium,
		})
		require.NoError(t, err)
		start := store.tokenForRequest(q.ID)
		require.NotNil(t, start)
		_, err = engine.ScanToken(ctx, kitchen, start.TokenValue)
		require.NoError(t, err)
		comp, err := engine.IssueCompletionToken(ctx, kitchen, q.ID)
		require.NoError(t, err)
		tokens = append(tokens, comp.TokenValue)
	}

	var wg sync.WaitGroup
	for _, tok := range tokens {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			_, err := engine.ScanToken(ctx, kitchen, tok)
			assert.NoError(t, err)
		}(tok)
	}
	wg.Wait()

	acct, err := store.ResidentByID(ctx, rid)
	require.NoError(t, err)
	want := rm(21.20).Mul(decimal.NewFromInt(requests))
	assert.True(t, acct.CurrentBalance.Equal(want),
		"balance %s != %s", acct.CurrentBalance, want)
}

func TestInvoicingIsIdempotent(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(600), decimal.Zero)
	kitchen := staffActor(model.DeptKitchen)

	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceMeal, Title: "Lunch", Priority: model.PriorityLow,
	})
	require.NoError(t, err)
	start := store.tokenForRequest(q.ID)
	_, err = engine.ScanToken(ctx, kitchen, start.TokenValue)
	require.NoError(t, err)
	comp, err := engine.IssueCompletionToken(ctx, kitchen, q.ID)
	require.NoError(t, err)

	// Invoicing fails at completion time; the completed status stands.
	store.mu.Lock()
	store.failInvoicing = true
	store.mu.Unlock()
	res, err := engine.ScanToken(ctx, kitchen, comp.TokenValue)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, res.NewStatus)
	assert.Zero(t, res.InvoiceID)

	acct, _ := store.ResidentByID(ctx, rid)
	assert.True(t, acct.CurrentBalance.IsZero(), "no charge without an invoice")

	// Recovery path: retry twice, charge once.
	store.mu.Lock()
	store.failInvoicing = false
	store.mu.Unlock()
	inv1, err := engine.RetryInvoicing(ctx, q.ID)
	require.NoError(t, err)
	inv2, err := engine.RetryInvoicing(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, inv1.ID, inv2.ID)

	acct, _ = store.ResidentByID(ctx, rid)
	assert.Equal(t, "21.20", acct.CurrentBalance.StringFixed(2))
}

func TestRetryInvoicingRejectsUncompleted(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(600), decimal.Zero)
	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceMeal, Title: "Lunch", Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	_, err = engine.RetryInvoicing(ctx, q.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDepartmentIsolation(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(600), decimal.Zero)
	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceMeal, Title: "Lunch", Priority: model.PriorityLow,
	})
	require.NoError(t, err)
	tok := store.tokenForRequest(q.ID)
	require.NotNil(t, tok)

	// Wrong department is rejected; the token stays scannable.
	_, err = engine.ScanToken(ctx, staffActor(model.DeptLaundry), tok.TokenValue)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Residents cannot scan at all.
	_, err = engine.ScanToken(ctx, residentActor(rid), tok.TokenValue)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Facility-wide roles bypass the department rule.
	res, err := engine.ScanToken(ctx, adminActor(), tok.TokenValue)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, res.NewStatus)
}

func TestScanExpiredToken(t *testing.T) {
	store := newFakeStore()
	// 1ns TTL: every token is expired by the time it is scanned.
	engine := New(store, nil, time.Nanosecond)
	ctx := context.Background()

	rid := store.addResident(rm(600), decimal.Zero)
	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceMeal, Title: "Lunch", Priority: model.PriorityLow,
	})
	require.NoError(t, err)
	tok := store.tokenForRequest(q.ID)
	require.NotNil(t, tok)

	_, err = engine.ScanToken(ctx, staffActor(model.DeptKitchen), tok.TokenValue)
	assert.ErrorIs(t, err, repository.ErrTokenExpired)

	got, err := store.RequestByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, got.Status, "expired scan must not transition")
}

func TestScanUnknownToken(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)

	_, err := engine.ScanToken(context.Background(), staffActor(model.DeptKitchen), "deadbeef")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAssignRequestFromManualReview(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(100), decimal.Zero) // forces manual review
	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceMaintenance, Title: "Fix tap", Priority: model.PriorityHigh,
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusManualReview, q.Status)

	// Staff cannot assign.
	_, err = engine.AssignRequest(ctx, staffActor(model.DeptMaintenance), q.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	q, err = engine.AssignRequest(ctx, adminActor(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, q.Status)
	assert.NotNil(t, store.tokenForRequest(q.ID))

	// Assigning twice is an invalid state, not a silent no-op.
	_, err = engine.AssignRequest(ctx, adminActor(), q.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelRequestRules(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	ridA := store.addResident(rm(100), decimal.Zero)
	ridB := store.addResident(rm(100), decimal.Zero)

	q, err := engine.CreateRequest(ctx, residentActor(ridA), CreateRequestInput{
		Type: model.ServiceLaundry, Title: "Wash", Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	// Another resident cannot cancel it.
	err = engine.CancelRequest(ctx, residentActor(ridB), q.ID, "not mine")
	assert.ErrorIs(t, err, ErrUnauthorized)

	// The owner can cancel while still under review.
	err = engine.CancelRequest(ctx, residentActor(ridA), q.ID, "changed my mind")
	require.NoError(t, err)
	got, _ := store.RequestByID(ctx, q.ID)
	assert.Equal(t, model.StatusCancelled, got.Status)

	// Once assigned, only facility roles can cancel.
	q2, err := engine.CreateRequest(ctx, residentActor(ridA), CreateRequestInput{
		Type: model.ServiceLaundry, Title: "Iron", Priority: model.PriorityLow,
	})
	require.NoError(t, err)
	_, err = engine.AssignRequest(ctx, adminActor(), q2.ID)
	require.NoError(t, err)

	err = engine.CancelRequest(ctx, residentActor(ridA), q2.ID, "too late")
	assert.ErrorIs(t, err, ErrInvalidState)
	err = engine.CancelRequest(ctx, adminActor(), q2.ID, "resident request")
	require.NoError(t, err)
}

func TestCancelInvoicedRequestFails(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(600), decimal.Zero)
	kitchen := staffActor(model.DeptKitchen)
	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceMeal, Title: "Lunch", Priority: model.PriorityLow,
	})
	require.NoError(t, err)
	start := store.tokenForRequest(q.ID)
	_, err = engine.ScanToken(ctx, kitchen, start.TokenValue)
	require.NoError(t, err)
	comp, err := engine.IssueCompletionToken(ctx, kitchen, q.ID)
	require.NoError(t, err)
	_, err = engine.ScanToken(ctx, kitchen, comp.TokenValue)
	require.NoError(t, err)

	err = engine.CancelRequest(ctx, adminActor(), q.ID, "no")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestListRequestsScoping(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	ridA := store.addResident(rm(600), decimal.Zero)
	ridB := store.addResident(rm(600), decimal.Zero)

	_, err := engine.CreateRequest(ctx, residentActor(ridA), CreateRequestInput{
		Type: model.ServiceMeal, Title: "A meal", Priority: model.PriorityLow,
	})
	require.NoError(t, err)
	_, err = engine.CreateRequest(ctx, residentActor(ridB), CreateRequestInput{
		Type: model.ServiceLaundry, Title: "B wash", Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	// Residents see only their own, even when filtering someone else.
	qs, err := engine.ListRequests(ctx, residentActor(ridA), repository.ListFilter{ResidentID: ridB})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, ridA, qs[0].ResidentID)

	// Staff see their department's queue.
	qs, err = engine.ListRequests(ctx, staffActor(model.DeptLaundry), repository.ListFilter{})
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, model.DeptLaundry, qs[0].DepartmentAssigned)

	// Facility roles see everything.
	qs, err = engine.ListRequests(ctx, adminActor(), repository.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, qs, 2)

	// Filter enums are validated.
	_, err = engine.ListRequests(ctx, adminActor(), repository.ListFilter{Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestManualStatusEdits(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(600), decimal.Zero)
	kitchen := staffActor(model.DeptKitchen)
	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceMeal, Title: "Lunch", Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	// assigned -> processing -> assigned is the allowed shuffle.
	require.NoError(t, engine.UpdateRequestStatusManual(ctx, kitchen, q.ID, model.StatusProcessing))
	require.NoError(t, engine.UpdateRequestStatusManual(ctx, kitchen, q.ID, model.StatusAssigned))

	// Token-gated statuses are not manually settable.
	err = engine.UpdateRequestStatusManual(ctx, kitchen, q.ID, model.StatusInProgress)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	err = engine.UpdateRequestStatusManual(ctx, kitchen, q.ID, model.StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Other departments cannot touch the request.
	err = engine.UpdateRequestStatusManual(ctx, staffActor(model.DeptLaundry), q.ID, model.StatusProcessing)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestActualCostOverridesInvoiceTotal(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(600), decimal.Zero)
	kitchen := staffActor(model.DeptKitchen)
	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceMeal, Title: "Banquet", Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	// Too early: the service has not started.
	err = engine.SetActualCost(ctx, kitchen, q.ID, rm(31.80))
	assert.ErrorIs(t, err, ErrInvalidState)

	start := store.tokenForRequest(q.ID)
	_, err = engine.ScanToken(ctx, kitchen, start.TokenValue)
	require.NoError(t, err)
	require.NoError(t, engine.SetActualCost(ctx, kitchen, q.ID, rm(31.80)))

	comp, err := engine.IssueCompletionToken(ctx, kitchen, q.ID)
	require.NoError(t, err)
	res, err := engine.ScanToken(ctx, kitchen, comp.TokenValue)
	require.NoError(t, err)

	inv, err := store.InvoiceByID(ctx, res.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, "31.80", inv.TotalAmount.StringFixed(2))
	assert.Equal(t, "30.00", inv.Amount.StringFixed(2))
	assert.Equal(t, "1.80", inv.TaxAmount.StringFixed(2))
}

func TestOrderLifecycle(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(600), decimal.Zero)
	kitchen := staffActor(model.DeptKitchen)

	o, err := engine.SubmitOrder(ctx, residentActor(rid), SubmitOrderInput{
		Items: "nasi lemak, teh tarik", TotalCost: rm(40),
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderSubmitted, o.Status)

	// A completion token is ready at submission.
	tok := store.tokenForOrder(o.ID)
	require.NotNil(t, tok)
	require.Equal(t, model.ActionCompletion, tok.ActionType)

	// Only kitchen staff (or facility roles) may deliver.
	_, err = engine.ScanToken(ctx, staffActor(model.DeptClinic), tok.TokenValue)
	assert.ErrorIs(t, err, ErrUnauthorized)

	res, err := engine.ScanToken(ctx, kitchen, tok.TokenValue)
	require.NoError(t, err)
	assert.Equal(t, model.OrderInvoiced, res.NewStatus)

	// Order totals are pre-tax; SST is added on top.
	inv, err := store.InvoiceByID(ctx, res.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, "40.00", inv.Amount.StringFixed(2))
	assert.Equal(t, "2.40", inv.TaxAmount.StringFixed(2))
	assert.Equal(t, "42.40", inv.TotalAmount.StringFixed(2))

	acct, _ := store.ResidentByID(ctx, rid)
	assert.Equal(t, "42.40", acct.CurrentBalance.StringFixed(2))
}

func TestSubmitOrderValidation(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()
	rid := store.addResident(rm(600), decimal.Zero)

	_, err := engine.SubmitOrder(ctx, residentActor(rid), SubmitOrderInput{Items: " ", TotalCost: rm(10)})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = engine.SubmitOrder(ctx, residentActor(rid), SubmitOrderInput{Items: "roti", TotalCost: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = engine.SubmitOrder(ctx, staffActor(model.DeptKitchen), SubmitOrderInput{Items: "roti", TotalCost: rm(10)})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestInvoiceSendAndCancel(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	rid := store.addResident(rm(600), decimal.Zero)
	kitchen := staffActor(model.DeptKitchen)
	q, err := engine.CreateRequest(ctx, residentActor(rid), CreateRequestInput{
		Type: model.ServiceMeal, Title: "Lunch", Priority: model.PriorityLow,
	})
	require.NoError(t, err)
	start := store.tokenForRequest(q.ID)
	_, err = engine.ScanToken(ctx, kitchen, start.TokenValue)
	require.NoError(t, err)
	comp, err := engine.IssueCompletionToken(ctx, kitchen, q.ID)
	require.NoError(t, err)
	res, err := engine.ScanToken(ctx, kitchen, comp.TokenValue)
	require.NoError(t, err)

	// Staff cannot manage invoices.
	err = engine.MarkInvoiceSent(ctx, kitchen, res.InvoiceID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, engine.MarkInvoiceSent(ctx, adminActor(), res.InvoiceID))
	err = engine.MarkInvoiceSent(ctx, adminActor(), res.InvoiceID)
	assert.ErrorIs(t, err, ErrInvalidState, "sending twice")

	// Cancelling a sent invoice reverses the ledger charge.
	require.NoError(t, engine.CancelInvoice(ctx, adminActor(), res.InvoiceID, "billing error"))
	acct, _ := store.ResidentByID(ctx, rid)
	assert.True(t, acct.CurrentBalance.IsZero(), "charge reversed, got %s", acct.CurrentBalance)

	err = engine.CancelInvoice(ctx, adminActor(), res.InvoiceID, "again")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestGetRequestVisibility(t *testing.T) {
	store := newFakeStore()
	engine := New(store, nil, 0)
	ctx := context.Background()

	ridA := store.addResident(rm(600), decimal.Zero)
	ridB := store.addResident(rm(600), decimal.Zero)
	q, err := engine.CreateRequest(ctx, residentActor(ridA), CreateRequestInput{
		Type: model.ServiceMeal, Title: "Lunch", Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	_, err = engine.GetRequest(ctx, residentActor(ridA), q.ID)
	assert.NoError(t, err)
	_, err = engine.GetRequest(ctx, residentActor(ridB), q.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = engine.GetRequest(ctx, staffActor(model.DeptKitchen), q.ID)
	assert.NoError(t, err)
	_, err = engine.GetRequest(ctx, staffActor(model.DeptLaundry), q.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = engine.GetRequest(ctx, adminActor(), q.ID)
	assert.NoError(t, err)
}
