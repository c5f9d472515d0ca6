package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/approval-engine/approval"
	"github.com/warp/approval-engine/engine"
	"github.com/warp/approval-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newEscalationService(t *testing.T) (*approval.Service, *sqlite.Store, *captureNotifier) {
	return newTestService(t)
}

// insertPendingApproval persists a raw request still in its initial
// status, bypassing the intake decision.
func insertPendingApproval(t *testing.T, store *sqlite.Store, id, employeeID string) *approval.Request {
	t.Helper()

	start := engine.NewDate(2025, time.December, 1)
	end := engine.NewDate(2025, time.December, 5)
	now := time.Now().UTC()

	req := &approval.Request{
		ID:         engine.RequestID(id),
		EmployeeID: engine.EmployeeID(employeeID),
		Type:       engine.TypePTO,
		StartDate:  &start,
		EndDate:    &end,
		Status:     engine.StatusPendingApproval,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.InsertRequest(context.Background(), req))
	return req
}

// =============================================================================
// DIRECT ESCALATION
// =============================================================================

func TestEscalate_KnownRequestID_AssignsManager(t *testing.T) {
	// GIVEN: A request still awaiting evaluation
	// WHEN: The owner escalates it by id
	// THEN: Pending with the owner's manager assigned; no fallback

	service, store, _ := newEscalationService(t)
	ctx := context.Background()
	insertPendingApproval(t, store, "req-1", "emp-std")

	rid := engine.RequestID("req-1")
	result, err := service.Escalate(ctx, &rid, engine.TypePTO, "urgent travel", "emp-std")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.UsedFallback)
	assert.Equal(t, engine.RequestID("req-1"), result.RequestID)
	assert.Equal(t, engine.EmployeeID("mgr-1"), result.ManagerID)
	assert.Contains(t, result.Message, "req-1")

	req, err := service.GetRequestStatus(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPending, req.Status)
	require.NotNil(t, req.ManagerID)
	assert.Equal(t, engine.EmployeeID("mgr-1"), *req.ManagerID)
	require.NotNil(t, req.EscalationReason)
	assert.Equal(t, "urgent travel", *req.EscalationReason)
}

func TestEscalate_ManagerEscalatesReportsRequest(t *testing.T) {
	// GIVEN: A request owned by a report
	// WHEN: The report's manager escalates it by id
	// THEN: Resolved directly; ownership extends up the reporting chain

	service, store, _ := newEscalationService(t)
	insertPendingApproval(t, store, "req-1", "emp-std")

	rid := engine.RequestID("req-1")
	result, err := service.Escalate(context.Background(), &rid, engine.TypePTO, "expediting", "mgr-1")
	require.NoError(t, err)

	assert.False(t, result.UsedFallback)
	assert.Equal(t, engine.RequestID("req-1"), result.RequestID)
}

func TestEscalate_TerminalRequest_Rejected(t *testing.T) {
	// GIVEN: An auto-approved (terminal) request
	// WHEN: Escalating it by id
	// THEN: InvalidTransition

	service, _, _ := newEscalationService(t)
	ctx := context.Background()

	req, _, err := service.SubmitRequest(ctx, shortPTO("emp-std"))
	require.NoError(t, err)
	require.Equal(t, engine.StatusAutoApproved, req.Status)

	rid := req.ID
	_, err = service.Escalate(ctx, &rid, engine.TypePTO, "too late", "emp-std")
	assert.ErrorIs(t, err, engine.ErrInvalidTransition)
}

// =============================================================================
// FALLBACK BY RECENCY
// =============================================================================

func TestEscalate_UnknownID_FallsBackToMostRecentOpenRequest(t *testing.T) {
	// GIVEN: Two open pto requests, the second created later
	// WHEN: Escalating with an id that matches nothing
	// THEN: The most recent open pto request is escalated; the message
	//       names the concrete id and says fallback happened

	service, store, _ := newEscalationService(t)
	ctx := context.Background()
	insertPendingApproval(t, store, "req-old", "emp-std")
	insertPendingApproval(t, store, "req-new", "emp-std")

	rid := engine.RequestID("req-nope")
	result, err := service.Escalate(ctx, &rid, engine.TypePTO, "cannot wait", "emp-std")
	require.NoError(t, err)

	assert.True(t, result.UsedFallback)
	assert.Equal(t, engine.RequestID("req-new"), result.RequestID)
	assert.Contains(t, result.Message, "req-new")
	assert.Contains(t, result.Message, "fell back")
}

func TestEscalate_NoRequestID_UsesRecency(t *testing.T) {
	// GIVEN: One open request and no id supplied at all
	// WHEN: Escalating
	// THEN: Fallback resolves it

	service, store, _ := newEscalationService(t)
	insertPendingApproval(t, store, "req-1", "emp-std")

	result, err := service.Escalate(context.Background(), nil, engine.TypePTO, "nudge", "emp-std")
	require.NoError(t, err)

	assert.True(t, result.UsedFallback)
	assert.Equal(t, engine.RequestID("req-1"), result.RequestID)
}

func TestEscalate_FallbackScopedByType(t *testing.T) {
	// GIVEN: The caller's only open request is an expense
	// WHEN: Escalating for type pto without a valid id
	// THEN: NotFound; a pto escalation never resolves to an expense request

	service, _, _ := newEscalationService(t)
	ctx := context.Background()

	// $250 escalates, leaving an open expense request.
	_, _, err := service.SubmitRequest(ctx, engine.RequestDraft{
		EmployeeID: "emp-std",
		Type:       engine.TypeExpense,
		Amount:     engine.NewAmount(250, engine.UnitUSD),
		Category:   "travel",
	})
	require.NoError(t, err)

	_, err = service.Escalate(ctx, nil, engine.TypePTO, "wrong lane", "emp-std")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestEscalate_ForeignID_FallsBackToOwnRequest(t *testing.T) {
	// GIVEN: A valid id belonging to someone else, and an open request of
	//        the caller's own
	// WHEN: The caller escalates with the foreign id
	// THEN: Fallback resolves the caller's request, not the foreign one

	service, store, _ := newEscalationService(t)
	insertPendingApproval(t, store, "req-theirs", "emp-elv")
	insertPendingApproval(t, store, "req-mine", "emp-std")

	rid := engine.RequestID("req-theirs")
	result, err := service.Escalate(context.Background(), &rid, engine.TypePTO, "pushy", "emp-std")
	require.NoError(t, err)

	assert.True(t, result.UsedFallback)
	assert.Equal(t, engine.RequestID("req-mine"), result.RequestID)
}

func TestEscalate_NoOpenRequests_NotFound(t *testing.T) {
	service, _, _ := newEscalationService(t)

	_, err := service.Escalate(context.Background(), nil, engine.TypePTO, "anything there?", "emp-std")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

// =============================================================================
// REPEATED ESCALATION
// =============================================================================

func TestEscalate_Twice_TwoAuditEntriesOneAssignment(t *testing.T) {
	// GIVEN: An already escalated request
	// WHEN: Escalating it again with a new reason
	// THEN: Two escalation audit entries, one manager assignment, and the
	//       latest reason persisted

	service, store, _ := newEscalationService(t)
	ctx := context.Background()
	insertPendingApproval(t, store, "req-1", "emp-std")

	rid := engine.RequestID("req-1")
	_, err := service.Escalate(ctx, &rid, engine.TypePTO, "first nudge", "emp-std")
	require.NoError(t, err)

	result, err := service.Escalate(ctx, &rid, engine.TypePTO, "second nudge", "emp-std")
	require.NoError(t, err)
	assert.Equal(t, engine.EmployeeID("mgr-1"), result.ManagerID)

	id := "req-1"
	entries, err := store.QueryAudit(ctx, approval.AuditFilter{
		EntityID: &id,
		Actions:  []approval.AuditAction{approval.AuditEscalated},
	})
	require.NoError(t, err)
	assert.Len(t, entries, 2, "one audit entry per escalation call")

	req, err := service.GetRequestStatus(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPending, req.Status)
	require.NotNil(t, req.EscalationReason)
	assert.Equal(t, "second nudge", *req.EscalationReason)
	require.NotNil(t, req.ManagerID)
	assert.Equal(t, engine.EmployeeID("mgr-1"), *req.ManagerID)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestEscalate_NotifiesManagerAfterCommit(t *testing.T) {
	// GIVEN: An open request
	// WHEN: Escalating
	// THEN: The assigned manager receives exactly one escalation notification

	service, store, notifier := newEscalationService(t)
	insertPendingApproval(t, store, "req-1", "emp-std")

	_, err := service.Escalate(context.Background(), nil, engine.TypePTO, "nudge", "emp-std")
	require.NoError(t, err)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, engine.EmployeeID("mgr-1"), notifier.sent[0].Recipient)
	assert.Equal(t, approval.NotifyEscalation, notifier.sent[0].Kind)
}
