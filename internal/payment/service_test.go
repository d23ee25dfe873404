package payment

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/appointments"
)

type stubOrders struct {
	byOrderID map[string]Order
}

func (s *stubOrders) Create(ctx context.Context, order Order) error {
	if s.byOrderID == nil {
		s.byOrderID = make(map[string]Order)
	}
	s.byOrderID[order.OrderID] = order
	return nil
}

func (s *stubOrders) GetByOrderID(ctx context.Context, orderID string) (Order, error) {
	order, ok := s.byOrderID[orderID]
	if !ok {
		return Order{}, mongo.ErrNoDocuments
	}
	return order, nil
}

func (s *stubOrders) Complete(ctx context.Context, orderID, bankCode, transactionNo string, at time.Time) (bool, error) {
	order, ok := s.byOrderID[orderID]
	if !ok || order.Status != OrderStatusPending {
		return false, nil
	}
	order.Status = OrderStatusCompleted
	order.BankCode = bankCode
	order.TransactionNo = transactionNo
	order.CompletedAt = &at
	s.byOrderID[orderID] = order
	return true, nil
}

func (s *stubOrders) Fail(ctx context.Context, orderID, code string) (bool, error) {
	order, ok := s.byOrderID[orderID]
	if !ok || order.Status != OrderStatusPending {
		return false, nil
	}
	order.Status = OrderStatusFailed
	order.FailCode = code
	s.byOrderID[orderID] = order
	return true, nil
}

func (s *stubOrders) Refund(ctx context.Context, orderID string) (bool, error) {
	order, ok := s.byOrderID[orderID]
	if !ok || order.Status != OrderStatusCompleted {
		return false, nil
	}
	order.Status = OrderStatusRefunded
	s.byOrderID[orderID] = order
	return true, nil
}

func (s *stubOrders) List(ctx context.Context, status string, limit, offset int64) ([]Order, error) {
	return nil, nil
}

type stubTransactions struct {
	entries []Transaction
}

func (s *stubTransactions) Append(ctx context.Context, txn Transaction) error {
	s.entries = append(s.entries, txn)
	return nil
}

func (s *stubTransactions) GetByOrderRef(ctx context.Context, orderRef, txType string) (Transaction, error) {
	for _, txn := range s.entries {
		if txn.OrderRef == orderRef && txn.Type == txType {
			return txn, nil
		}
	}
	return Transaction{}, mongo.ErrNoDocuments
}

func (s *stubTransactions) List(ctx context.Context, filter TransactionFilter, limit, offset int64) ([]Transaction, error) {
	return s.entries, nil
}

func (s *stubTransactions) Count(ctx context.Context, filter TransactionFilter) (int64, error) {
	return int64(len(s.entries)), nil
}

type stubGateway struct {
	appt          appointments.Appointment
	markPaidCalls int
	refundCalls   int
	markPaidErr   error
}

func (s *stubGateway) GetForActor(ctx context.Context, actorID, actorRole, id string) (appointments.Appointment, error) {
	if s.appt.ID != id {
		return appointments.Appointment{}, appointments.ErrNotFoundOrDenied
	}
	return s.appt, nil
}

func (s *stubGateway) MarkPaid(ctx context.Context, id, method string) (appointments.Appointment, error) {
	s.markPaidCalls++
	if s.markPaidErr != nil {
		return appointments.Appointment{}, s.markPaidErr
	}
	appt := s.appt
	appt.Status = appointments.StatusPaid
	return appt, nil
}

func (s *stubGateway) MarkRefunded(ctx context.Context, id string) (appointments.Appointment, error) {
	s.refundCalls++
	return s.appt, nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

const testSecret = "unit-test-secret"

func newTestService(orders *stubOrders, txns *stubTransactions, gw *stubGateway) *Service {
	cfg := VNPayConfig{
		TmnCode:    "DEMO",
		HashSecret: testSecret,
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://app.example.com/payment/return",
	}
	log := slog.New(slog.NewTextHandler(discard{}, nil))
	return NewService(cfg, orders, txns, gw, nil, time.UTC, log)
}

func seedPendingOrder(orders *stubOrders, amount int64) Order {
	order := Order{
		ID:            primitive.NewObjectID().Hex(),
		OrderID:       "ord" + primitive.NewObjectID().Hex(),
		UserID:        primitive.NewObjectID().Hex(),
		AppointmentID: primitive.NewObjectID().Hex(),
		Amount:        amount,
		Status:        OrderStatusPending,
		CreatedAt:     time.Now(),
	}
	if orders.byOrderID == nil {
		orders.byOrderID = make(map[string]Order)
	}
	orders.byOrderID[order.OrderID] = order
	return order
}

func signedCallback(order Order, responseCode string) map[string]string {
	params := map[string]string{
		"vnp_TxnRef":        order.OrderID,
		"vnp_Amount":        strconv.FormatInt(order.Amount*100, 10),
		"vnp_ResponseCode":  responseCode,
		"vnp_BankCode":      "NCB",
		"vnp_TransactionNo": "14216852",
	}
	params[paramSecureHash] = Sign(testSecret, params)
	return params
}

func TestCallbackBadSignatureChangesNothing(t *testing.T) {
	orders := &stubOrders{}
	order := seedPendingOrder(orders, 250000)
	txns := &stubTransactions{}
	gw := &stubGateway{}
	svc := newTestService(orders, txns, gw)

	params := signedCallback(order, "00")
	params["vnp_Amount"] = "1" // tamper after signing

	result, err := svc.HandleCallback(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RspCode != "97" {
		t.Fatalf("expected RspCode 97, got %s", result.RspCode)
	}
	if got := orders.byOrderID[order.OrderID].Status; got != OrderStatusPending {
		t.Fatalf("order must stay pending on bad signature, got %s", got)
	}
	if len(txns.entries) != 0 || gw.markPaidCalls != 0 {
		t.Fatal("no transaction or appointment change on bad signature")
	}
}

func TestCallbackSuccessCompletesOnce(t *testing.T) {
	orders := &stubOrders{}
	order := seedPendingOrder(orders, 250000)
	txns := &stubTransactions{}
	gw := &stubGateway{}
	svc := newTestService(orders, txns, gw)

	result, err := svc.HandleCallback(context.Background(), signedCallback(order, "00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RspCode != "00" {
		t.Fatalf("expected RspCode 00, got %s (%s)", result.RspCode, result.Message)
	}

	settled := orders.byOrderID[order.OrderID]
	if settled.Status != OrderStatusCompleted || settled.CompletedAt == nil {
		t.Fatalf("expected completed order with timestamp, got %+v", settled)
	}
	if gw.markPaidCalls != 1 {
		t.Fatalf("expected one MarkPaid call, got %d", gw.markPaidCalls)
	}
	if len(txns.entries) != 1 || txns.entries[0].Type != TxPayment {
		t.Fatalf("expected one PAYMENT transaction, got %+v", txns.entries)
	}
	if txns.entries[0].NetAmount != 250000 {
		t.Fatalf("unexpected net amount: %d", txns.entries[0].NetAmount)
	}
}

func TestCallbackReplayIsNoOp(t *testing.T) {
	orders := &stubOrders{}
	order := seedPendingOrder(orders, 250000)
	txns := &stubTransactions{}
	gw := &stubGateway{}
	svc := newTestService(orders, txns, gw)

	params := signedCallback(order, "00")
	if _, err := svc.HandleCallback(context.Background(), params); err != nil {
		t.Fatalf("first callback: %v", err)
	}
	firstCompletedAt := *orders.byOrderID[order.OrderID].CompletedAt

	result, err := svc.HandleCallback(context.Background(), params)
	if err != nil {
		t.Fatalf("replayed callback: %v", err)
	}
	if result.RspCode != "02" {
		t.Fatalf("expected RspCode 02 on replay, got %s", result.RspCode)
	}
	if len(txns.entries) != 1 {
		t.Fatalf("replay must not append a second transaction, got %d", len(txns.entries))
	}
	if gw.markPaidCalls != 1 {
		t.Fatalf("replay must not touch the appointment again, got %d calls", gw.markPaidCalls)
	}
	if got := *orders.byOrderID[order.OrderID].CompletedAt; !got.Equal(firstCompletedAt) {
		t.Fatal("replay must not move completedAt")
	}
}

func TestCallbackAmountMismatchRejected(t *testing.T) {
	orders := &stubOrders{}
	order := seedPendingOrder(orders, 250000)
	txns := &stubTransactions{}
	svc := newTestService(orders, txns, &stubGateway{})

	params := map[string]string{
		"vnp_TxnRef":       order.OrderID,
		"vnp_Amount":       "100", // signed, but wrong for this order
		"vnp_ResponseCode": "00",
	}
	params[paramSecureHash] = Sign(testSecret, params)

	result, err := svc.HandleCallback(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RspCode != "04" {
		t.Fatalf("expected RspCode 04, got %s", result.RspCode)
	}
	if got := orders.byOrderID[order.OrderID].Status; got != OrderStatusPending {
		t.Fatalf("order must stay pending, got %s", got)
	}
}

func TestCallbackGatewayFailureMarksOrderFailed(t *testing.T) {
	orders := &stubOrders{}
	order := seedPendingOrder(orders, 250000)
	txns := &stubTransactions{}
	gw := &stubGateway{}
	svc := newTestService(orders, txns, gw)

	result, err := svc.HandleCallback(context.Background(), signedCallback(order, "24"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RspCode != "00" {
		t.Fatalf("failure report should be acknowledged, got %s", result.RspCode)
	}

	failed := orders.byOrderID[order.OrderID]
	if failed.Status != OrderStatusFailed || failed.FailCode != "24" {
		t.Fatalf("expected failed order with code, got %+v", failed)
	}
	if len(txns.entries) != 0 || gw.markPaidCalls != 0 {
		t.Fatal("gateway failure must not create ledger entries or pay the appointment")
	}
}

func TestCallbackUnknownOrderReported(t *testing.T) {
	svc := newTestService(&stubOrders{}, &stubTransactions{}, &stubGateway{})

	params := map[string]string{
		"vnp_TxnRef":       "missing",
		"vnp_Amount":       "100",
		"vnp_ResponseCode": "00",
	}
	params[paramSecureHash] = Sign(testSecret, params)

	result, err := svc.HandleCallback(context.Background(), params)
	if err != nil {
		t.Fatalf("unknown order must not error out: %v", err)
	}
	if result.RspCode != "01" {
		t.Fatalf("expected RspCode 01, got %s", result.RspCode)
	}
}

func TestRefundSecondAttemptRejected(t *testing.T) {
	orders := &stubOrders{}
	order := seedPendingOrder(orders, 250000)
	txns := &stubTransactions{}
	gw := &stubGateway{}
	svc := newTestService(orders, txns, gw)

	if _, err := svc.HandleCallback(context.Background(), signedCallback(order, "00")); err != nil {
		t.Fatalf("settle order: %v", err)
	}

	refund, err := svc.Refund(context.Background(), RefundRequest{OrderID: order.OrderID, Note: "patient no-show"})
	if err != nil {
		t.Fatalf("first refund: %v", err)
	}
	if refund.Type != TxRefund || refund.NetAmount != -250000 {
		t.Fatalf("unexpected refund entry: %+v", refund)
	}
	if gw.refundCalls != 1 {
		t.Fatalf("expected one MarkRefunded call, got %d", gw.refundCalls)
	}

	_, err = svc.Refund(context.Background(), RefundRequest{OrderID: order.OrderID})
	if !errors.Is(err, ErrOrderNotRefundable) {
		t.Fatalf("second refund must be rejected, got %v", err)
	}
	if len(txns.entries) != 2 {
		t.Fatalf("expected exactly PAYMENT+REFUND, got %d entries", len(txns.entries))
	}
}

func TestRefundWithoutPaymentTransactionRejected(t *testing.T) {
	orders := &stubOrders{}
	order := seedPendingOrder(orders, 250000)
	// completed order with no ledger entry, e.g. manual tampering
	o := orders.byOrderID[order.OrderID]
	o.Status = OrderStatusCompleted
	orders.byOrderID[order.OrderID] = o

	svc := newTestService(orders, &stubTransactions{}, &stubGateway{})

	_, err := svc.Refund(context.Background(), RefundRequest{OrderID: order.OrderID})
	if !errors.Is(err, ErrOrderNotRefundable) {
		t.Fatalf("expected ErrOrderNotRefundable, got %v", err)
	}
}

func TestCreatePaymentURLRequiresPayableAppointment(t *testing.T) {
	apptID := primitive.NewObjectID().Hex()
	patientID := primitive.NewObjectID().Hex()
	gw := &stubGateway{appt: appointments.Appointment{
		ID:        apptID,
		PatientID: patientID,
		Status:    appointments.StatusInit,
	}}
	orders := &stubOrders{}
	svc := newTestService(orders, &stubTransactions{}, gw)

	_, err := svc.CreatePaymentURL(context.Background(), patientID, "203.0.113.9", CreateURLRequest{AppointmentID: apptID})
	if !errors.Is(err, ErrAppointmentNotPayable) {
		t.Fatalf("expected ErrAppointmentNotPayable, got %v", err)
	}
	if len(orders.byOrderID) != 0 {
		t.Fatal("no order may be created for a non-payable appointment")
	}
}

func TestCreatePaymentURLBuildsVerifiableURL(t *testing.T) {
	apptID := primitive.NewObjectID().Hex()
	patientID := primitive.NewObjectID().Hex()
	gw := &stubGateway{appt: appointments.Appointment{
		ID:        apptID,
		PatientID: patientID,
		Status:    appointments.StatusSelectedDoctor,
		Payment: appointments.PaymentInfo{
			DoctorFee:   200000,
			PlatformFee: 50000,
			Total:       250000,
			Status:      appointments.PaymentStatusUnpaid,
		},
	}}
	orders := &stubOrders{}
	svc := newTestService(orders, &stubTransactions{}, gw)

	res, err := svc.CreatePaymentURL(context.Background(), patientID, "203.0.113.9", CreateURLRequest{AppointmentID: apptID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OrderID == "" || res.PayURL == "" {
		t.Fatalf("incomplete response: %+v", res)
	}

	order, ok := orders.byOrderID[res.OrderID]
	if !ok || order.Status != OrderStatusPending || order.Amount != 250000 {
		t.Fatalf("unexpected order: %+v", order)
	}
}
