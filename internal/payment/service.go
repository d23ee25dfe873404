package payment

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/MrDuking/talktodoc-backend-sub000/internal/accounts"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/appointments"
	"github.com/MrDuking/talktodoc-backend-sub000/internal/metrics"
)

var (
	ErrAppointmentNotPayable = errors.New("appointment is not awaiting payment")
	ErrOrderNotFound         = errors.New("order not found")
	ErrOrderNotRefundable    = errors.New("order is not in a refundable state")
)

// AppointmentGateway is the slice of the appointment service the payment
// flow needs: one ownership-checked read plus the two transitions only a
// verified gateway event may trigger.
type AppointmentGateway interface {
	GetForActor(ctx context.Context, actorID, actorRole, id string) (appointments.Appointment, error)
	MarkPaid(ctx context.Context, id, method string) (appointments.Appointment, error)
	MarkRefunded(ctx context.Context, id string) (appointments.Appointment, error)
}

type Service struct {
	cfg          VNPayConfig
	orders       OrderRepository
	transactions TransactionRepository
	gateway      AppointmentGateway
	metrics      *metrics.Metrics
	location     *time.Location
	log          *slog.Logger
}

func NewService(
	cfg VNPayConfig,
	orders OrderRepository,
	transactions TransactionRepository,
	gateway AppointmentGateway,
	m *metrics.Metrics,
	location *time.Location,
	log *slog.Logger,
) *Service {
	return &Service{
		cfg:          cfg,
		orders:       orders,
		transactions: transactions,
		gateway:      gateway,
		metrics:      m,
		location:     location,
		log:          log,
	}
}

// CreatePaymentURL creates a pending order for an appointment awaiting
// payment and returns the signed gateway redirect.
func (s *Service) CreatePaymentURL(ctx context.Context, patientID, clientIP string, req CreateURLRequest) (CreateURLResponse, error) {
	appt, err := s.gateway.GetForActor(ctx, patientID, accounts.RolePatient, req.AppointmentID)
	if err != nil {
		return CreateURLResponse{}, err
	}
	if appt.Status != appointments.StatusSelectedDoctor ||
		appt.Payment.Status != appointments.PaymentStatusUnpaid ||
		appt.Payment.Total <= 0 {
		return CreateURLResponse{}, ErrAppointmentNotPayable
	}

	now := time.Now().In(s.location)
	orderID := strings.ReplaceAll(uuid.NewString(), "-", "")
	order := Order{
		ID:            primitive.NewObjectID().Hex(),
		OrderID:       orderID,
		UserID:        patientID,
		AppointmentID: appt.ID,
		Amount:        appt.Payment.Total,
		Status:        OrderStatusPending,
		CreatedAt:     now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return CreateURLResponse{}, err
	}

	locale := req.Locale
	if locale == "" {
		locale = "vn"
	}
	params := map[string]string{
		"vnp_Version":    vnpVersion,
		"vnp_Command":    vnpCommand,
		"vnp_TmnCode":    s.cfg.TmnCode,
		// VNPay amounts are in VND x100.
		"vnp_Amount":     strconv.FormatInt(appt.Payment.Total*100, 10),
		"vnp_CreateDate": formatVNPayTime(now),
		"vnp_ExpireDate": formatVNPayTime(now.Add(15 * time.Minute)),
		"vnp_CurrCode":   "VND",
		"vnp_IpAddr":     clientIP,
		"vnp_Locale":     locale,
		"vnp_OrderInfo":  "Thanh toan lich kham " + appt.ID,
		"vnp_OrderType":  "other",
		"vnp_ReturnUrl":  s.cfg.ReturnURL,
		"vnp_TxnRef":     orderID,
		"vnp_BankCode":   req.BankCode,
	}

	s.log.Info("payment url created",
		slog.String("order_id", orderID),
		slog.String("appointment_id", appt.ID),
		slog.Int64("amount", appt.Payment.Total),
	)
	return CreateURLResponse{
		OrderID: orderID,
		PayURL:  BuildPayURL(s.cfg, params),
	}, nil
}

// HandleCallback processes a gateway return/IPN request. Business outcomes
// come back as a CallbackResult; the error return is reserved for storage
// failures. A bad signature never touches any record, and a replayed
// success is detected by the order-status compare-and-swap, leaving the
// first completion (and its completedAt) intact.
func (s *Service) HandleCallback(ctx context.Context, params map[string]string) (CallbackResult, error) {
	if !VerifySignature(s.cfg.HashSecret, params) {
		s.metrics.ObserveCallback("invalid_signature")
		s.log.Warn("payment callback: signature mismatch")
		return CallbackResult{RspCode: "97", Message: "invalid signature"}, nil
	}

	orderID := params["vnp_TxnRef"]
	order, err := s.orders.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			s.metrics.ObserveCallback("unknown_order")
			s.log.Warn("payment callback: unknown order", slog.String("order_id", orderID))
			return CallbackResult{RspCode: "01", Message: "order not found", OrderID: orderID}, nil
		}
		return CallbackResult{}, err
	}

	amount, err := strconv.ParseInt(params["vnp_Amount"], 10, 64)
	if err != nil || amount != order.Amount*100 {
		s.metrics.ObserveCallback("amount_mismatch")
		s.log.Warn("payment callback: amount mismatch",
			slog.String("order_id", orderID),
			slog.String("got", params["vnp_Amount"]),
		)
		return CallbackResult{RspCode: "04", Message: "invalid amount", OrderID: orderID}, nil
	}

	responseCode := params["vnp_ResponseCode"]
	if responseCode != ResponseCodeSuccess {
		matched, err := s.orders.Fail(ctx, orderID, responseCode)
		if err != nil {
			return CallbackResult{}, err
		}
		if matched {
			s.metrics.ObserveCallback("failed")
			s.log.Info("payment callback: gateway reported failure",
				slog.String("order_id", orderID),
				slog.String("response_code", responseCode),
			)
		}
		return CallbackResult{RspCode: "00", Message: "payment failure recorded", OrderID: orderID}, nil
	}

	matched, err := s.orders.Complete(ctx, orderID, params["vnp_BankCode"], params["vnp_TransactionNo"], time.Now())
	if err != nil {
		return CallbackResult{}, err
	}
	if !matched {
		// Replay of an already settled callback: no state change, no
		// duplicate ledger entry.
		s.metrics.ObserveCallback("replay")
		s.log.Info("payment callback: order already settled", slog.String("order_id", orderID))
		return CallbackResult{RspCode: "02", Message: "order already confirmed", OrderID: orderID}, nil
	}

	appt, err := s.gateway.MarkPaid(ctx, order.AppointmentID, appointments.PaymentMethodVNPay)
	if err != nil {
		// The money is settled either way; keep the order and ledger
		// consistent and let the mismatch surface in the logs.
		s.log.Error("payment callback: appointment transition failed",
			slog.String("order_id", orderID),
			slog.String("appointment_id", order.AppointmentID),
			slog.String("error", err.Error()),
		)
	}

	txn := Transaction{
		ID:          primitive.NewObjectID().Hex(),
		Type:        TxPayment,
		UserID:      order.UserID,
		OrderRef:    orderID,
		Amount:      order.Amount,
		PlatformFee: appt.Payment.PlatformFee,
		DoctorFee:   appt.Payment.DoctorFee,
		NetAmount:   order.Amount,
		CreatedAt:   time.Now(),
	}
	if err := s.transactions.Append(ctx, txn); err != nil {
		return CallbackResult{}, err
	}

	s.metrics.ObserveCallback("completed")
	s.log.Info("payment callback: completed",
		slog.String("order_id", orderID),
		slog.String("appointment_id", order.AppointmentID),
		slog.Int64("amount", order.Amount),
	)
	return CallbackResult{RspCode: "00", Message: "confirm success", OrderID: orderID}, nil
}

// Refund reverses a completed order. The completed-to-refunded swap runs at
// most once, so a second refund of the same order is rejected.
func (s *Service) Refund(ctx context.Context, req RefundRequest) (Transaction, error) {
	order, err := s.orders.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Transaction{}, ErrOrderNotFound
		}
		return Transaction{}, err
	}

	if _, err := s.transactions.GetByOrderRef(ctx, order.OrderID, TxPayment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Transaction{}, ErrOrderNotRefundable
		}
		return Transaction{}, err
	}

	matched, err := s.orders.Refund(ctx, order.OrderID)
	if err != nil {
		return Transaction{}, err
	}
	if !matched {
		return Transaction{}, ErrOrderNotRefundable
	}

	if _, err := s.gateway.MarkRefunded(ctx, order.AppointmentID); err != nil {
		s.log.Error("payment refund: appointment transition failed",
			slog.String("order_id", order.OrderID),
			slog.String("appointment_id", order.AppointmentID),
			slog.String("error", err.Error()),
		)
	}

	txn := Transaction{
		ID:        primitive.NewObjectID().Hex(),
		Type:      TxRefund,
		UserID:    order.UserID,
		OrderRef:  order.OrderID,
		Amount:    order.Amount,
		NetAmount: -order.Amount,
		Note:      req.Note,
		CreatedAt: time.Now(),
	}
	if err := s.transactions.Append(ctx, txn); err != nil {
		return Transaction{}, err
	}

	s.log.Info("payment refund: ok",
		slog.String("order_id", order.OrderID),
		slog.Int64("amount", order.Amount),
	)
	return txn, nil
}

// AppendLedgerEntry records a manual COMMISSION or WITHDRAWAL entry.
// Withdrawals are payouts, so their net amount is negative.
func (s *Service) AppendLedgerEntry(ctx context.Context, req LedgerEntryRequest) (Transaction, error) {
	net := req.Amount
	if req.Type == TxWithdrawal {
		net = -req.Amount
	}
	txn := Transaction{
		ID:        primitive.NewObjectID().Hex(),
		Type:      req.Type,
		UserID:    req.UserID,
		OrderRef:  req.OrderRef,
		Amount:    req.Amount,
		NetAmount: net,
		Note:      req.Note,
		CreatedAt: time.Now(),
	}
	if err := s.transactions.Append(ctx, txn); err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

func (s *Service) ListOrders(ctx context.Context, status string, limit, offset int64) ([]Order, error) {
	return s.orders.List(ctx, status, limit, offset)
}

func (s *Service) ListTransactions(ctx context.Context, filter TransactionFilter, limit, offset int64) ([]Transaction, int64, error) {
	items, err := s.transactions.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.transactions.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
