package payment

import "time"

// Order status is monotonic: pending moves to exactly one of completed or
// failed, and only completed may later become refunded.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusFailed    = "FAILED"
	OrderStatusRefunded  = "REFUNDED"
)

// Transaction types in the ledger.
const (
	TxPayment    = "PAYMENT"
	TxRefund     = "REFUND"
	TxCommission = "COMMISSION"
	TxWithdrawal = "WITHDRAWAL"
)

// Order maps a gateway transaction reference onto an appointment. OrderID is
// the vnp_TxnRef sent to the gateway and echoed back by the callback.
type Order struct {
	ID            string     `bson:"_id,omitempty" json:"id"`
	OrderID       string     `bson:"orderId" json:"orderId"`
	UserID        string     `bson:"userId" json:"userId"`
	AppointmentID string     `bson:"appointmentId" json:"appointmentId"`
	Amount        int64      `bson:"amount" json:"amount"`
	Status        string     `bson:"status" json:"status"`
	BankCode      string     `bson:"bankCode,omitempty" json:"bankCode,omitempty"`
	TransactionNo string     `bson:"transactionNo,omitempty" json:"transactionNo,omitempty"`
	FailCode      string     `bson:"failCode,omitempty" json:"failCode,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	CompletedAt   *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// Transaction is an immutable ledger entry. Refunds carry a negative
// NetAmount and point back at the order they reverse.
type Transaction struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Type        string    `bson:"type" json:"type"`
	UserID      string    `bson:"userId" json:"userId"`
	OrderRef    string    `bson:"orderRef,omitempty" json:"orderRef,omitempty"`
	Amount      int64     `bson:"amount" json:"amount"`
	PlatformFee int64     `bson:"platformFee,omitempty" json:"platformFee,omitempty"`
	DoctorFee   int64     `bson:"doctorFee,omitempty" json:"doctorFee,omitempty"`
	NetAmount   int64     `bson:"netAmount" json:"netAmount"`
	Note        string    `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

type CreateURLRequest struct {
	AppointmentID string `json:"appointmentId" validate:"required,objectid"`
	BankCode      string `json:"bankCode"`
	Locale        string `json:"locale" validate:"omitempty,oneof=vn en"`
}

type CreateURLResponse struct {
	OrderID string `json:"orderId"`
	PayURL  string `json:"payUrl"`
}

// CallbackResult is the report returned to the gateway (and to the browser
// on the return URL). RspCode follows the VNPay IPN convention.
type CallbackResult struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
	OrderID string `json:"orderId,omitempty"`
}

type RefundRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	Note    string `json:"note"`
}

type LedgerEntryRequest struct {
	Type     string `json:"type" validate:"required,oneof=COMMISSION WITHDRAWAL"`
	UserID   string `json:"userId" validate:"required,objectid"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	OrderRef string `json:"orderRef"`
	Note     string `json:"note"`
}

type TransactionFilter struct {
	Type   string
	UserID string
	From   time.Time
	To     time.Time
}
