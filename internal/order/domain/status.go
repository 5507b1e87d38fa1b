package domain

import "github.com/hoangvu1420/YummyZoom-sub001/pkg/domainerr"

type Status string

const (
	StatusAwaitingPayment  Status = "AWAITING_PAYMENT"
	StatusPlaced           Status = "PLACED"
	StatusAccepted         Status = "ACCEPTED"
	StatusPreparing        Status = "PREPARING"
	StatusReadyForDelivery Status = "READY_FOR_DELIVERY"
	StatusDelivered        Status = "DELIVERED"
	StatusCancelled        Status = "CANCELLED"
	StatusRejected         Status = "REJECTED"
)

var AllStatuses = []Status{
	StatusAwaitingPayment,
	StatusPlaced,
	StatusAccepted,
	StatusPreparing,
	StatusReadyForDelivery,
	StatusDelivered,
	StatusCancelled,
	StatusRejected,
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusRejected
}

type operation string

const (
	opRecordPaymentSuccess   operation = "record payment success"
	opRecordPaymentFailure   operation = "record payment failure"
	opAccept                 operation = "accept"
	opReject                 operation = "reject"
	opCancel                 operation = "cancel"
	opMarkAsPreparing        operation = "mark as preparing"
	opMarkAsReadyForDelivery operation = "mark as ready for delivery"
	opMarkAsDelivered        operation = "mark as delivered"
)

type transition struct {
	from []Status
	to   Status
	err  *domainerr.Error
}

// transitions is the complete lifecycle graph; no other path changes status.
var transitions = map[operation]transition{
	opRecordPaymentSuccess:   {from: []Status{StatusAwaitingPayment}, to: StatusPlaced, err: ErrInvalidOrderStatusForPaymentConfirmation},
	opRecordPaymentFailure:   {from: []Status{StatusAwaitingPayment}, to: StatusCancelled, err: ErrInvalidOrderStatusForPaymentFailure},
	opAccept:                 {from: []Status{StatusPlaced}, to: StatusAccepted, err: ErrInvalidOrderStatusForAccept},
	opReject:                 {from: []Status{StatusPlaced}, to: StatusRejected, err: ErrInvalidOrderStatusForReject},
	opCancel:                 {from: []Status{StatusPlaced, StatusAccepted, StatusPreparing, StatusReadyForDelivery}, to: StatusCancelled, err: ErrInvalidOrderStatusForCancel},
	opMarkAsPreparing:        {from: []Status{StatusAccepted}, to: StatusPreparing, err: ErrInvalidOrderStatusForPreparing},
	opMarkAsReadyForDelivery: {from: []Status{StatusPreparing}, to: StatusReadyForDelivery, err: ErrInvalidOrderStatusForReadyForDelivery},
	opMarkAsDelivered:        {from: []Status{StatusReadyForDelivery}, to: StatusDelivered, err: ErrInvalidOrderStatusForDelivered},
}
