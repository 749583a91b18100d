package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/types"
)

func PaymentToMessage(item *entity.Payment) *types.PaymentResponseMessage {
	if item == nil {
		return nil
	}

	return &types.PaymentResponseMessage{
		WorkOrderID:       item.WorkOrderID,
		PaymentID:         item.ID,
		Status:            string(item.Status),
		ExternalPaymentID: derefString(item.ExternalPaymentID),
		ExternalOrderID:   derefString(item.ExternalOrderID),
		ErrorMessage:      derefString(item.ErrorMessage),
	}
}

func PaymentToResponse(item *entity.Payment) *types.PaymentResponse {
	if item == nil {
		return nil
	}

	resp := &types.PaymentResponse{
		ID:                item.ID,
		WorkOrderID:       item.WorkOrderID,
		PayerID:           item.PayerID,
		Amount:            item.Amount.StringFixed(2),
		Status:            string(item.Status),
		ExternalPaymentID: derefString(item.ExternalPaymentID),
		ExternalOrderID:   derefString(item.ExternalOrderID),
		PaymentMethod:     derefString(item.PaymentMethod),
		QRCode:            derefString(item.QRCode),
		QRCodeBase64:      derefString(item.QRCodeBase64),
		ErrorMessage:      derefString(item.ErrorMessage),
		CreatedAt:         item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if item.ProcessedAt != nil {
		resp.ProcessedAt = item.ProcessedAt.UTC().Format(time.RFC3339)
	}

	return resp
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
