package yookassa

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rvinnie/yookassa-sdk-go/yookassa"
	yoocommon "github.com/rvinnie/yookassa-sdk-go/yookassa/common"
	yoopayment "github.com/rvinnie/yookassa-sdk-go/yookassa/payment"
)

// Client оборачивает SDK ЮKassa. Реквизиты приходят из сохранённого
// конфига бота, поэтому клиент пересоздаётся при каждом его изменении.
type Client struct {
	client    *yookassa.Client
	logger    *slog.Logger
	returnURL string
}

func NewClient(shopID, secretKey, returnURL string, logger *slog.Logger) *Client {
	return &Client{
		client:    yookassa.NewClient(shopID, secretKey),
		logger:    logger,
		returnURL: returnURL,
	}
}

// CreatePayment создаёт платёж и возвращает ссылку на оплату.
func (c *Client) CreatePayment(ctx context.Context, amount float64, currency, description string, metadata map[string]string) (*yoopayment.Payment, error) {
	c.logger.Info("creating yookassa payment", slog.Float64("amount", amount))

	idempotenceKey := fmt.Sprintf("%s_%d", uuid.New().String(), time.Now().Unix())

	payment := &yoopayment.Payment{
		Amount: &yoocommon.Amount{
			Value:    fmt.Sprintf("%.2f", amount),
			Currency: currency,
		},
		Confirmation: &yoopayment.Redirect{
			Type:      yoopayment.TypeRedirect,
			ReturnURL: c.returnURL,
		},
		Description: description,
		Metadata:    metadata,
		Capture:     true,
	}

	paymentHandler := yookassa.NewPaymentHandler(c.client).WithIdempotencyKey(idempotenceKey)
	result, err := paymentHandler.CreatePayment(payment)
	if err != nil {
		c.logger.Error("yookassa payment failed", slog.Any("error", err))
		return nil, fmt.Errorf("create payment: %w", err)
	}

	c.logger.Info("yookassa payment created",
		slog.String("payment_id", result.ID),
		slog.Any("status", result.Status))
	return result, nil
}

// ExtractPaymentURL достаёт ссылку на оплату из confirmation.
// SDK отдаёт interface{}: либо *Redirect, либо map.
func ExtractPaymentURL(payment *yoopayment.Payment) string {
	if payment == nil || payment.Confirmation == nil {
		return ""
	}

	if redirect, ok := payment.Confirmation.(*yoopayment.Redirect); ok {
		return redirect.ConfirmationURL
	}

	if confMap, ok := payment.Confirmation.(map[string]interface{}); ok {
		if url, exists := confMap["confirmation_url"].(string); exists {
			return url
		}
	}

	return ""
}

// GetPaymentStatus запрашивает статус платежа.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentID string) (*yoopayment.Payment, error) {
	paymentHandler := yookassa.NewPaymentHandler(c.client)
	result, err := paymentHandler.FindPayment(paymentID)
	if err != nil {
		c.logger.Error("yookassa status check failed",
			slog.String("payment_id", paymentID),
			slog.Any("error", err))
		return nil, fmt.Errorf("get payment status: %w", err)
	}

	return result, nil
}
