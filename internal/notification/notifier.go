package notification

import (
	"context"
	"fmt"

	"shop-api/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TemplateWelcome     = "welcome"
	TemplateOrderPlaced = "order_placed"
)

// Message is a rendered email ready for a transport
type Message struct {
	Template string
	From     string
	To       []string
	Subject  string
	Body     string
}

// Mailer delivers rendered messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier sends the customer-facing emails. Calls are made explicitly by
// the services after the triggering record has been committed.
type Notifier interface {
	Welcome(ctx context.Context, user *domain.User) error
	OrderPlaced(ctx context.Context, user *domain.User, order *domain.Order) error
}

type emailNotifier struct {
	mailer Mailer
	from   string
	logger *zap.Logger
}

// NewEmailNotifier renders the shop templates and hands them to mailer
func NewEmailNotifier(mailer Mailer, from string, logger *zap.Logger) Notifier {
	return &emailNotifier{mailer: mailer, from: from, logger: logger}
}

func (n *emailNotifier) Welcome(ctx context.Context, user *domain.User) error {
	if user == nil || user.Email == "" {
		return nil
	}

	return n.send(ctx, Message{
		Template: TemplateWelcome,
		From:     n.from,
		To:       []string{user.Email},
		Subject:  "Welcome to Our Shop",
		Body:     fmt.Sprintf("Hi %s,\n\nThanks for registering.", user.Username),
	})
}

func (n *emailNotifier) OrderPlaced(ctx context.Context, user *domain.User, order *domain.Order) error {
	if user == nil || user.Email == "" || order == nil {
		return nil
	}

	return n.send(ctx, Message{
		Template: TemplateOrderPlaced,
		From:     n.from,
		To:       []string{user.Email},
		Subject:  fmt.Sprintf("Order #%d placed successfully", order.ID),
		Body: fmt.Sprintf("Hi %s,\n\nYour order #%d has been placed successfully.\nTotal: $%s\nStatus: %s.",
			user.Username, order.ID, FormatTotal(order.TotalPrice), order.Status),
	})
}

func (n *emailNotifier) send(ctx context.Context, msg Message) error {
	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %s email: %w", msg.Template, err)
	}

	n.logger.Info("Notification sent",
		zap.String("template", msg.Template),
		zap.Strings("to", msg.To),
	)
	return nil
}

// FormatTotal renders a money amount with two decimals, clamping negatives to zero
func FormatTotal(total decimal.Decimal) string {
	if total.IsNegative() {
		total = decimal.Zero
	}
	return total.StringFixed(2)
}
