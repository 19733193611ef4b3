package gym

import (
	"context"

	"gymmanager/internal/email"
)

type ReceiptSender interface {
	SendRenewalReceipt(ctx context.Context, to, gymName string, r email.Receipt) error
}

// Notifier mails renewal receipts to the owning gym's address.
type Notifier struct {
	repo   Repository
	sender ReceiptSender
}

func NewNotifier(repo Repository, sender ReceiptSender) *Notifier {
	return &Notifier{repo: repo, sender: sender}
}

func (n *Notifier) NotifyRenewal(ctx context.Context, gymID int, receipt email.Receipt) error {
	g, err := n.repo.GetByID(ctx, gymID)
	if err != nil {
		return err
	}
	return n.sender.SendRenewalReceipt(ctx, g.Email, g.GymName, receipt)
}
