package core

import "context"

type Notifier interface {
	OnConfirmed(ctx context.Context, payment *Payment) error
}
