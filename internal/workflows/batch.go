package workflows

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// EncryptItem is the outcome of one file in a batch encrypt.
type EncryptItem struct {
	InputPath string
	Result    *EncryptResult
	Err       error
}

// DecryptItem is the outcome of one file in a batch decrypt.
type DecryptItem struct {
	InputPath string
	Result    *DecryptResult
	Err       error
}

// EncryptBatch encrypts every request with at most Config.Workers running at
// once. A failure affects only its own item; results keep request order.
func (s *Service) EncryptBatch(ctx context.Context, reqs []EncryptOptions) []EncryptItem {
	items := make([]EncryptItem, len(reqs))
	s.forEach(ctx, len(reqs), func(ctx context.Context, i int) {
		res, err := s.Encrypt(ctx, reqs[i])
		items[i] = EncryptItem{InputPath: reqs[i].InputPath, Result: res, Err: err}
	})
	return items
}

// DecryptBatch decrypts every request with at most Config.Workers running at
// once. A failure affects only its own item; results keep request order.
func (s *Service) DecryptBatch(ctx context.Context, reqs []DecryptOptions) []DecryptItem {
	items := make([]DecryptItem, len(reqs))
	s.forEach(ctx, len(reqs), func(ctx context.Context, i int) {
		res, err := s.Decrypt(ctx, reqs[i])
		items[i] = DecryptItem{InputPath: reqs[i].InputPath, Result: res, Err: err}
	})
	return items
}

// forEach runs fn for 0..n-1 on a bounded pool. Items are independent, so fn
// reports errors through its own result slot rather than cancelling siblings.
func (s *Service) forEach(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Workers)
	for i := range n {
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
}
